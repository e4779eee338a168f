package httpx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/chedi-ouerghi/bigscreen/log"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Auth issues and verifies the admin bearer tokens. Issuance is deliberately
// opaque to the rest of the code: valid credentials in, signed token out.
type Auth struct {
	db     *sql.DB
	tokens *jwtauth.JWTAuth
	ttl    time.Duration
}

func NewAuth(db *sql.DB, secret string, ttl time.Duration) *Auth {
	return &Auth{
		db:     db,
		tokens: jwtauth.New("HS256", []byte(secret), nil),
		ttl:    ttl,
	}
}

// TokenAuth exposes the verifier for route middleware.
func (a *Auth) TokenAuth() *jwtauth.JWTAuth {
	return a.tokens
}

// TTL is the lifetime of issued tokens, surfaced as expires_in on login.
func (a *Auth) TTL() time.Duration {
	return a.ttl
}

// Login checks the credentials against the users table and returns a signed
// bearer token. Any mismatch comes back as ErrInvalidCredentials so callers
// cannot tell an unknown email from a wrong password.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	var (
		userID int
		hash   string
	)
	err := a.db.
		QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email = ?`, email).
		Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	claims := map[string]any{
		"sub":  email,
		"uid":  userID,
		"role": "admin",
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, a.ttl)

	_, tokenString, err := a.tokens.Encode(claims)
	return tokenString, err
}

// EnsureAdmin creates or refreshes the bootstrapped admin account. Called at
// startup when admin credentials are configured.
func (a *Auth) EnsureAdmin(ctx context.Context, name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET name = excluded.name, password_hash = excluded.password_hash`,
		name, email, string(hash),
	)
	if err != nil {
		return err
	}

	log.Debugf("auth.ensure_admin: %s", email)
	return nil
}
