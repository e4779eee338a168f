package middlewares

import (
	"net/http"

	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/chedi-ouerghi/bigscreen/config"
	"github.com/chedi-ouerghi/bigscreen/httpx"
)

// Admin verifies the bearer token and requires the admin role. Missing,
// invalid or expired tokens all produce the same 401.
func Admin(auth *httpx.Auth) func(http.Handler) http.Handler {
	verifier := jwtauth.Verifier(auth.TokenAuth())
	return func(next http.Handler) http.Handler {
		return verifier(authenticate(next))
	}
}

func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil || jwt.Validate(token) != nil {
			httpx.Unauthorized(w, r)
			return
		}

		if role, _ := claims["role"].(string); role != "admin" {
			httpx.Unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// PublicRateLimit bounds abuse of the unauthenticated endpoints: a small
// number of requests per window per client IP, with a distinguishable 429.
func PublicRateLimit(cfg config.Config) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RateLimit,
		cfg.RateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(httpx.TooManyRequests),
	)
}
