package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/httpx"
	"github.com/chedi-ouerghi/bigscreen/log"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "login.parse_body")
			return
		}

		if validate.Struct(req) != nil {
			// no detail on purpose: bad login input gets the same 401
			httpx.Unauthorized(w, r)
			return
		}

		tokenString, err := app.Auth.Login(r.Context(), req.Email, req.Password)
		if errors.Is(err, httpx.ErrInvalidCredentials) {
			httpx.Unauthorized(w, r)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "auth.login", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"access_token": tokenString,
			"token_type":   "bearer",
			"expires_in":   int(app.Auth.TTL().Seconds()),
		})
	}
}

// Me echoes the verified token's identity, so the back office can tell whether
// a stored token is still good.
func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			httpx.Unauthorized(w, r)
			return
		}

		render.JSON(w, r, map[string]any{
			"id":    claims["uid"],
			"email": claims["sub"],
			"role":  claims["role"],
		})
	}
}
