package httpx

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/chedi-ouerghi/bigscreen/log"
)

// ErrorBody is the JSON envelope every non-2xx response uses.
type ErrorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Will log the underlying error with its operation code, and send a generic
// 500 body that leaks nothing to the caller.
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorBody{Message: "an unexpected error occurred, please retry later"})
}

// Will log a debug message, and send a 404 with a JSON body.
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorBody{Message: "not found"})
}

// Will log an error code at the given level, and send a JSON body with the
// status' default text.
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Message: http.StatusText(status)})
}

// Uniform 401 for missing, invalid or expired credentials.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, ErrorBody{Message: "unauthorized"})
}

// 422 with the per-field error list. No state may have changed.
func ValidationFailed(w http.ResponseWriter, r *http.Request, errs map[string][]string) {
	render.Status(r, http.StatusUnprocessableEntity)
	render.JSON(w, r, ErrorBody{Message: "validation failed", Errors: errs})
}

// Distinguishable throttling response for rate-limited endpoints.
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, ErrorBody{Message: "too many requests, retry later"})
}
