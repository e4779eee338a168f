package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chedi-ouerghi/bigscreen/app"
	"github.com/chedi-ouerghi/bigscreen/routes"
	"github.com/chedi-ouerghi/bigscreen/testutil"
)

func newServer(t *testing.T) (app.App, *testutil.MailRecorder, http.Handler) {
	t.Helper()

	db := testutil.OpenTestDB(t)
	a, mailer := testutil.NewApp(t, db)
	return a, mailer, routes.Wire(a)
}

func request(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

// errorEnvelope mirrors the error body every handler renders.
type errorEnvelope struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	decodeBody(t, rec, &env)
	return env
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }
