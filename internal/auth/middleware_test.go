package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func invoke(t *testing.T, mw echo.MiddlewareFunc, configure func(*http.Request)) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/cafe", nil)
	if configure != nil {
		configure(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return handler(c)
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != want {
		t.Errorf("status = %d, want %d", httpErr.Code, want)
	}
}

func TestAdminSecretHeader(t *testing.T) {
	mw := AdminMiddleware("s3cret")

	err := invoke(t, mw, func(r *http.Request) {
		r.Header.Set("X-Admin-Secret", "s3cret")
	})
	if err != nil {
		t.Errorf("valid secret rejected: %v", err)
	}

	err = invoke(t, mw, func(r *http.Request) {
		r.Header.Set("X-Admin-Secret", "wrong")
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMissingCredentials(t *testing.T) {
	err := invoke(t, AdminMiddleware("s3cret"), nil)
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestBearerTokenRoundTrip(t *testing.T) {
	token, err := GenerateAdminToken(time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	err = invoke(t, AdminMiddleware("s3cret"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateAdminToken(-time.Minute)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	err = invoke(t, AdminMiddleware("s3cret"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	err := invoke(t, AdminMiddleware("s3cret"), func(r *http.Request) {
		r.Header.Set("Authorization", "Token abc123")
	})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}
