package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testConfig = JWTConfig{
	Secret: []byte("0123456789abcdef0123456789abcdef"),
	Issuer: "hms",
}

func newAuthedRequest(t *testing.T, cfg JWTConfig, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	token, err := cfg.IssueToken("user-1", "Dr. Test", roles)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	c, rec := newAuthedRequest(t, testConfig, []string{"doctor"})

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if got := UserIDFromContext(ctx); got != "user-1" {
			t.Errorf("expected user-1, got %s", got)
		}
		if got := UserNameFromContext(ctx); got != "Dr. Test" {
			t.Errorf("expected Dr. Test, got %s", got)
		}
		roles := RolesFromContext(ctx)
		if len(roles) != 1 || roles[0] != "doctor" {
			t.Errorf("expected [doctor], got %v", roles)
		}
		return c.String(http.StatusOK, "ok")
	}

	mw := JWTMiddleware(testConfig)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_MalformedHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_WrongSecret(t *testing.T) {
	other := JWTConfig{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "hms",
	}
	c, _ := newAuthedRequest(t, other, []string{"doctor"})

	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error { return nil })(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	other := JWTConfig{Secret: testConfig.Secret, Issuer: "someone-else"}
	c, _ := newAuthedRequest(t, other, []string{"doctor"})

	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error { return nil })(c)

	if err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	expired := JWTConfig{Secret: testConfig.Secret, Issuer: "hms", TTL: -time.Hour}
	c, _ := newAuthedRequest(t, expired, []string{"doctor"})

	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error { return nil })(c)

	if err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	called := false
	mw := JWTMiddleware(testConfig)
	err := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to run without credentials on public path")
	}
}
