package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// helper creates an echo context with the given roles set on the request context.
func newContextWithRoles(method, path string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

var okHandler = func(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// TestRequireRole_AdminAccessesAll verifies that the admin role can access any
// role-protected endpoint regardless of which roles are listed.
func TestRequireRole_AdminAccessesAll(t *testing.T) {
	domainRoles := [][]string{
		{"doctor", "nurse"},
		{"receptionist"},
		{"lab_tech"},
		{"doctor"},
		{"nurse", "lab_tech"},
	}

	for _, roles := range domainRoles {
		c, _ := newContextWithRoles(http.MethodGet, "/", []string{"admin"})
		mw := RequireRole(roles...)
		err := mw(okHandler)(c)
		if err != nil {
			t.Errorf("admin should access endpoint requiring %v, got error: %v", roles, err)
		}
	}
}

// TestRequireRole_DoctorAccessesLab verifies that a doctor can read lab
// endpoints which list "doctor" as a permitted role.
func TestRequireRole_DoctorAccessesLab(t *testing.T) {
	labReadRoles := []string{"admin", "doctor", "nurse", "lab_tech"}

	c, _ := newContextWithRoles(http.MethodGet, "/lab/orders", []string{"doctor"})
	mw := RequireRole(labReadRoles...)
	err := mw(okHandler)(c)
	if err != nil {
		t.Errorf("doctor should read lab endpoints, got error: %v", err)
	}

	// Also verify order creation
	c, _ = newContextWithRoles(http.MethodPost, "/lab/orders", []string{"doctor"})
	mw = RequireRole("admin", "doctor")
	err = mw(okHandler)(c)
	if err != nil {
		t.Errorf("doctor should create lab orders, got error: %v", err)
	}
}

// TestRequireRole_LabTechEntersResults verifies that a lab tech can enter
// results but cannot create orders.
func TestRequireRole_LabTechEntersResults(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodPost, "/lab/orders/1/results", []string{"lab_tech"})
	mw := RequireRole("admin", "lab_tech")
	err := mw(okHandler)(c)
	if err != nil {
		t.Errorf("lab_tech should enter results, got error: %v", err)
	}

	// Order creation: admin, doctor only
	c, _ = newContextWithRoles(http.MethodPost, "/lab/orders", []string{"lab_tech"})
	mw = RequireRole("admin", "doctor")
	err = mw(okHandler)(c)
	if err == nil {
		t.Error("lab_tech should NOT create lab orders")
	}
}

// TestRequireRole_ReceptionistAccessesBilling verifies that a receptionist can
// access billing endpoints.
func TestRequireRole_ReceptionistAccessesBilling(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/billing/invoices", []string{"receptionist"})
	mw := RequireRole("admin", "receptionist")
	err := mw(okHandler)(c)
	if err != nil {
		t.Errorf("receptionist should read billing endpoints, got error: %v", err)
	}

	c, _ = newContextWithRoles(http.MethodPost, "/billing/invoices", []string{"receptionist"})
	mw = RequireRole("admin", "receptionist")
	err = mw(okHandler)(c)
	if err != nil {
		t.Errorf("receptionist should write to billing endpoints, got error: %v", err)
	}
}

// TestRequireRole_ReceptionistDeniedResults verifies that a receptionist
// cannot enter lab results.
func TestRequireRole_ReceptionistDeniedResults(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodPost, "/lab/orders/1/results", []string{"receptionist"})
	mw := RequireRole("admin", "lab_tech")
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("receptionist should NOT enter lab results")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}

// TestRequireRole_NoRoleDenied verifies that a request with no roles is denied
// access to any role-protected endpoint.
func TestRequireRole_NoRoleDenied(t *testing.T) {
	// Empty roles slice
	c, _ := newContextWithRoles(http.MethodGet, "/encounters", []string{})
	mw := RequireRole("admin", "doctor", "nurse")
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("empty roles should be denied")
	}

	// Nil roles (no context value)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/encounters", nil)
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = mw(okHandler)(c)
	if err == nil {
		t.Error("nil roles should be denied")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}
