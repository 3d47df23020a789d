package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestErrorHandler_HTTPError(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(logger)
	h(echo.NewHTTPError(http.StatusNotFound, "patient not found"), c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Success {
		t.Error("expected success false")
	}
	if body.Message != "patient not found" {
		t.Errorf("expected message 'patient not found', got %q", body.Message)
	}
	if body.Code != http.StatusNotFound {
		t.Errorf("expected code 404, got %d", body.Code)
	}
	if body.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestErrorHandler_InternalErrorHidesDetails(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/lab/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(logger)
	h(errors.New("pq: connection refused at 10.0.0.5"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Message != "internal server error" {
		t.Errorf("expected generic message, got %q", body.Message)
	}
}

func TestErrorHandler_CommittedResponse(t *testing.T) {
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = c.String(http.StatusOK, "already written")

	h := ErrorHandler(logger)
	h(errors.New("late error"), c)

	if rec.Code != http.StatusOK {
		t.Errorf("expected committed 200 to stand, got %d", rec.Code)
	}
}
