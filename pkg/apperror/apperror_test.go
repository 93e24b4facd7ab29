package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestKindStatusCodes(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		if got := tt.kind.StatusCode(); got != tt.want {
			t.Errorf("kind %d: status = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	if !IsValidation(Validation("bad input")) {
		t.Error("IsValidation should match a validation error")
	}
	if !IsNotFound(NotFound("order %s not found", "x")) {
		t.Error("IsNotFound should match a not-found error")
	}
	if !IsConflict(Conflict("duplicate")) {
		t.Error("IsConflict should match a conflict error")
	}
	if !IsUnauthorized(Unauthorized("invalid credentials")) {
		t.Error("IsUnauthorized should match an unauthorized error")
	}
	if IsNotFound(Validation("bad input")) {
		t.Error("IsNotFound should not match a validation error")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("predicates should not match plain errors")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create sample: %w", Conflict("sample with code X already exists"))
	if !IsConflict(err) {
		t.Error("IsConflict should unwrap fmt.Errorf chains")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, KindNotFound, "athlete lookup failed")
	if !IsNotFound(err) {
		t.Error("wrapped error should keep its kind")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should expose its cause via errors.Is")
	}
	if want := "athlete lookup failed: connection reset"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func callErrorHandler(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	ErrorHandler(err, c)
	return rec
}

func TestErrorHandlerMapsDomainErrors(t *testing.T) {
	rec := callErrorHandler(t, NotFound("sample %s not found", "s-1"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "sample s-1 not found" {
		t.Errorf("message = %q", body["message"])
	}
}

func TestErrorHandlerPassesThroughEchoErrors(t *testing.T) {
	rec := callErrorHandler(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestErrorHandlerHidesInternals(t *testing.T) {
	rec := callErrorHandler(t, errors.New("pq: relation does not exist"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != "internal server error" {
		t.Errorf("internal detail leaked: %q", body["message"])
	}
}
