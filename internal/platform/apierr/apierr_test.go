package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCauseStaysOutOfMessage(t *testing.T) {
	cause := errors.New("hash mismatch on field auth_date")
	err := Unauthorized("invalid_init_data", "telegram init data rejected").WithCause(cause)

	if err.Message != "telegram init data rejected" {
		t.Fatalf("message: %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should unwrap")
	}
	wrapped := fmt.Errorf("login: %w", err)
	ae, ok := As(wrapped)
	if !ok || ae.Status != http.StatusUnauthorized || ae.Code != "invalid_init_data" {
		t.Fatalf("As: %+v %v", ae, ok)
	}
}

func TestConstructorsFormat(t *testing.T) {
	err := Forbidden("staff_only", "staff login is not available for role %s", "resident")
	if err.Error() != "staff login is not available for role resident" {
		t.Fatalf("Error(): %q", err.Error())
	}
	if Unavailable("x", "down").Status != http.StatusServiceUnavailable {
		t.Fatalf("unavailable status")
	}
	if _, ok := As(errors.New("plain")); ok {
		t.Fatalf("plain error is not an api error")
	}
}
