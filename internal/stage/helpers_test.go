package stage

import (
	"errors"
	"testing"

	"airdesk/internal/services"
	"airdesk/internal/store"
)

func TestValidateCall_Valid(t *testing.T) {
	if err := ValidateCall("extract", &store.Call{ID: "c1", FirmID: "firm"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCall_MissingFirm(t *testing.T) {
	err := ValidateCall("extract", &store.Call{ID: "c1", FirmID: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("validation errors must not be retryable")
	}
}

func TestValidateCall_Nil(t *testing.T) {
	if err := ValidateCall("ticket", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoreErrorIsRetryable(t *testing.T) {
	cause := errors.New("database is locked")
	err := StoreError("notify", "load ticket", cause)
	if !services.Retryable(err) || !errors.Is(err, cause) {
		t.Fatalf("expected retryable wrapped error, got %v", err)
	}
	if StoreError("notify", "x", nil) != nil {
		t.Fatal("nil error should stay nil")
	}
}
