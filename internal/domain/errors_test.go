package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "price", Message: "price must be > 0, got 0"}
	if err.Error() != "price must be > 0, got 0" {
		t.Errorf("Error() = %q, want %q", err.Error(), "price must be > 0, got 0")
	}
}

func TestValidationError_UnwrapsToInvalidOrder(t *testing.T) {
	var err error = &ValidationError{Field: "quantity", Message: "test"}
	if !errors.Is(err, ErrInvalidOrder) {
		t.Error("ValidationError should unwrap to ErrInvalidOrder")
	}

	wrapped := fmt.Errorf("submit: %w", err)
	if !errors.Is(wrapped, ErrInvalidOrder) {
		t.Error("wrapped ValidationError should still match ErrInvalidOrder")
	}
	var ve *ValidationError
	if !errors.As(wrapped, &ve) || ve.Field != "quantity" {
		t.Errorf("errors.As did not recover the field, got %+v", ve)
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidOrder,
		ErrDuplicateOrderID,
		ErrOrderNotFound,
		ErrUnknownSymbol,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}
