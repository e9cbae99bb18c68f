package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeGatewayUnavailable, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeGatewayFailure, status: http.StatusPaymentRequired, retryable: true, detailsOK: true},
		{code: CodePaymentTimeout, status: http.StatusGatewayTimeout, retryable: true},
		{code: CodeConfiguration, status: http.StatusServiceUnavailable},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing city")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing city" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "city"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("card declined")
	wrapped := Wrap(CodeGatewayFailure, cause, "open payment")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeGatewayFailure {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if !wrapped.Retryable() {
		t.Fatalf("gateway failures should be retryable")
	}
}

func TestAsAndCodeOf(t *testing.T) {
	err := fmt.Errorf("confirm: %w", New(CodeConfiguration, "stripe key is a placeholder"))
	if got := As(err); got == nil || got.Code() != CodeConfiguration {
		t.Fatalf("As failed to return typed error")
	}
	if CodeOf(err) != CodeConfiguration {
		t.Fatalf("CodeOf returned %s", CodeOf(err))
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeWalksWrappedTypedErrors(t *testing.T) {
	inner := Newf(CodeNotFound, "product %d not found", 7)
	outer := Wrap(CodeDependency, fmt.Errorf("lookup: %w", inner), "catalog unavailable")

	if !HasCode(outer, CodeNotFound) || !HasCode(outer, CodeDependency) {
		t.Fatalf("expected both codes in chain of %v", outer)
	}
	if HasCode(outer, CodeValidation) || HasCode(nil, CodeNotFound) {
		t.Fatal("unexpected code match")
	}
	if inner.Message() != "product 7 not found" {
		t.Fatalf("unexpected message %q", inner.Message())
	}
}
