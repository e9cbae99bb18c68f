package square

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
)

func TestIdempotencyKey(t *testing.T) {
	if got := idempotencyKey("pref", " custom-key "); got != "custom-key" {
		t.Fatalf("expected provided key, got %q", got)
	}
	if got := idempotencyKey("payment_link", ""); !strings.HasPrefix(got, "payment_link-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
	if a, b := idempotencyKey("", ""), idempotencyKey("", ""); a == b || !strings.HasPrefix(a, "lm-") {
		t.Fatalf("expected distinct default keys, got %q and %q", a, b)
	}
}

func TestRedact(t *testing.T) {
	for _, key := range []string{"payment_token", "email", "phone"} {
		if out := redact(key, "aiko@example.com"); out != "[REDACTED]" {
			t.Fatalf("expected %s to be redacted, got %v", key, out)
		}
	}
	if v := redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeConfiguration},
		{http.StatusForbidden, pkgerrors.CodeConfiguration},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeDependency},
		{http.StatusBadRequest, pkgerrors.CodeGatewayFailure},
		{http.StatusUnprocessableEntity, pkgerrors.CodeGatewayFailure},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := codeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestTranslateError(t *testing.T) {
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeConfiguration,
		},
		{
			name:     "validation error body",
			status:   http.StatusBadRequest,
			payload:  `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"INVALID_VALUE"}]}`,
			wantCode: pkgerrors.CodeGatewayFailure,
		},
		{
			name:     "unparseable body",
			status:   http.StatusServiceUnavailable,
			payload:  `<html>bad gateway</html>`,
			wantCode: pkgerrors.CodeDependency,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusConflict,
			payload:  `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeIdempotency,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		mapped := translateError(err, "operation")
		if mapped == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		typed := pkgerrors.As(mapped)
		if typed == nil {
			t.Fatalf("%s: result is not pkgerror", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}
}

func TestAPIErrors(t *testing.T) {
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := apiErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}

func TestTranslateErrorWrapsTransportFailures(t *testing.T) {
	if got := pkgerrors.CodeOf(translateError(errors.New("dial tcp: timeout"), "list locations")); got != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", got)
	}
	if translateError(nil, "noop") != nil {
		t.Fatal("nil error should stay nil")
	}
}

func TestPaymentLinkRequest(t *testing.T) {
	req := PaymentLinkParams{
		Name:        "Little Mirai",
		AmountMinor: 12272,
		Currency:    "inr",
		LocationID:  "L123",
		ReferenceID: "order_abc",
		Description: "Baby Clothing Purchase",
		RedirectURL: "https://shop.example/checkout",
		BuyerEmail:  "aiko@example.com",
	}.toSquareRequest("key-1")

	if req.IdempotencyKey == nil || *req.IdempotencyKey != "key-1" {
		t.Fatalf("unexpected idempotency key %v", req.IdempotencyKey)
	}
	if req.QuickPay == nil || req.QuickPay.LocationID != "L123" || req.QuickPay.Name != "Little Mirai" {
		t.Fatalf("unexpected quick pay %+v", req.QuickPay)
	}
	money := req.QuickPay.PriceMoney
	if money == nil || *money.Amount != 12272 || *money.Currency != sq.Currency("INR") {
		t.Fatalf("unexpected money %+v", money)
	}
	if req.PaymentNote == nil || *req.PaymentNote != "order_abc" {
		t.Fatalf("order id should travel in the payment note")
	}
	if req.PrePopulatedData == nil || req.PrePopulatedData.BuyerPhoneNumber != nil {
		t.Fatalf("expected email-only prepopulated data, got %+v", req.PrePopulatedData)
	}
	if req.CheckoutOptions == nil || *req.CheckoutOptions.RedirectURL != "https://shop.example/checkout" {
		t.Fatalf("unexpected checkout options")
	}
}
