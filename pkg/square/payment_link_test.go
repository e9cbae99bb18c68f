package square

import (
	"context"
	"errors"
	"testing"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

type fakeLinkAPI struct {
	created   []PaymentLinkParams
	deleted   []string
	createErr error
	locations int
}

func (f *fakeLinkAPI) CreatePaymentLink(_ context.Context, params PaymentLinkParams) (*sq.PaymentLink, error) {
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	id, orderID, url := "link_1", "sq_order_1", "https://square.link/u/abc"
	return &sq.PaymentLink{ID: &id, OrderID: &orderID, URL: &url}, nil
}

func (f *fakeLinkAPI) DeletePaymentLink(_ context.Context, linkID string) error {
	f.deleted = append(f.deleted, linkID)
	return nil
}

func (f *fakeLinkAPI) ListLocations(context.Context) (int, error) {
	return f.locations, nil
}

func newGateway(t *testing.T, api *fakeLinkAPI, dispatcher *payments.Dispatcher) *PaymentLinkGateway {
	t.Helper()
	loader := payments.NewLoader(ProviderName, nil, payments.LoaderOptions{}, nil)
	gw, err := NewPaymentLinkGateway(api, dispatcher, loader, PaymentLinkOptions{LocationID: "L123"}, logger.Nop())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func TestPaymentLinkGatewayOpenBindsSquareOrder(t *testing.T) {
	api := &fakeLinkAPI{}
	dispatcher := payments.NewDispatcher()
	gw := newGateway(t, api, dispatcher)

	handle, err := gw.Open(context.Background(), payments.Request{
		AmountMinor:   12272,
		Currency:      enums.CurrencyINR,
		OrderID:       "order_abc",
		MerchantName:  "Little Mirai",
		CustomerEmail: "aiko@example.com",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if handle.Reference != "link_1" || handle.RedirectURL != "https://square.link/u/abc" {
		t.Fatalf("unexpected handle %+v", handle)
	}
	if got := api.created[0]; got.AmountMinor != 12272 || got.ReferenceID != "order_abc" || got.IdempotencyKey != "lm-order_abc" {
		t.Fatalf("unexpected params %+v", got)
	}
	if !dispatcher.ResolveRef("sq_order_1", payments.Succeeded("", "pay_1", "evt_1")) {
		t.Fatal("square order id should resolve the attempt")
	}
	select {
	case res := <-handle.Results:
		if res.OrderID != "order_abc" || res.PaymentID != "pay_1" {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("result not delivered")
	}
}

func TestPaymentLinkGatewayOpenFailureForgetsAttempt(t *testing.T) {
	api := &fakeLinkAPI{createErr: errors.New("boom")}
	dispatcher := payments.NewDispatcher()
	gw := newGateway(t, api, dispatcher)

	_, err := gw.Open(context.Background(), payments.Request{AmountMinor: 100, Currency: enums.CurrencyINR, OrderID: "order_x"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeGatewayFailure {
		t.Fatalf("expected gateway failure, got %v", err)
	}
	if dispatcher.Pending() != 0 {
		t.Fatal("failed open must not leave a pending attempt")
	}
}

func TestPaymentLinkGatewayCancelDeletesLink(t *testing.T) {
	api := &fakeLinkAPI{}
	dispatcher := payments.NewDispatcher()
	gw := newGateway(t, api, dispatcher)

	handle, err := gw.Open(context.Background(), payments.Request{AmountMinor: 100, Currency: enums.CurrencyINR, OrderID: "order_y"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := gw.Cancel(context.Background(), handle.Reference); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "link_1" {
		t.Fatalf("expected link deletion, got %v", api.deleted)
	}
	if dispatcher.ResolveRef("sq_order_1", payments.Dismissed("")) {
		t.Fatal("cancelled attempt should not receive results")
	}
}

func TestPaymentLinkGatewayWarmupAndConfig(t *testing.T) {
	api := &fakeLinkAPI{}
	gw := newGateway(t, api, payments.NewDispatcher())
	if err := gw.Warmup(context.Background()); err == nil {
		t.Fatal("warm-up should fail without locations")
	}
	api.locations = 1
	if err := gw.Warmup(context.Background()); err != nil {
		t.Fatalf("warm-up: %v", err)
	}
	if err := gw.Configured(); err != nil {
		t.Fatalf("configured: %v", err)
	}
	gw.opts.LocationID = ""
	if pkgerrors.CodeOf(gw.Configured()) != pkgerrors.CodeConfiguration {
		t.Fatal("missing location should be a configuration error")
	}
}
