package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/littlemirai-storefront/api/middleware"
	"github.com/angelmondragon/littlemirai-storefront/internal/cart"
	"github.com/angelmondragon/littlemirai-storefront/internal/catalog"
	"github.com/angelmondragon/littlemirai-storefront/internal/checkout"
	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/internal/shoppers"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/angelmondragon/littlemirai-storefront/pkg/metrics"
	"github.com/angelmondragon/littlemirai-storefront/pkg/migrate"
	"github.com/angelmondragon/littlemirai-storefront/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// hostedGateway opens a fake hosted page whose result is delivered through the dispatcher.
type hostedGateway struct {
	dispatcher *payments.Dispatcher
	ready      bool
}

func (g *hostedGateway) Name() string                         { return "fake" }
func (g *hostedGateway) Ready() bool                          { return g.ready }
func (g *hostedGateway) Configured() error                    { return nil }
func (g *hostedGateway) Cancel(context.Context, string) error { return nil }

func (g *hostedGateway) Open(_ context.Context, req payments.Request) (*payments.Handle, error) {
	results := g.dispatcher.Register(req.OrderID)
	g.dispatcher.Bind("ref-"+req.OrderID, req.OrderID)
	return &payments.Handle{Reference: "ref-" + req.OrderID, RedirectURL: "https://pay.example.com/" + req.OrderID, Results: results}, nil
}

type harness struct {
	handler    http.Handler
	dispatcher *payments.Dispatcher
	gateway    *hostedGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "storefront.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := migrate.Run(context.Background(), sqlDB, "sqlite3", "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	reg := prometheus.NewRegistry()
	dispatcher := payments.NewDispatcher()
	gateway := &hostedGateway{dispatcher: dispatcher, ready: true}
	registry, err := shoppers.NewRegistry(shoppers.Params{
		Pricing:  cart.DefaultPricing(),
		Gateway:  gateway,
		Logger:   logger.Nop(),
		Metrics:  metrics.NewStorefrontMetrics(reg),
		Checkout: checkout.Options{PaymentTimeout: time.Minute},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	cfg := &config.Config{
		App:         config.AppConfig{Env: "test"},
		Checkout:    config.CheckoutConfig{AwaitMax: 2 * time.Second},
		Idempotency: config.IdempotencyConfig{ConfirmTTL: time.Hour},
	}
	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.Nop(),
		DB:          stubPinger{},
		Idempotency: redis.NewMemoryStore(),
		Gatherer:    reg,
		Catalog:     catalogSvc,
		Shoppers:    registry,
		Gateway:     gateway,
	})
	return &harness{handler: handler, dispatcher: dispatcher, gateway: gateway}
}

func (h *harness) do(t *testing.T, method, path, shopperID string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if shopperID != "" {
		req.Header.Set(middleware.ShopperIDHeader, shopperID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error %q: %v", rec.Body.String(), err)
	}
	return envelope.Error.Code
}

var shipping = map[string]string{
	"first_name": "Aiko", "last_name": "Tanaka", "email": "aiko@example.com", "phone": "9876543210",
	"address": "12 MG Road", "city": "Bengaluru", "state": "KA", "postal_code": "560001", "country": "India",
}

// readyForConfirm fills a cart and walks checkout to the review step.
func (h *harness) readyForConfirm(t *testing.T, method string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]any{"product_id": 1, "quantity": 2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
	}
	shopperID := rec.Header().Get(middleware.ShopperIDHeader)
	if shopperID == "" {
		t.Fatal("expected an issued shopper id")
	}

	steps := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/v1/checkout", nil},
		{http.MethodPut, "/api/v1/checkout/shipping", shipping},
		{http.MethodPut, "/api/v1/checkout/payment-method", map[string]string{"method": method}},
		{http.MethodPost, "/api/v1/checkout/payment", nil},
	}
	for _, step := range steps {
		rec := h.do(t, step.method, step.path, shopperID, step.body)
		if rec.Code >= 300 {
			t.Fatalf("%s %s: %d %s", step.method, step.path, rec.Code, rec.Body.String())
		}
	}
	return shopperID
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, http.MethodGet, "/health/live", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: %d", rec.Code)
	}
	rec := h.do(t, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}
	checks := decodeData(t, rec)["checks"].(map[string]any)
	if checks["redis"] != "disabled" || checks["gateway"] != "ready" {
		t.Fatalf("unexpected checks %v", checks)
	}

	// Touch a cart so the shopper gauge exists.
	h.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	rec = h.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "storefront_active_shoppers") {
		t.Fatalf("metrics missing shopper gauge: %d", rec.Code)
	}
}

func TestProductsEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/products?category=Footwear&sort=price_asc", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	products := decodeData(t, rec)["products"].([]any)
	if len(products) != 3 {
		t.Fatalf("expected 3 footwear products, got %d", len(products))
	}

	if rec := h.do(t, http.MethodGet, "/api/v1/products?price_range=cheap", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad price range, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/products/999", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/products/abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestCartEndpoints(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/cart/items", "", map[string]any{"product_id": 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	shopperID := rec.Header().Get(middleware.ShopperIDHeader)
	item := decodeData(t, rec)["items"].([]any)[0].(map[string]any)
	size, color := item["selected_size"].(string), item["selected_color"].(string)

	rec = h.do(t, http.MethodPatch, "/api/v1/cart/items", shopperID, map[string]any{
		"product_id": 1, "size": size, "color": color, "quantity": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	totals := decodeData(t, rec)["totals"].(map[string]any)
	if totals["item_count"].(float64) != 3 {
		t.Fatalf("expected 3 items, got %v", totals["item_count"])
	}

	if rec := h.do(t, http.MethodPost, "/api/v1/cart/open", shopperID, nil); decodeData(t, rec)["is_open"] != true {
		t.Fatal("expected cart to be open")
	}

	query := url.Values{"product_id": {"1"}, "size": {size}, "color": {color}}
	rec = h.do(t, http.MethodDelete, "/api/v1/cart/items?"+query.Encode(), shopperID, nil)
	if items := decodeData(t, rec)["items"].([]any); len(items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(items))
	}

	rec = h.do(t, http.MethodPost, "/api/v1/cart/items", shopperID, map[string]any{"product_id": 1, "size": "XXL"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unoffered size, got %d", rec.Code)
	}
}

func TestCashOnDeliveryConfirmIsIdempotent(t *testing.T) {
	h := newHarness(t)
	shopperID := h.readyForConfirm(t, "cod")

	if rec := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("confirm without idempotency key should be 400, got %d", rec.Code)
	}

	first := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil, middleware.IdempotencyKeyHeader, "key-1")
	if first.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", first.Code, first.Body.String())
	}
	data := decodeData(t, first)
	if data["route"] != string(checkout.RoutePlaced) {
		t.Fatalf("expected placed route, got %v", data["route"])
	}

	replay := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil, middleware.IdempotencyKeyHeader, "key-1")
	if replay.Code != http.StatusOK || replay.Body.String() != first.Body.String() {
		t.Fatalf("replay should return the stored response, got %d %s", replay.Code, replay.Body.String())
	}

	rec := h.do(t, http.MethodGet, "/api/v1/cart", shopperID, nil)
	if items := decodeData(t, rec)["items"].([]any); len(items) != 0 {
		t.Fatal("placing the order should clear the cart")
	}
}

func TestGatewayConfirmResolvesThroughAwait(t *testing.T) {
	h := newHarness(t)
	shopperID := h.readyForConfirm(t, "card")

	rec := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil, middleware.IdempotencyKeyHeader, "key-2")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["processing"] != true || !strings.HasPrefix(data["redirect_url"].(string), "https://pay.example.com/") {
		t.Fatalf("unexpected confirm outcome %v", data)
	}
	orderID := data["session"].(map[string]any)["order_id"].(string)

	if !h.dispatcher.ResolveRef("ref-"+orderID, payments.Succeeded("", "pay_1", "sig")) {
		t.Fatal("expected pending attempt")
	}

	rec = h.do(t, http.MethodGet, "/api/v1/checkout/payment/await?wait=2", shopperID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("await: %d %s", rec.Code, rec.Body.String())
	}
	session := decodeData(t, rec)["session"].(map[string]any)
	if session["step"] != "placed" || session["payment_id"] != "pay_1" {
		t.Fatalf("expected placed session, got %v", session)
	}
}

func TestCartLockedWhilePaymentPending(t *testing.T) {
	h := newHarness(t)
	shopperID := h.readyForConfirm(t, "card")

	rec := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil, middleware.IdempotencyKeyHeader, "key-lock")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	session := decodeData(t, rec)["session"].(map[string]any)
	if session["amount_minor"].(float64) <= 0 {
		t.Fatalf("session should carry the charged amount, got %v", session["amount_minor"])
	}

	rec = h.do(t, http.MethodPost, "/api/v1/cart/items", shopperID, map[string]any{"product_id": 1})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "STATE_CONFLICT" {
		t.Fatalf("expected locked cart, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := h.do(t, http.MethodDelete, "/api/v1/cart", shopperID, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("clear should be refused while paying, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/cart", shopperID, nil); rec.Code != http.StatusOK {
		t.Fatalf("reading the cart stays allowed, got %d", rec.Code)
	}
}

func TestGatewayNotLoadedKeepsReview(t *testing.T) {
	h := newHarness(t)
	shopperID := h.readyForConfirm(t, "card")
	h.gateway.ready = false

	rec := h.do(t, http.MethodPost, "/api/v1/checkout/confirm", shopperID, nil, middleware.IdempotencyKeyHeader, "key-3")
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "GATEWAY_UNAVAILABLE" {
		t.Fatalf("expected gateway unavailable, got %d %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodGet, "/api/v1/checkout", shopperID, nil)
	if step := decodeData(t, rec)["session"].(map[string]any)["step"]; step != "review" {
		t.Fatalf("expected review step, got %v", step)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/payment-methods", "", nil)
	var methods struct {
		Data []struct {
			ID        string `json:"id"`
			Available bool   `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &methods); err != nil {
		t.Fatalf("decode methods: %v", err)
	}
	for _, m := range methods.Data {
		if want := m.ID == "cod"; m.Available != want {
			t.Fatalf("method %s availability %v while gateway loads", m.ID, m.Available)
		}
	}
}

func TestCheckoutRequiresSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/checkout", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a session, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/checkout", "", nil)
	shopperID := rec.Header().Get(middleware.ShopperIDHeader)
	rec = h.do(t, http.MethodPut, "/api/v1/checkout/shipping", shopperID, map[string]string{"first_name": "Aiko"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete address, got %d", rec.Code)
	}

	if rec := h.do(t, http.MethodDelete, "/api/v1/checkout", shopperID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("abandon: %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/checkout", shopperID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after abandon, got %d", rec.Code)
	}
}

func TestWebhookRoutesUnconfigured(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/webhooks/square", "", map[string]string{})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for disabled webhook, got %d", rec.Code)
	}
}
