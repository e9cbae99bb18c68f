package square

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

var errLoggerRequired = errors.New("square logger is required")

var baseURLs = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

// Log fields whose values never reach the logs.
var sensitiveFields = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"}

// Client is the Square SDK client bound to one location, plus the webhook
// settings needed to verify notifications for it.
type Client struct {
	sdk             *sqclient.Client
	environment     string
	webhookSecret   string
	notificationURL string
	locationID      string
	logger          *logger.Logger
}

// NewClient validates the credentials and builds the SDK client for the
// configured environment. Missing or placeholder credentials come back as
// CONFIGURATION_ERROR.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "square environment must be sandbox or production, got %q", env)
	}
	creds := []struct{ label, value string }{
		{"square access token", cfg.AccessToken},
		{"square webhook secret", cfg.WebhookSecret},
		{"square location id", cfg.LocationID},
	}
	for _, cred := range creds {
		if err := payments.RequireCredential(cred.label, cred.value); err != nil {
			return nil, err
		}
	}

	c := &Client{
		sdk: sqclient.NewClient(
			sqoption.WithBaseURL(baseURL),
			sqoption.WithToken(strings.TrimSpace(cfg.AccessToken)),
		),
		environment:     env,
		webhookSecret:   strings.TrimSpace(cfg.WebhookSecret),
		notificationURL: strings.TrimSpace(cfg.WebhookURL),
		locationID:      strings.TrimSpace(cfg.LocationID),
		logger:          logg,
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"square_env": env, "location_id": c.locationID}), "square client initialized")
	return c, nil
}

// Environment reports the Square environment (sandbox or production).
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the Square webhook signature key.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NotificationURL is the webhook URL Square signs together with the body.
func (c *Client) NotificationURL() string {
	if c == nil {
		return ""
	}
	return c.notificationURL
}

// LocationID is the Square location payments are collected for.
func (c *Client) LocationID() string {
	if c == nil {
		return ""
	}
	return c.locationID
}

// CreatePaymentLink opens a quick-pay hosted checkout for a single amount.
func (c *Client) CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*sq.PaymentLink, error) {
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	req := params.toSquareRequest(idempotencyKey("payment_link", params.IdempotencyKey))

	var link *sq.PaymentLink
	err := c.call(ctx, "create_payment_link", map[string]any{
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount":       params.AmountMinor,
		"email":        params.BuyerEmail,
		"phone":        params.BuyerPhone,
	}, func(ctx context.Context) error {
		resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, req)
		if err != nil {
			return err
		}
		link = resp.GetPaymentLink()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// DeletePaymentLink removes a hosted link so it can no longer be paid.
func (c *Client) DeletePaymentLink(ctx context.Context, linkID string) error {
	return c.call(ctx, "delete_payment_link", map[string]any{"payment_link_id": linkID}, func(ctx context.Context) error {
		_, err := c.sdk.Checkout.PaymentLinks.Delete(ctx, &sqcheckout.DeletePaymentLinksRequest{ID: linkID})
		return err
	})
}

// ListLocations is a cheap authenticated call used to warm the client up.
func (c *Client) ListLocations(ctx context.Context) (int, error) {
	var n int
	err := c.call(ctx, "list_locations", nil, func(ctx context.Context) error {
		resp, err := c.sdk.Locations.List(ctx)
		if err != nil {
			return err
		}
		n = len(resp.GetLocations())
		return nil
	})
	return n, err
}

// call logs one SDK operation and translates its failure into a typed error.
func (c *Client) call(ctx context.Context, op string, fields map[string]any, fn func(context.Context) error) error {
	logCtx := ctx
	if c.logger != nil {
		safe := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			safe[k] = redact(k, v)
		}
		safe["operation"] = op
		logCtx = c.logger.WithFields(ctx, safe)
		c.logger.Debug(logCtx, "square request")
	}

	if err := fn(ctx); err != nil {
		mapped := translateError(err, op)
		if c.logger != nil {
			c.logger.Error(logCtx, "square request failed", mapped)
		}
		return mapped
	}
	if c.logger != nil {
		c.logger.Info(logCtx, "square request succeeded")
	}
	return nil
}

func idempotencyKey(prefix, provided string) string {
	if key := strings.TrimSpace(provided); key != "" {
		return key
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "lm"
	}
	return prefix + "-" + uuid.NewString()
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
