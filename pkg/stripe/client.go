package stripe

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/littlemirai-storefront/internal/payments"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// Secret and restricted key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

// Client holds the validated Stripe credentials. Resource calls go through
// the stripe-go package-level backends keyed by NewClient.
type Client struct {
	environment   string
	signingSecret string
}

// NewClient validates the configured credentials and keys the Stripe SDK.
// Missing or placeholder credentials and a key from the wrong environment
// come back as CONFIGURATION_ERROR.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	for label, value := range map[string]string{
		"stripe api key":        cfg.APIKey,
		"stripe webhook secret": cfg.Secret,
	} {
		if err := payments.RequireCredential(label, value); err != nil {
			return nil, err
		}
	}

	env := cfg.Environment()
	apiKey := strings.TrimSpace(cfg.APIKey)
	if err := checkKeyEnvironment(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: "littlemirai-storefront"})

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}
	return &Client{environment: env, signingSecret: strings.TrimSpace(cfg.Secret)}, nil
}

func checkKeyEnvironment(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment must be %q or %q", testEnv, liveEnv)
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeConfiguration,
		"stripe environment %q requires a key starting with %s", env, strings.Join(prefixes, " or "))
}

// Environment reports the Stripe environment in use (test or live).
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
