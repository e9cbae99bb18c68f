package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	squarewebhook "github.com/angelmondragon/littlemirai-storefront/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const squareSignatureHeader = "X-Square-Hmacsha256-Signature"

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error
}

type SquareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

// SquareWebhook verifies and dispatches Square payment events.
func SquareWebhook(svc SquareWebhookService, client SquareSigner, guard EventGuard, logg *logger.Logger) http.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "square webhooks not configured"))
			return
		}

		payload, err := readPayload(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		signature := strings.TrimSpace(r.Header.Get(squareSignatureHeader))
		switch {
		case signature == "":
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square signature missing"))
			return
		case !ValidSquareSignature(payload, client.NotificationURL(), client.SigningSecret(), signature):
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid square signature"))
			return
		}

		event, err := squarewebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		eventID := strings.TrimSpace(event.EventID)
		if eventID == "" {
			eventID = event.Data.ID
		}

		deliver(ctx, w, logg, guard, eventID, func(ctx context.Context) error {
			return svc.HandleEvent(ctx, event)
		})
	}
}

// ValidSquareSignature checks the base64 HMAC-SHA256 Square computes over the
// subscription's notification URL followed by the raw body.
func ValidSquareSignature(payload []byte, notificationURL, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
