package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const maxWebhookBody = 1 << 16

// EventGuard deduplicates provider deliveries by event id.
type EventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

func readPayload(r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
	}
	return payload, nil
}

// deliver runs handle at most once per event id. A failed handle releases
// the mark so the provider's retry is processed again.
func deliver(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, guard EventGuard, eventID string, handle func(context.Context) error) {
	ctx = logg.WithField(ctx, "event_id", eventID)

	seen, err := guard.CheckAndMark(ctx, eventID)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if seen {
		logg.Debug(ctx, "duplicate webhook delivery skipped")
		responses.WriteSuccess(w, map[string]bool{"duplicate": true})
		return
	}

	if err := handle(ctx); err != nil {
		if relErr := guard.Delete(ctx, eventID); relErr != nil {
			logg.Warn(logg.WithField(ctx, "reason", relErr.Error()), "failed to release webhook mark")
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]bool{"received": true})
}
