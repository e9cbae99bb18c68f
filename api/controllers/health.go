package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/api/responses"
	"github.com/angelmondragon/littlemirai-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/littlemirai-storefront/pkg/errors"
	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

const (
	envHeader        = "X-Storefront-Env"
	readinessTimeout = 2 * time.Second
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GatewayStatus reports the hosted payment provider state.
type GatewayStatus interface {
	Name() string
	Ready() bool
	Configured() error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady fails when the catalog database or the idempotency store is
// unreachable. Gateway state is reported but does not fail readiness: cash on
// delivery keeps working while the provider loads.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger, gateway GatewayStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed error
		for name, p := range map[string]Pinger{"database": dbPinger, "redis": redisPinger} {
			if p == nil {
				checks[name] = "disabled"
				continue
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unreachable").
					WithDetails(map[string]any{"checks": checks})
				continue
			}
			checks[name] = "up"
		}

		if gateway != nil {
			switch {
			case gateway.Configured() != nil:
				checks["gateway"] = "unconfigured"
			case gateway.Ready():
				checks["gateway"] = "ready"
			default:
				checks["gateway"] = "loading"
			}
			checks["gateway_provider"] = gateway.Name()
		}

		if failed != nil {
			responses.WriteError(ctx, logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
