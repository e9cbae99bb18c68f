package shoppers

import (
	"context"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
)

// SweepJob evicts idle shoppers on each scheduled run.
type SweepJob struct {
	registry *Registry
	logg     *logger.Logger
	now      func() time.Time
}

// NewSweepJob wraps the registry sweep as a scheduled job.
func NewSweepJob(registry *Registry, logg *logger.Logger) *SweepJob {
	return &SweepJob{registry: registry, logg: logg, now: time.Now}
}

func (j *SweepJob) Name() string { return "shopper_sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	evicted := j.registry.Sweep(ctx, j.now())
	if evicted > 0 && j.logg != nil {
		j.logg.Info(j.logg.WithField(ctx, "evicted", evicted), "idle shoppers evicted")
	}
	return nil
}
