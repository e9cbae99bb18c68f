package payments

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/littlemirai-storefront/pkg/logger"
	"github.com/sethvargo/go-retry"
)

// WarmupFunc performs one cheap authenticated call against the provider.
type WarmupFunc func(ctx context.Context) error

// LoaderOptions tunes the warm-up backoff.
type LoaderOptions struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Loader loads the provider client in the background and flips Ready once a
// warm-up call succeeds. Until then gateway methods are reported unavailable.
type Loader struct {
	name   string
	warmup WarmupFunc
	opts   LoaderOptions
	logg   *logger.Logger

	ready     atomic.Bool
	startOnce sync.Once
	done      chan struct{}
}

func NewLoader(name string, warmup WarmupFunc, opts LoaderOptions, logg *logger.Logger) *Loader {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Loader{
		name:   name,
		warmup: warmup,
		opts:   opts,
		logg:   logg,
		done:   make(chan struct{}),
	}
}

// Start launches the warm-up loop once. It stops on success or when ctx ends.
func (l *Loader) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)
	if l.warmup == nil {
		l.ready.Store(true)
		return
	}

	ctx = l.logg.WithField(ctx, "gateway", l.name)
	backoff := retry.WithCappedDuration(l.opts.MaxDelay, retry.NewExponential(l.opts.BaseDelay))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := l.warmup(ctx); err != nil {
			l.logg.Warn(l.logg.WithFields(ctx, map[string]any{"attempt": attempt, "error": err.Error()}), "payment gateway warm-up failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		l.logg.Error(ctx, "payment gateway never became ready", err)
		return
	}

	l.ready.Store(true)
	l.logg.Info(l.logg.WithField(ctx, "attempts", attempt), "payment gateway ready")
}

func (l *Loader) Ready() bool {
	return l.ready.Load()
}

// Wait blocks until the loop exits or ctx ends and reports readiness.
func (l *Loader) Wait(ctx context.Context) bool {
	select {
	case <-l.done:
	case <-ctx.Done():
	}
	return l.Ready()
}
