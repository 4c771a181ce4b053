// Package worker holds the background jobs started by the API process.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

// CartSweeper deletes carts that have not been touched for TTL.
type CartSweeper struct {
	store    store.Store
	ttl      time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func NewCartSweeper(s store.Store, ttl, interval time.Duration, m *metrics.Metrics, log *slog.Logger) *CartSweeper {
	if log == nil {
		log = slog.Default()
	}
	return &CartSweeper{
		store:    s,
		ttl:      ttl,
		interval: interval,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (w *CartSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("cart sweeper started",
		slog.Duration("ttl", w.ttl),
		slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("cart sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("cart sweep failed", slog.Any("err", err))
			}
		}
	}
}

// SweepOnce deletes every cart idle for longer than the TTL.
func (w *CartSweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.ttl)
	n, err := w.store.DeleteCartsIdleSince(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.metrics.Swept(n)
		w.log.Info("abandoned carts removed", slog.Int64("count", n), slog.Time("idle_since", cutoff))
	}
	return n, nil
}
