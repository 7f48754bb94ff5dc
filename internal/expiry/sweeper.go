// Package expiry provides background housekeeping for perishable products.
package expiry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kivumart/kivumart-api/internal/domain/product"
)

// Sweeper periodically flags products past their expiry date as expired
// and unavailable.
type Sweeper struct {
	products product.Repository
	lg       *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(products product.Repository, interval time.Duration, lg *zap.Logger) *Sweeper {
	return &Sweeper{
		products: products,
		lg:       lg,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a ticker until ctx is cancelled. An initial sweep happens
// immediately so restarts do not delay housekeeping by a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.products.MarkExpired(ctx, s.now())
	if err != nil {
		s.lg.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.lg.Info("expired products marked unavailable", zap.Int64("count", n))
	}
}
