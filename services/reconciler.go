package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
)

// PendingOrderReconciler sweeps orders abandoned at checkout. An order
// left pending/pending longer than the TTL is cancelled so a late
// payment event cannot resurrect it.
type PendingOrderReconciler struct {
	orderRepo repository.OrderRepository
	ttl       time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

func NewPendingOrderReconciler(orderRepo repository.OrderRepository, ttl time.Duration, logger *zap.Logger) *PendingOrderReconciler {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return &PendingOrderReconciler{
		orderRepo: orderRepo,
		ttl:       ttl,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping on a ticker.
func (r *PendingOrderReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

func (r *PendingOrderReconciler) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-r.ttl)
	n, err := r.orderRepo.CancelStalePending(ctx, cutoff)
	if err != nil {
		r.logger.Error("Pending order sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("Cancelled stale pending orders", zap.Int64("count", n))
	}
}
