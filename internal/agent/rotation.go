package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// rotationLoop periodically sweeps resting venue orders so capital
// locked behind stale quotes rotates back into the balance.
func (a *Agent) rotationLoop(ctx context.Context) {
	a.logger.Info("yield-rotation-enabled",
		zap.Duration("interval", a.rotationInterval),
		zap.Duration("order-expiration", a.orderExpiration),
		zap.Int("venues", len(a.venues)))

	ticker := time.NewTicker(a.rotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.rotateStaleOrders(ctx)
		}
	}
}

// rotateStaleOrders cancels resting orders older than the expiration
// window on every venue. Orders without a creation timestamp are left
// alone; their age is unknowable.
func (a *Agent) rotateStaleOrders(ctx context.Context) {
	cutoff := time.Now().Add(-a.orderExpiration).UnixMilli()

	for _, venue := range a.venues {
		if venue == nil {
			continue
		}
		name := string(venue.Protocol())

		orders, err := venue.GetOpenOrders(ctx)
		if err != nil {
			a.logger.Warn("open-orders-probe-failed",
				zap.String("venue", name),
				zap.Error(err))
			continue
		}

		cancelled := 0
		for _, o := range orders {
			if o.CreatedAt == 0 {
				a.logger.Debug("skipping-order-without-timestamp",
					zap.String("venue", name),
					zap.String("order-id", o.OrderID))
				continue
			}
			if o.CreatedAt > cutoff {
				continue
			}

			if err := venue.CancelOrder(ctx, o.OrderID); err != nil {
				a.logger.Warn("stale-order-cancel-failed",
					zap.String("venue", name),
					zap.String("order-id", o.OrderID),
					zap.Error(err))
				continue
			}
			cancelled++
			StaleOrdersCancelledTotal.WithLabelValues(name).Inc()
		}

		if cancelled > 0 {
			a.logger.Info("stale-orders-rotated",
				zap.String("venue", name),
				zap.Int("cancelled", cancelled),
				zap.Int("resting", len(orders)))
		}
	}
}
