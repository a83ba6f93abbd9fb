package execution

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

// awaitFill polls order status until the venue reports a terminal
// state. On timeout it falls back to the open-orders probe and
// classifies conservatively.
func (e *Executor) awaitFill(ctx context.Context, l *leg, orderID string, requested *big.Int) (*big.Int, types.OrderStatus) {
	start := time.Now()
	defer func() {
		FillWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	deadline := time.NewTimer(e.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	lastFilled := new(big.Int)
	attempt := 0

	for {
		attempt++
		status, filled, err := l.client.GetOrderStatus(ctx, orderID)
		switch {
		case err != nil:
			e.logger.Warn("order-status-check-failed",
				zap.String("order_id", orderID),
				zap.String("venue", string(l.protocol)),
				zap.Int("attempt", attempt),
				zap.Error(err))
		default:
			if filled != nil {
				lastFilled.Set(filled)
			}

			switch status {
			case types.OrderFilled:
				if filled == nil {
					// The venue reaped the order without a fill size;
					// a terminal FILLED means the full ask was taken.
					return new(big.Int).Set(requested), status
				}
				e.logger.Debug("order-filled",
					zap.String("order_id", orderID),
					zap.String("filled", types.FormatUsdt(lastFilled)),
					zap.Duration("waited", time.Since(start)))
				return lastFilled, status
			case types.OrderCancelled, types.OrderExpired:
				return lastFilled, status
			}

			e.logger.Debug("order-not-yet-filled",
				zap.String("order_id", orderID),
				zap.String("status", string(status)),
				zap.String("filled", types.FormatUsdt(lastFilled)),
				zap.Int("attempt", attempt))
		}

		select {
		case <-ctx.Done():
			e.logger.Warn("fill-wait-canceled",
				zap.String("order_id", orderID),
				zap.Error(ctx.Err()))
			return lastFilled, types.OrderUnknown
		case <-deadline.C:
			e.logger.Warn("fill-wait-timeout",
				zap.String("order_id", orderID),
				zap.String("venue", string(l.protocol)),
				zap.Duration("timeout", e.pollTimeout),
				zap.Int("attempts", attempt))
			return e.probeOpenOrders(ctx, l, orderID, lastFilled)
		case <-ticker.C:
		}
	}
}

// probeOpenOrders is the timeout fallback. A still-resting order gets a
// best-effort cancel; an order the venue no longer lists is classified
// CANCELLED rather than assumed filled.
func (e *Executor) probeOpenOrders(ctx context.Context, l *leg, orderID string, lastFilled *big.Int) (*big.Int, types.OrderStatus) {
	open, err := l.client.GetOpenOrders(ctx)
	if err != nil {
		e.logger.Warn("open-orders-probe-failed",
			zap.String("order_id", orderID),
			zap.String("venue", string(l.protocol)),
			zap.Error(err))
		return lastFilled, types.OrderCancelled
	}

	for _, o := range open {
		if o.OrderID != orderID {
			continue
		}
		if cancelErr := l.client.CancelOrder(ctx, orderID); cancelErr != nil {
			e.logger.Warn("resting-order-cancel-failed",
				zap.String("order_id", orderID),
				zap.Error(cancelErr))
		}
		return lastFilled, types.OrderCancelled
	}

	return lastFilled, types.OrderCancelled
}
