package agent

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/vaibhav0806/prophit-sub001/internal/execution"
	"github.com/vaibhav0806/prophit-sub001/pkg/types"
)

type fakeVenue struct {
	protocol types.Protocol

	mu        sync.Mutex
	open      []types.OpenOrder
	openErr   error
	cancelErr map[string]error
	cancelled []string
}

func (f *fakeVenue) Protocol() types.Protocol { return f.protocol }

func (f *fakeVenue) PlaceOrder(_ context.Context, _ *types.OrderParams) (*types.PlaceResult, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeVenue) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.cancelErr[orderID]; ok {
		return err
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeVenue) GetOrderStatus(_ context.Context, _ string) (types.OrderStatus, *big.Int, error) {
	return types.OrderUnknown, nil, fmt.Errorf("not used")
}

func (f *fakeVenue) GetOpenOrders(_ context.Context) ([]types.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.open, nil
}

func restingOrder(id string, age time.Duration) types.OpenOrder {
	createdAt := int64(0)
	if age >= 0 {
		createdAt = time.Now().Add(-age).UnixMilli()
	}
	return types.OpenOrder{
		OrderID:   id,
		MarketID:  "pm-1",
		TokenID:   "pm-1-yes",
		Side:      types.SideBuy,
		Price:     big.NewInt(550_000_000_000_000_000),
		Shares:    big.NewInt(10_000_000),
		CreatedAt: createdAt,
	}
}

func TestRotateCancelsOnlyExpiredOrders(t *testing.T) {
	venue := &fakeVenue{
		protocol: types.ProtocolPredict,
		open: []types.OpenOrder{
			restingOrder("stale-1", 10*time.Minute),
			restingOrder("fresh-1", time.Minute),
			restingOrder("ageless", -1),
			restingOrder("stale-2", 6*time.Minute),
		},
	}

	h := newHarness(t, func(c *Config) {
		c.Venues = []execution.Client{venue}
		c.YieldRotation = true
		c.OrderExpiration = 5 * time.Minute
	})

	h.agent.rotateStaleOrders(context.Background())

	if len(venue.cancelled) != 2 {
		t.Fatalf("cancelled = %v, want stale-1 and stale-2", venue.cancelled)
	}
	want := map[string]bool{"stale-1": true, "stale-2": true}
	for _, id := range venue.cancelled {
		if !want[id] {
			t.Fatalf("unexpected cancel of %s", id)
		}
	}
}

func TestRotateToleratesVenueFailures(t *testing.T) {
	broken := &fakeVenue{
		protocol: types.ProtocolPredict,
		openErr:  fmt.Errorf("venue unreachable"),
	}
	flaky := &fakeVenue{
		protocol: types.ProtocolProbable,
		open: []types.OpenOrder{
			restingOrder("stale-1", 10*time.Minute),
			restingOrder("stale-2", 10*time.Minute),
		},
		cancelErr: map[string]error{"stale-1": fmt.Errorf("already filled")},
	}

	h := newHarness(t, func(c *Config) {
		c.Venues = []execution.Client{broken, flaky}
		c.YieldRotation = true
		c.OrderExpiration = 5 * time.Minute
	})

	h.agent.rotateStaleOrders(context.Background())

	if len(flaky.cancelled) != 1 || flaky.cancelled[0] != "stale-2" {
		t.Fatalf("cancelled = %v, want only stale-2", flaky.cancelled)
	}
}

func TestRotationLoopRunsInsideRun(t *testing.T) {
	venue := &fakeVenue{
		protocol: types.ProtocolPredict,
		open:     []types.OpenOrder{restingOrder("stale-1", 10*time.Minute)},
	}

	h := newHarness(t, func(c *Config) {
		c.Venues = []execution.Client{venue}
		c.YieldRotation = true
		c.OrderExpiration = 5 * time.Minute
		c.RotationInterval = 20 * time.Millisecond
		c.ScanInterval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.agent.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		venue.mu.Lock()
		n := len(venue.cancelled)
		venue.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("rotation never swept the stale order")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
