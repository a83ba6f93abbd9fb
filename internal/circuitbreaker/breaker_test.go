package circuitbreaker

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// Test New breaker creation
func TestNew(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid-config",
			config: &Config{
				DailyLossLimit: big.NewInt(50_000_000),
				Logger:         logger,
			},
			wantErr: false,
		},
		{
			name: "default-limit",
			config: &Config{
				Logger: logger,
			},
			wantErr: false,
		},
		{
			name:    "nil-config",
			config:  nil,
			wantErr: true,
			errMsg:  "config cannot be nil",
		},
		{
			name: "nil-logger",
			config: &Config{
				DailyLossLimit: big.NewInt(50_000_000),
			},
			wantErr: true,
			errMsg:  "logger cannot be nil",
		},
		{
			name: "zero-limit",
			config: &Config{
				DailyLossLimit: big.NewInt(0),
				Logger:         logger,
			},
			wantErr: true,
			errMsg:  "daily loss limit must be positive",
		},
		{
			name: "negative-limit",
			config: &Config{
				DailyLossLimit: big.NewInt(-1),
				Logger:         logger,
			},
			wantErr: true,
			errMsg:  "daily loss limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker, err := New(tt.config)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
					return
				}
				if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if !breaker.Allow() {
				t.Error("expected breaker to start armed")
			}

			status := breaker.GetStatus()
			if status.Losses.Sign() != 0 {
				t.Errorf("expected zero losses, got %s", status.Losses)
			}
			if status.Limit.Cmp(big.NewInt(50_000_000)) != 0 {
				t.Errorf("expected limit 50000000, got %s", status.Limit)
			}
		})
	}
}

// Test loss accumulation below the limit
func TestRecordLoss_BelowLimit(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(50_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordLoss(big.NewInt(10_000_000))
	breaker.RecordLoss(big.NewInt(15_000_000))

	if !breaker.Allow() {
		t.Error("expected breaker to stay armed below the limit")
	}
	if got := breaker.Losses(); got.Cmp(big.NewInt(25_000_000)) != 0 {
		t.Errorf("expected losses 25000000, got %s", got)
	}
}

// Test trip at exactly the limit
func TestRecordLoss_TripsAtLimit(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(50_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordLoss(big.NewInt(30_000_000))
	if !breaker.Allow() {
		t.Fatal("expected breaker armed at 30 of 50")
	}

	breaker.RecordLoss(big.NewInt(20_000_000))
	if breaker.Allow() {
		t.Error("expected breaker tripped at exactly the limit")
	}

	select {
	case ev := <-breaker.Events():
		if ev.Losses.Cmp(big.NewInt(50_000_000)) != 0 {
			t.Errorf("expected event losses 50000000, got %s", ev.Losses)
		}
		if ev.Limit.Cmp(big.NewInt(50_000_000)) != 0 {
			t.Errorf("expected event limit 50000000, got %s", ev.Limit)
		}
		if ev.TrippedAt.IsZero() {
			t.Error("expected a trip timestamp")
		}
	default:
		t.Error("expected a trip event")
	}

	status := breaker.GetStatus()
	if status.Allowed {
		t.Error("expected status to report tripped")
	}
	if status.TrippedAt.IsZero() {
		t.Error("expected status trip timestamp")
	}
}

// Test that further losses after a trip do not emit again
func TestRecordLoss_SingleEventPerTrip(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(10_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordLoss(big.NewInt(10_000_000))
	breaker.RecordLoss(big.NewInt(5_000_000))
	breaker.RecordLoss(big.NewInt(5_000_000))

	if got := breaker.Losses(); got.Cmp(big.NewInt(20_000_000)) != 0 {
		t.Errorf("expected losses 20000000, got %s", got)
	}

	<-breaker.Events()
	select {
	case <-breaker.Events():
		t.Error("expected a single event per trip")
	default:
	}
}

// Test RecordLoss with invalid values
func TestRecordLoss_InvalidValues(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(50_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordLoss(nil)
	breaker.RecordLoss(big.NewInt(0))
	breaker.RecordLoss(big.NewInt(-10_000_000))

	if got := breaker.Losses(); got.Sign() != 0 {
		t.Errorf("expected 0 losses after invalid inputs, got %s", got)
	}
	if !breaker.Allow() {
		t.Error("expected breaker to stay armed")
	}
}

// Test meter reset and re-arm at UTC midnight
func TestUTCDayReset(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(10_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	current := time.Date(2026, 8, 25, 23, 50, 0, 0, time.UTC)
	breaker.now = func() time.Time { return current }
	breaker.rollWindow()

	breaker.RecordLoss(big.NewInt(12_000_000))
	if breaker.Allow() {
		t.Fatal("expected breaker tripped before midnight")
	}

	// Ten minutes later it is still the same UTC day.
	current = current.Add(10*time.Minute - time.Second)
	if breaker.Allow() {
		t.Fatal("expected breaker to stay tripped within the day")
	}

	// Crossing midnight resets the meter and re-arms.
	current = current.Add(2 * time.Second)
	if !breaker.Allow() {
		t.Error("expected breaker re-armed after UTC midnight")
	}
	if got := breaker.Losses(); got.Sign() != 0 {
		t.Errorf("expected losses reset to 0, got %s", got)
	}

	status := breaker.GetStatus()
	if status.Day != "2026-08-26" {
		t.Errorf("expected day 2026-08-26, got %s", status.Day)
	}
	if !status.TrippedAt.IsZero() {
		t.Error("expected trip timestamp cleared after reset")
	}
}

// Test that a fresh day accumulates independently
func TestUTCDayReset_NewDayAccumulates(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(10_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	current := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	breaker.now = func() time.Time { return current }
	breaker.rollWindow()

	breaker.RecordLoss(big.NewInt(9_000_000))
	current = current.AddDate(0, 0, 1)

	breaker.RecordLoss(big.NewInt(9_000_000))
	if !breaker.Allow() {
		t.Error("expected yesterday's losses forgotten")
	}
	if got := breaker.Losses(); got.Cmp(big.NewInt(9_000_000)) != 0 {
		t.Errorf("expected losses 9000000, got %s", got)
	}
}

// Test Losses returns a copy
func TestLossesReturnsCopy(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(50_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordLoss(big.NewInt(5_000_000))

	got := breaker.Losses()
	got.SetInt64(999)

	if breaker.Losses().Cmp(big.NewInt(5_000_000)) != 0 {
		t.Error("expected internal meter unaffected by caller mutation")
	}
}

// Test concurrent access (race detector)
func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(1_000_000_000),
		Logger:         zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				breaker.RecordLoss(big.NewInt(1_000))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = breaker.Allow()
				_ = breaker.GetStatus()
			}
		}()
	}
	wg.Wait()

	if got := breaker.Losses(); got.Cmp(big.NewInt(200_000)) != 0 {
		t.Errorf("expected losses 200000, got %s", got)
	}
}

// Benchmark Allow (hot path)
func BenchmarkAllow(b *testing.B) {
	breaker, err := New(&Config{
		DailyLossLimit: big.NewInt(50_000_000),
		Logger:         zaptest.NewLogger(b),
	})
	if err != nil {
		b.Fatalf("failed to create breaker: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = breaker.Allow()
	}
}
