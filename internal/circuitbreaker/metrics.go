package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerAllowed indicates whether the breaker allows trade execution.
	BreakerAllowed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_breaker_allowed",
		Help: "Whether the daily loss breaker allows trade execution (1=allowed, 0=tripped)",
	})

	// DailyLossesUsdt tracks realized losses accumulated in the current UTC day.
	DailyLossesUsdt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_breaker_daily_losses_usdt",
		Help: "Realized losses accumulated in the current UTC day in USDT",
	})

	// DailyLossLimitUsdt tracks the configured daily loss limit.
	DailyLossLimitUsdt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prophit_breaker_daily_loss_limit_usdt",
		Help: "Configured daily loss limit in USDT",
	})

	// BreakerTripsTotal tracks the number of times the breaker tripped.
	BreakerTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prophit_breaker_trips_total",
		Help: "Total number of times the daily loss breaker tripped",
	})
)
