package strategy

import (
	"MomentumTracker/internal/calculator"
)

// Market filter reasons.
const (
	ReasonBenchmarkDowntrend   = "benchmark_ema_fast_below_slow"
	ReasonBenchmarkUnavailable = "benchmark_unavailable"
)

// MarketTrend is the benchmark reading behind the market filter.
type MarketTrend struct {
	FastEMA float64
	SlowEMA float64
}

// RiskOff reports whether the benchmark is in a downtrend.
func (m MarketTrend) RiskOff() bool {
	return m.FastEMA < m.SlowEMA
}

// EvaluateMarket computes the benchmark trend from weekly closes.
func EvaluateMarket(closes []float64, fast, slow int) (MarketTrend, error) {
	f, err := calculator.LatestEMA(closes, fast)
	if err != nil {
		return MarketTrend{}, err
	}
	s, err := calculator.LatestEMA(closes, slow)
	if err != nil {
		return MarketTrend{}, err
	}
	return MarketTrend{FastEMA: f, SlowEMA: s}, nil
}
