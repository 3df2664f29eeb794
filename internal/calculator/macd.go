package calculator

import (
	"errors"
	"fmt"
	"math"

	"MomentumTracker/internal/model"
)

// ErrInsufficientData is returned when a series is too short for the
// requested indicator. Callers treat the ticker as unusable for the run.
var ErrInsufficientData = errors.New("insufficient data")

// MACDConfig holds the smoothing windows, in periods.
type MACDConfig struct {
	Fast   int `yaml:"fast_period"`
	Slow   int `yaml:"slow_period"`
	Signal int `yaml:"signal_period"`
}

// DefaultMACDConfig returns the classic 12/26/9 setup.
func DefaultMACDConfig() MACDConfig {
	return MACDConfig{Fast: 12, Slow: 26, Signal: 9}
}

// Validate checks the windows are usable.
func (c MACDConfig) Validate() error {
	if c.Fast <= 0 || c.Slow <= 0 || c.Signal <= 0 {
		return errors.New("macd periods must be positive")
	}
	if c.Fast >= c.Slow {
		return fmt.Errorf("fast period %d must be shorter than slow period %d", c.Fast, c.Slow)
	}
	return nil
}

// MinPoints is the series length required for a latest snapshot.
func (c MACDConfig) MinPoints() int {
	return c.Fast + c.Slow + c.Signal - 2
}

// seriesPoints is the first length at which the signal line is defined.
func (c MACDConfig) seriesPoints() int {
	return c.Slow + c.Signal - 1
}

// MACDSeries holds the full indicator series aligned with the input closes.
// Undefined leading values are NaN.
type MACDSeries struct {
	FastEMA   []float64
	SlowEMA   []float64
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// At returns the snapshot at index i.
func (s *MACDSeries) At(i int) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		FastEMA:   s.FastEMA[i],
		SlowEMA:   s.SlowEMA[i],
		MACD:      s.MACD[i],
		Signal:    s.Signal[i],
		Histogram: s.Histogram[i],
	}
}

// Latest returns the snapshot at the last index.
func (s *MACDSeries) Latest() model.IndicatorSnapshot {
	return s.At(len(s.MACD) - 1)
}

// CalculateMACDSeries computes fast/slow EMAs, the MACD line, its signal line
// and the histogram over the whole series.
func CalculateMACDSeries(closes []float64, cfg MACDConfig) (*MACDSeries, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(closes) < cfg.seriesPoints() {
		return nil, fmt.Errorf("%w: have %d closes, need %d", ErrInsufficientData, len(closes), cfg.seriesPoints())
	}

	fast, err := EMA(closes, cfg.Fast)
	if err != nil {
		return nil, fmt.Errorf("fast ema: %w", err)
	}
	slow, err := EMA(closes, cfg.Slow)
	if err != nil {
		return nil, fmt.Errorf("slow ema: %w", err)
	}

	n := len(closes)
	start := cfg.Slow - 1 // first index where both EMAs exist
	macd := nanSlice(n)
	for i := start; i < n; i++ {
		macd[i] = fast[i] - slow[i]
	}

	tail, err := EMA(macd[start:], cfg.Signal)
	if err != nil {
		return nil, fmt.Errorf("signal ema: %w", err)
	}
	signal := nanSlice(n)
	copy(signal[start:], tail)

	hist := nanSlice(n)
	for i := start; i < n; i++ {
		hist[i] = macd[i] - signal[i]
	}

	return &MACDSeries{
		FastEMA:   fast,
		SlowEMA:   slow,
		MACD:      macd,
		Signal:    signal,
		Histogram: hist,
	}, nil
}

// CalculateMACD returns the indicator snapshot at the latest close.
// Requires at least cfg.MinPoints() closes.
func CalculateMACD(closes []float64, cfg MACDConfig) (model.IndicatorSnapshot, error) {
	if err := cfg.Validate(); err != nil {
		return model.IndicatorSnapshot{}, err
	}
	if len(closes) < cfg.MinPoints() {
		return model.IndicatorSnapshot{}, fmt.Errorf("%w: have %d closes, need %d", ErrInsufficientData, len(closes), cfg.MinPoints())
	}
	series, err := CalculateMACDSeries(closes, cfg)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}
	return series.Latest(), nil
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
