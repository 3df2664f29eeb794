package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// EMA computes the exponential moving average series of values.
// The first defined value sits at index period-1 and is the simple average of
// the first period values; earlier indices are NaN. α = 2/(period+1).
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}
	out := talib.Ema(values, period)
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out, nil
}

// LatestEMA returns the last value of the EMA series.
func LatestEMA(values []float64, period int) (float64, error) {
	series, err := EMA(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
