package model

// IndicatorSnapshot holds the MACD family values at the latest weekly close.
type IndicatorSnapshot struct {
	FastEMA   float64
	SlowEMA   float64
	MACD      float64 // FastEMA - SlowEMA
	Signal    float64 // EMA of the MACD series
	Histogram float64 // MACD - Signal
}
