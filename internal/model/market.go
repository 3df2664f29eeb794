package model

import "time"

// TickerSpec is one row of the ticker universe.
type TickerSpec struct {
	Symbol string
	Name   string
	Region string
}

// PricePoint is a single weekly close.
type PricePoint struct {
	Time  time.Time
	Close float64
}

// PriceSeries holds the chronological weekly closes of one symbol.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Closes returns the close prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent point, or false when the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
