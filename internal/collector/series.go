package collector

import (
	"fmt"
	"math"
	"sort"

	"MomentumTracker/internal/model"
)

// ValidateSeries sorts the series chronologically and rejects duplicate
// timestamps and non-positive or non-finite closes.
func ValidateSeries(series model.PriceSeries) (model.PriceSeries, error) {
	if len(series.Points) == 0 {
		return series, ErrEmptySeries
	}
	points := make([]model.PricePoint, len(series.Points))
	copy(points, series.Points)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	for i, p := range points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return series, fmt.Errorf("invalid close %v at %s", p.Close, p.Time.Format("2006-01-02"))
		}
		if i > 0 && p.Time.Equal(points[i-1].Time) {
			return series, fmt.Errorf("duplicate timestamp %s", p.Time.Format("2006-01-02"))
		}
	}
	return model.PriceSeries{Symbol: series.Symbol, Points: points}, nil
}
