package collector

import (
	"sort"

	"MomentumTracker/internal/model"
)

// aggregateDailyToWeekly keeps the last close of every ISO week.
func aggregateDailyToWeekly(daily []model.PricePoint) []model.PricePoint {
	if len(daily) == 0 {
		return nil
	}
	sorted := make([]model.PricePoint, len(daily))
	copy(sorted, daily)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var weekly []model.PricePoint
	week := sorted[0]
	for _, d := range sorted[1:] {
		y1, w1 := week.Time.ISOWeek()
		y2, w2 := d.Time.ISOWeek()
		if y1 != y2 || w1 != w2 {
			weekly = append(weekly, week)
		}
		week = d
	}
	return append(weekly, week)
}

// trimWeeks keeps at most the last n points.
func trimWeeks(points []model.PricePoint, n int) []model.PricePoint {
	if n > 0 && len(points) > n {
		return points[len(points)-n:]
	}
	return points
}

// yahooRange maps a lookback in weeks to a Yahoo range/period string.
func yahooRange(weeks int) string {
	switch {
	case weeks <= 26:
		return "6mo"
	case weeks <= 52:
		return "1y"
	case weeks <= 104:
		return "2y"
	default:
		return "5y"
	}
}
