package portfolio

import (
	"MomentumTracker/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes performance over a NAV history.
type Summary struct {
	Weeks               int
	StartNAV            float64
	EndNAV              float64
	PeakNAV             float64
	TotalReturnPct      float64
	MeanWeeklyReturnPct float64
	WeeklyVolatilityPct float64
	MaxDrawdownPct      float64
	WeeksInCash         int
}

// Summarize computes return, volatility and drawdown figures.
func Summarize(history []model.NAVPoint) Summary {
	var s Summary
	if len(history) == 0 {
		return s
	}

	navs := make([]float64, len(history))
	for i, p := range history {
		navs[i] = p.NAV
		if p.InCash {
			s.WeeksInCash++
		}
	}
	s.Weeks = len(history)
	s.StartNAV = navs[0]
	s.EndNAV = navs[len(navs)-1]
	s.PeakNAV = floats.Max(navs)
	if s.StartNAV > 0 {
		s.TotalReturnPct = (s.EndNAV/s.StartNAV - 1) * 100
	}

	if len(navs) > 1 {
		returns := make([]float64, 0, len(navs)-1)
		for i := 1; i < len(navs); i++ {
			if navs[i-1] > 0 {
				returns = append(returns, (navs[i]/navs[i-1]-1)*100)
			}
		}
		if len(returns) > 0 {
			s.MeanWeeklyReturnPct = stat.Mean(returns, nil)
		}
		if len(returns) > 1 {
			s.WeeklyVolatilityPct = stat.StdDev(returns, nil)
		}
	}

	peak := navs[0]
	for _, nav := range navs {
		if nav > peak {
			peak = nav
		}
		if peak > 0 {
			if dd := (peak - nav) / peak * 100; dd > s.MaxDrawdownPct {
				s.MaxDrawdownPct = dd
			}
		}
	}
	return s
}
