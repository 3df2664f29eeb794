package portfolio

import (
	"sort"

	"MomentumTracker/internal/model"
)

// ReplayResult is the outcome of folding historical scans through the engine.
type ReplayResult struct {
	State   model.PortfolioState
	Trades  []model.TradeRecord
	History []model.NAVPoint
}

// NAVPointFor builds the history row for a rebalance that started from prev.
func NAVPointFor(prev model.PortfolioState, res Result) model.NAVPoint {
	var ret float64
	if prev.NAV > 0 {
		ret = (res.State.NAV/prev.NAV - 1) * 100
	}
	return model.NAVPoint{
		Date:            res.State.AsOf,
		NAV:             res.State.NAV,
		WeeklyReturnPct: ret,
		NumHoldings:     len(res.State.Holdings),
		InCash:          res.State.InCash,
		QualifyingCount: res.Qualifying,
	}
}

// Replay folds scans, in date order, over initial. gate may be nil.
func Replay(initial model.PortfolioState, scans []model.Scan, engine *Engine, gate func(model.Scan) Gate) ReplayResult {
	ordered := make([]model.Scan, len(scans))
	copy(ordered, scans)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	out := ReplayResult{State: initial}
	for _, scan := range ordered {
		var g Gate
		if gate != nil {
			g = gate(scan)
		}
		res := engine.Rebalance(out.State, scan, g)
		out.History = append(out.History, NAVPointFor(out.State, res))
		out.Trades = append(out.Trades, res.Trades...)
		out.State = res.State
	}
	return out
}
