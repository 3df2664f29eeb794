package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/strategy"

	"gonum.org/v1/gonum/floats"
)

// Cash reasons produced by the engine itself.
const (
	CashTooFewQualifiers = "qualifying_below_minimum"
	CashNoCapital        = "no_capital"
)

// Config holds the rebalance parameters.
type Config struct {
	StartingNAV   float64 `yaml:"starting_nav"`
	MinQualifiers int     `yaml:"min_qualifiers"`
	MaxPositions  int     `yaml:"max_positions"` // 0 = hold every qualifier
	Tolerance     float64 `yaml:"tolerance"`     // relative
}

// DefaultConfig returns the standard weekly rules.
func DefaultConfig() Config {
	return Config{
		StartingNAV:   100000,
		MinQualifiers: 10,
		Tolerance:     1e-6,
	}
}

// Validate checks the rebalance parameters.
func (c Config) Validate() error {
	switch {
	case c.StartingNAV <= 0 || math.IsNaN(c.StartingNAV) || math.IsInf(c.StartingNAV, 0):
		return &model.ConfigError{Field: "portfolio.starting_nav", Err: fmt.Errorf("must be positive, got %v", c.StartingNAV)}
	case c.MinQualifiers < 1:
		return &model.ConfigError{Field: "portfolio.min_qualifiers", Err: fmt.Errorf("must be at least 1, got %d", c.MinQualifiers)}
	case c.MaxPositions < 0:
		return &model.ConfigError{Field: "strategy.max_positions", Err: errors.New("must not be negative")}
	case c.Tolerance <= 0 || c.Tolerance >= 1:
		return &model.ConfigError{Field: "portfolio.tolerance", Err: fmt.Errorf("must be in (0, 1), got %v", c.Tolerance)}
	}
	return nil
}

// Gate carries risk-off reasons decided outside the scan, e.g. a market filter.
// Any reason forces the portfolio to cash.
type Gate struct {
	Reasons []string
}

// Result is the outcome of one rebalance.
type Result struct {
	State       model.PortfolioState
	Trades      []model.TradeRecord // SELLs then BUYs, each by symbol
	PreNAV      float64
	Qualifying  int
	CashReasons []string
}

// Sells returns the number of SELL trades.
func (r Result) Sells() int {
	n := 0
	for _, t := range r.Trades {
		if t.Action == model.ActionSell {
			n++
		}
	}
	return n
}

// Engine applies the weekly equal-weight rules to a portfolio state.
// It performs no I/O and never fails: bad data on a symbol degrades that
// position only.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine parameters.
func (e *Engine) Config() Config { return e.cfg }

// Rebalance derives the next state from prev and the scan. prev is not modified.
func (e *Engine) Rebalance(prev model.PortfolioState, scan model.Scan, gate Gate) Result {
	date := scan.Date
	records := scan.BySymbol()

	held := sortedSymbols(prev.Holdings)
	marks := make(map[string]float64, len(held))
	forced := make(map[string]bool)
	values := make([]float64, 0, len(held))
	for _, sym := range held {
		h := prev.Holdings[sym]
		rec, ok := records[sym]
		if ok && rec.Indicators != nil && rec.Close > 0 {
			marks[sym] = rec.Close
		} else {
			forced[sym] = true
			marks[sym] = lastKnownClose(h, rec, ok)
		}
		values = append(values, h.Shares*marks[sym])
	}
	preNAV := prev.Cash + floats.Sum(values)

	var qualifying []model.ScanRecord
	for _, r := range scan.Qualifying() {
		if r.Close > 0 {
			qualifying = append(qualifying, r)
		}
	}

	res := Result{PreNAV: preNAV, Qualifying: len(qualifying)}
	res.CashReasons = append(res.CashReasons, gate.Reasons...)
	if len(qualifying) < e.cfg.MinQualifiers || len(qualifying) == 0 {
		res.CashReasons = append(res.CashReasons, CashTooFewQualifiers)
	}
	if preNAV <= 0 {
		res.CashReasons = append(res.CashReasons, CashNoCapital)
	}

	next := prev.Clone()
	next.Version = prev.Version + 1
	next.AsOf = date
	next.Holdings = make(map[string]model.Holding)

	if len(res.CashReasons) > 0 {
		for _, sym := range held {
			reason := model.ReasonCashRule
			if forced[sym] {
				reason = model.ReasonForcedExit
			}
			res.Trades = append(res.Trades, sellTrade(date, prev.Holdings[sym], marks[sym], reason))
		}
		next.Cash = preNAV
		next.NAV = preNAV
		next.InCash = true
		res.State = next
		return res
	}

	targets := qualifying
	if e.cfg.MaxPositions > 0 && len(targets) > e.cfg.MaxPositions {
		targets = strategy.Rank(targets)[:e.cfg.MaxPositions]
	}
	inTarget := make(map[string]bool, len(targets))
	for _, t := range targets {
		inTarget[t.Symbol] = true
	}
	weight := preNAV / float64(len(targets))

	var sells, buys []model.TradeRecord
	for _, sym := range held {
		if inTarget[sym] {
			continue
		}
		reason := model.ReasonSignalOff
		if forced[sym] {
			reason = model.ReasonForcedExit
		}
		sells = append(sells, sellTrade(date, prev.Holdings[sym], marks[sym], reason))
	}

	invested := make([]float64, 0, len(targets))
	for _, t := range targets {
		shares := weight / t.Close
		h, ok := prev.Holdings[t.Symbol]
		switch {
		case ok && e.sameShares(h.Shares, shares):
			h.LastPrice = t.Close
			next.Holdings[t.Symbol] = h
		case ok:
			sells = append(sells, sellTrade(date, h, t.Close, model.ReasonRebalance))
			buys = append(buys, buyTrade(date, t, shares, model.ReasonRebalance))
			next.Holdings[t.Symbol] = model.Holding{
				Symbol: t.Symbol, Name: t.Name, Region: t.Region,
				Shares: shares, CostBasis: t.Close, LastPrice: t.Close,
				EntryDate: h.EntryDate,
			}
		default:
			buys = append(buys, buyTrade(date, t, shares, model.ReasonEntry))
			next.Holdings[t.Symbol] = model.Holding{
				Symbol: t.Symbol, Name: t.Name, Region: t.Region,
				Shares: shares, CostBasis: t.Close, LastPrice: t.Close,
				EntryDate: date,
			}
		}
		invested = append(invested, next.Holdings[t.Symbol].MarketValue(t.Close))
	}

	sortTrades(sells)
	sortTrades(buys)
	res.Trades = append(sells, buys...)

	total := floats.Sum(invested)
	next.Cash = preNAV - total
	if math.Abs(next.Cash) <= e.tolerance(preNAV) {
		next.Cash = 0
	}
	next.NAV = next.Cash + total
	next.InCash = false
	res.State = next
	return res
}

func (e *Engine) sameShares(current, target float64) bool {
	return math.Abs(current-target) <= e.cfg.Tolerance*math.Abs(target)
}

func (e *Engine) tolerance(scale float64) float64 {
	return e.cfg.Tolerance * math.Max(1, math.Abs(scale))
}

// lastKnownClose marks a holding whose scan record is unusable.
func lastKnownClose(h model.Holding, rec model.ScanRecord, ok bool) float64 {
	switch {
	case ok && rec.Close > 0:
		return rec.Close
	case h.LastPrice > 0:
		return h.LastPrice
	default:
		return h.CostBasis
	}
}

func sellTrade(date time.Time, h model.Holding, price float64, reason string) model.TradeRecord {
	pnl := h.Shares * (price - h.CostBasis)
	return model.TradeRecord{
		Date:        date,
		Symbol:      h.Symbol,
		Name:        h.Name,
		Action:      model.ActionSell,
		Shares:      h.Shares,
		Price:       price,
		CostBasis:   h.CostBasis,
		RealizedPnL: &pnl,
		Reason:      reason,
	}
}

func buyTrade(date time.Time, r model.ScanRecord, shares float64, reason string) model.TradeRecord {
	return model.TradeRecord{
		Date:      date,
		Symbol:    r.Symbol,
		Name:      r.Name,
		Action:    model.ActionBuy,
		Shares:    shares,
		Price:     r.Close,
		CostBasis: r.Close,
		Reason:    reason,
	}
}

func sortTrades(trades []model.TradeRecord) {
	sort.Slice(trades, func(i, j int) bool { return trades[i].Symbol < trades[j].Symbol })
}

func sortedSymbols(holdings map[string]model.Holding) []string {
	out := make([]string, 0, len(holdings))
	for sym := range holdings {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
