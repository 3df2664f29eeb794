package model

import "time"

// Holding is one open position of the model portfolio.
type Holding struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Region    string    `json:"region,omitempty"`
	Shares    float64   `json:"shares"`
	CostBasis float64   `json:"cost_basis"` // per-share purchase price
	LastPrice float64   `json:"last_price"`
	EntryDate time.Time `json:"entry_date"`
}

// MarketValue values the holding at price.
func (h Holding) MarketValue(price float64) float64 {
	return h.Shares * price
}

// PortfolioState is the persisted model portfolio. A rebalance never mutates
// a state in place; it returns the next Version.
type PortfolioState struct {
	Version       int                `json:"version"`
	AsOf          time.Time          `json:"as_of_date"`
	InceptionDate time.Time          `json:"inception_date"`
	Cash          float64            `json:"cash"`
	NAV           float64            `json:"nav"`
	InCash        bool               `json:"in_cash"`
	Holdings      map[string]Holding `json:"holdings"`
}

// Clone returns a deep copy of the state.
func (s PortfolioState) Clone() PortfolioState {
	out := s
	out.Holdings = make(map[string]Holding, len(s.Holdings))
	for k, v := range s.Holdings {
		out.Holdings[k] = v
	}
	return out
}

// TradeAction is the side of a simulated trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// Trade reasons.
const (
	ReasonSignalOff  = "signal_off"
	ReasonForcedExit = "forced_exit"
	ReasonCashRule   = "cash_rule"
	ReasonRebalance  = "rebalance"
	ReasonEntry      = "entry"
)

// TradeRecord is one entry of the append-only trade log.
type TradeRecord struct {
	Date        time.Time
	Symbol      string
	Name        string
	Action      TradeAction
	Shares      float64
	Price       float64
	CostBasis   float64
	RealizedPnL *float64 // set on SELL only
	Reason      string
}

// NAVPoint is one row of the NAV history.
type NAVPoint struct {
	Date            time.Time
	NAV             float64
	WeeklyReturnPct float64
	NumHoldings     int
	InCash          bool
	QualifyingCount int
}
