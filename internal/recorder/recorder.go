package recorder

import (
	"time"

	"MomentumTracker/internal/model"
)

// RunSnapshot holds everything one weekly run produced.
type RunSnapshot struct {
	Scan        model.Scan
	State       model.PortfolioState
	Trades      []model.TradeRecord
	NAV         model.NAVPoint
	PreNAV      float64
	CashReasons []string
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	Date            time.Time
	Version         int
	NAV             float64
	WeeklyReturnPct float64
	Holdings        int
	Qualifying      int
	Failures        int
	InCash          bool
	CashReasons     string
}

// Recorder persists run history for analysis. It is a secondary sink: the
// CSV/JSON artifacts stay authoritative.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
