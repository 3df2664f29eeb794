package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"MomentumTracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(date time.Time, version int, nav float64, inCash bool) *RunSnapshot {
	pnl := 3.5
	holdings := map[string]model.Holding{}
	if !inCash {
		holdings["AAPL"] = model.Holding{Symbol: "AAPL", Shares: 2, CostBasis: 100, LastPrice: 101, EntryDate: date}
	}
	return &RunSnapshot{
		Scan: model.Scan{Date: date, Records: []model.ScanRecord{
			{Symbol: "AAPL", Close: 101, Indicators: &model.IndicatorSnapshot{MACD: 1, Histogram: 0.2}, Qualifies: true},
			{Symbol: "BAD", Error: "no_data"},
		}},
		State: model.PortfolioState{Version: version, AsOf: date, NAV: nav, Cash: nav - 202, InCash: inCash, Holdings: holdings},
		Trades: []model.TradeRecord{
			{Date: date, Symbol: "MSFT", Action: model.ActionSell, Shares: 1, Price: 10, CostBasis: 6.5, RealizedPnL: &pnl, Reason: model.ReasonSignalOff},
			{Date: date, Symbol: "AAPL", Action: model.ActionBuy, Shares: 2, Price: 101, CostBasis: 101, Reason: model.ReasonEntry},
		},
		NAV:    model.NAVPoint{Date: date, NAV: nav, WeeklyReturnPct: 1.5, QualifyingCount: 1},
		PreNAV: nav,
	}
}

func TestSQLiteRecorder_RecordAndQuery(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	d1 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)
	require.NoError(t, r.RecordRun(snapshot(d1, 1, 1000, false)))

	cash := snapshot(d2, 2, 1010, true)
	cash.CashReasons = []string{"qualifying_below_minimum", "benchmark_unavailable"}
	require.NoError(t, r.RecordRun(cash))

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, d2, runs[0].Date)
	assert.Equal(t, 2, runs[0].Version)
	assert.True(t, runs[0].InCash)
	assert.Equal(t, "qualifying_below_minimum,benchmark_unavailable", runs[0].CashReasons)
	assert.Equal(t, 1, runs[1].Holdings)
	assert.Equal(t, 1, runs[1].Failures)
	assert.Equal(t, 1000.0, runs[1].NAV)

	var trades, records int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&trades))
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM scan_records WHERE macd IS NULL`).Scan(&records))
	assert.Equal(t, 4, trades)
	assert.Equal(t, 2, records)
}

func TestSQLiteRecorder_DuplicateDateRollsBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	d := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordRun(snapshot(d, 1, 1000, false)))
	assert.Error(t, r.RecordRun(snapshot(d, 2, 1000, false)))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&RunSnapshot{}))
	runs, err := r.RecentRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
