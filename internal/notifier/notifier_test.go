package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/portfolio"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func TestFormatRunReport(t *testing.T) {
	pnl := -12.5
	msg := FormatRunReport(Report{
		Date: reportDate,
		State: model.PortfolioState{NAV: 101234.5, Holdings: map[string]model.Holding{
			"AAPL": {Symbol: "AAPL", Shares: 1, LastPrice: 100},
		}},
		NAV:      model.NAVPoint{WeeklyReturnPct: 1.23, QualifyingCount: 11},
		Universe: 40,
		Failures: 2,
		Trades: []model.TradeRecord{
			{Symbol: "MSFT", Action: model.ActionSell, Shares: 2, Price: 10, RealizedPnL: &pnl, Reason: model.ReasonSignalOff},
			{Symbol: "AAPL", Action: model.ActionBuy, Shares: 1, Price: 100, Reason: model.ReasonEntry},
		},
	})

	assert.Contains(t, msg, "2025-01-10")
	assert.Contains(t, msg, "$101,234.50 (+1.23% w/w)")
	assert.Contains(t, msg, "Qualifying: 11 / 40 (2 unusable)")
	assert.Contains(t, msg, "SELL MSFT 2.0000 @ 10.0000 (P&amp;L -12.50) · signal_off")
	assert.Contains(t, msg, "BUY AAPL")
	assert.NotContains(t, msg, "CASH")
}

func TestFormatRunReport_Cash(t *testing.T) {
	msg := FormatRunReport(Report{
		Date:        reportDate,
		State:       model.PortfolioState{NAV: 99000, Cash: 99000, InCash: true},
		CashReasons: []string{"qualifying_below_minimum"},
	})
	assert.Contains(t, msg, "100% CASH</b>: qualifying_below_minimum")
	assert.Contains(t, msg, "No trades this week.")
}

func TestFormatHoldingsAndNAV(t *testing.T) {
	s := model.PortfolioState{
		Version: 4, AsOf: reportDate, NAV: 2500, Cash: 0,
		Holdings: map[string]model.Holding{
			"B&B": {Symbol: "B&B", Shares: 10, CostBasis: 100, LastPrice: 110},
			"AAA": {Symbol: "AAA", Shares: 20, CostBasis: 70, LastPrice: 70},
		},
	}
	h := FormatHoldings(s)
	assert.Contains(t, h, "B&amp;B  $1,100.00  +10.00%")
	assert.Less(t, strings.Index(h, "AAA"), strings.Index(h, "B&amp;B"))

	assert.Contains(t, FormatHoldings(model.PortfolioState{}), "100% cash")

	n := FormatNAV(s, portfolio.Summary{Weeks: 3, TotalReturnPct: 2.5, MaxDrawdownPct: 1})
	assert.Contains(t, n, "$2,500.00 (v4, 2025-01-10)")
	assert.Contains(t, n, "+2.50% over 3 weeks")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", money(0))
	assert.Equal(t, "999.99", money(999.99))
	assert.Equal(t, "1,000.00", money(1000))
	assert.Equal(t, "9,090.91", money(9090.909))
	assert.Equal(t, "-1,234,567.10", money(-1234567.1))
}

func TestFormatRunFailure(t *testing.T) {
	msg := FormatRunFailure(reportDate, errors.New("portfolio state: nav mismatch <bad>"))
	assert.Contains(t, msg, "nav mismatch &lt;bad&gt;")
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "", zerolog.Nop())
	n.BaseURL = srv.URL
	n.backoff = func(int) time.Duration { return time.Millisecond }

	require.NoError(t, n.Notify(context.Background(), "hello"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestTelegramNotifier_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "", zerolog.Nop())
	n.BaseURL = srv.URL
	n.backoff = func(int) time.Duration { return time.Millisecond }

	err := n.SendWithRetry(context.Background(), "hello", 1)
	assert.ErrorContains(t, err, "all 2 retries exhausted")
	assert.ErrorContains(t, err, "status 401")
}
