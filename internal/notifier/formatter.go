package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/recorder"
)

// Report is the content of the message sent after a completed run.
type Report struct {
	Date        time.Time
	State       model.PortfolioState
	Trades      []model.TradeRecord
	NAV         model.NAVPoint
	Universe    int
	Failures    int
	CashReasons []string
}

// FormatRunReport formats a completed weekly run into a Telegram message.
func FormatRunReport(r Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Momentum Tracker</b> | %s\n\n", r.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("NAV: $%s (%+.2f%% w/w)\n", money(r.State.NAV), r.NAV.WeeklyReturnPct))
	b.WriteString(fmt.Sprintf("Qualifying: %d / %d", r.NAV.QualifyingCount, r.Universe))
	if r.Failures > 0 {
		b.WriteString(fmt.Sprintf(" (%d unusable)", r.Failures))
	}
	b.WriteString("\n")

	if r.State.InCash {
		b.WriteString("\n⚠️ <b>100% CASH</b>")
		if len(r.CashReasons) > 0 {
			b.WriteString(": " + html.EscapeString(strings.Join(r.CashReasons, ", ")))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("Holdings: %d, cash $%s\n", len(r.State.Holdings), money(r.State.Cash)))
	}

	if len(r.Trades) == 0 {
		b.WriteString("\nNo trades this week.\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("\n💱 <b>Trades (%d)</b>\n", len(r.Trades)))
	for _, t := range r.Trades {
		line := fmt.Sprintf("  %s %s %.4f @ %.4f", t.Action, html.EscapeString(t.Symbol), t.Shares, t.Price)
		if t.RealizedPnL != nil {
			line += fmt.Sprintf(" (P&amp;L %+.2f)", *t.RealizedPnL)
		}
		b.WriteString(line + " · " + t.Reason + "\n")
	}
	return b.String()
}

// FormatHoldings lists the open positions.
func FormatHoldings(s model.PortfolioState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Holdings</b> | as of %s\n\n", s.AsOf.Format("2006-01-02")))
	if len(s.Holdings) == 0 {
		b.WriteString("No open positions, 100% cash.\n")
		return b.String()
	}

	syms := make([]string, 0, len(s.Holdings))
	for sym := range s.Holdings {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	for _, sym := range syms {
		h := s.Holdings[sym]
		pnl := 0.0
		if h.CostBasis > 0 {
			pnl = (h.LastPrice/h.CostBasis - 1) * 100
		}
		b.WriteString(fmt.Sprintf("%s  $%s  %+.2f%%\n", html.EscapeString(sym), money(h.MarketValue(h.LastPrice)), pnl))
	}
	b.WriteString(fmt.Sprintf("\nCash: $%s\n", money(s.Cash)))
	return b.String()
}

// FormatNAV summarises the portfolio value and its track record.
func FormatNAV(s model.PortfolioState, sum portfolio.Summary) string {
	var b strings.Builder
	b.WriteString("💰 <b>NAV</b>\n\n")
	b.WriteString(fmt.Sprintf("Current: $%s (v%d, %s)\n", money(s.NAV), s.Version, s.AsOf.Format("2006-01-02")))
	if sum.Weeks > 0 {
		b.WriteString(fmt.Sprintf("Since inception: %+.2f%% over %d weeks\n", sum.TotalReturnPct, sum.Weeks))
		b.WriteString(fmt.Sprintf("Weekly volatility: %.2f%%\n", sum.WeeklyVolatilityPct))
		b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", sum.MaxDrawdownPct))
		b.WriteString(fmt.Sprintf("Weeks in cash: %d\n", sum.WeeksInCash))
	}
	return b.String()
}

// FormatHistory lists recent recorded runs.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No recorded runs yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		state := fmt.Sprintf("%d held", r.Holdings)
		if r.InCash {
			state = "cash"
		}
		b.WriteString(fmt.Sprintf("%s  $%s  %+.2f%%  q=%d  %s\n",
			r.Date.Format("2006-01-02"), money(r.NAV), r.WeeklyReturnPct, r.Qualifying, state))
	}
	return b.String()
}

// FormatRunFailure reports a run that aborted without writing anything.
func FormatRunFailure(date time.Time, err error) string {
	return fmt.Sprintf("❌ <b>Run failed</b> | %s\n\n%s\n\nPrevious artifacts were left untouched.",
		date.Format("2006-01-02"), html.EscapeString(err.Error()))
}

// money formats v with thousands separators and two decimals.
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
