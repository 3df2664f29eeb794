package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/store"
	"MomentumTracker/internal/strategy"
)

//go:embed index.html.tmpl
var indexTemplate string

var tmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"money":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"price":  func(v float64) string { return fmt.Sprintf("%.4f", v) },
	"pct":    func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"score":  func(v float64) string { return fmt.Sprintf("%.6f", v) },
	"date":   func(t time.Time) string { return t.Format("2006-01-02") },
	"signed": func(v float64) bool { return v >= 0 },
}).Parse(indexTemplate))

// Data is what the dashboard shows.
type Data struct {
	Date        time.Time
	StartingNAV float64
	State       model.PortfolioState
	Scan        model.Scan
	History     []model.NAVPoint
	Trades      []model.TradeRecord
	CashReasons []string
	Generated   time.Time
}

type holdingRow struct {
	model.Holding
	Value  float64
	PnLPct float64
}

type view struct {
	Data
	TotalReturnPct float64
	LatestReturn   float64
	Summary        portfolio.Summary
	Holdings       []holdingRow
	ScanRows       []model.ScanRecord
	Warnings       []string
	Qualifying     int
	RecentTrades   []model.TradeRecord
	ChartPoints    string
}

const (
	chartWidth   = 720
	chartHeight  = 180
	recentTrades = 30
)

// Render writes the dashboard HTML.
func Render(w io.Writer, d Data) error {
	v := view{
		Data:       d,
		Summary:    portfolio.Summarize(d.History),
		Qualifying: len(d.Scan.Qualifying()),
	}
	if d.StartingNAV > 0 {
		v.TotalReturnPct = (d.State.NAV/d.StartingNAV - 1) * 100
	}
	if n := len(d.History); n > 0 {
		v.LatestReturn = d.History[n-1].WeeklyReturnPct
	}

	for _, h := range d.State.Holdings {
		row := holdingRow{Holding: h, Value: h.MarketValue(h.LastPrice)}
		if h.CostBasis > 0 {
			row.PnLPct = (h.LastPrice/h.CostBasis - 1) * 100
		}
		v.Holdings = append(v.Holdings, row)
	}
	sort.Slice(v.Holdings, func(i, j int) bool { return v.Holdings[i].Symbol < v.Holdings[j].Symbol })

	var ok []model.ScanRecord
	for _, r := range d.Scan.Records {
		if r.OK() {
			ok = append(ok, r)
		} else {
			v.Warnings = append(v.Warnings, r.Symbol+": "+r.Error)
		}
	}
	// qualifying first, then by rank score
	ranked := strategy.Rank(ok)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Qualifies && !ranked[j].Qualifies })
	v.ScanRows = ranked

	trades := d.Trades
	if len(trades) > recentTrades {
		trades = trades[len(trades)-recentTrades:]
	}
	for i := len(trades) - 1; i >= 0; i-- {
		v.RecentTrades = append(v.RecentTrades, trades[i])
	}

	v.ChartPoints = chartPoints(d.History, chartWidth, chartHeight)
	return tmpl.Execute(w, v)
}

// Write renders the dashboard into the store's output directory.
func Write(s *store.Store, d Data) error {
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return store.WriteFileAtomic(s.Path(store.DashboardFile), buf.Bytes())
}

// chartPoints scales the NAV history into an SVG polyline.
func chartPoints(history []model.NAVPoint, width, height float64) string {
	if len(history) < 2 {
		return ""
	}
	lo, hi := history[0].NAV, history[0].NAV
	for _, p := range history {
		if p.NAV < lo {
			lo = p.NAV
		}
		if p.NAV > hi {
			hi = p.NAV
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	pts := make([]string, len(history))
	for i, p := range history {
		x := float64(i) / float64(len(history)-1) * width
		y := height - (p.NAV-lo)/span*height
		pts[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}
	return strings.Join(pts, " ")
}
