package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"MomentumTracker/internal/model"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	scanHeader  = []string{"ticker", "name", "region", "weekly_close", "ema_fast", "ema_slow", "macd", "signal", "hist", "rank_score", "momentum", "status"}
	tradeHeader = []string{"date", "ticker", "name", "action", "shares", "price", "cost_basis", "realized_pnl", "reason"}
	navHeader   = []string{"date", "nav", "weekly_return_pct", "num_holdings", "in_cash", "qualifying_count"}
)

// Decimal places per column kind.
const (
	pricePlaces  = 4
	navPlaces    = 2
	rankPlaces   = 6
	sharePlaces  = 6
	returnPlaces = 4
)

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func scanRow(r model.ScanRecord) []string {
	row := []string{r.Symbol, r.Name, r.Region, "", "", "", "", "", "", "", yesNo(r.Qualifies), "ok"}
	if r.Close > 0 {
		row[3] = fixed(r.Close, pricePlaces)
	}
	if r.Indicators != nil {
		row[4] = fixed(r.Indicators.FastEMA, pricePlaces)
		row[5] = fixed(r.Indicators.SlowEMA, pricePlaces)
		row[6] = fixed(r.Indicators.MACD, rankPlaces)
		row[7] = fixed(r.Indicators.Signal, rankPlaces)
		row[8] = fixed(r.Indicators.Histogram, rankPlaces)
		row[9] = fixed(r.RankScore, rankPlaces)
	}
	if r.Error != "" {
		row[11] = r.Error
	}
	return row
}

// EncodeScan writes a scan snapshot with its header.
func EncodeScan(w io.Writer, scan model.Scan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scanHeader); err != nil {
		return err
	}
	for _, r := range scan.Records {
		if err := cw.Write(scanRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeScan parses a scan snapshot written by EncodeScan.
func DecodeScan(r io.Reader, date time.Time) (model.Scan, error) {
	rows, err := readRows(r, scanHeader)
	if err != nil {
		return model.Scan{}, err
	}
	scan := model.Scan{Date: date, Records: make([]model.ScanRecord, 0, len(rows))}
	for i, row := range rows {
		rec := model.ScanRecord{Symbol: row[0], Name: row[1], Region: row[2]}
		nums := make([]float64, 7)
		for j := range nums {
			if nums[j], err = parseNumber(row[3+j]); err != nil {
				return model.Scan{}, fmt.Errorf("row %d column %s: %w", i+2, scanHeader[3+j], err)
			}
		}
		rec.Close = nums[0]
		if status := row[11]; status != "ok" {
			rec.Error = status
		} else {
			rec.Indicators = &model.IndicatorSnapshot{
				FastEMA:   nums[1],
				SlowEMA:   nums[2],
				MACD:      nums[3],
				Signal:    nums[4],
				Histogram: nums[5],
			}
			rec.RankScore = nums[6]
			rec.Qualifies = row[10] == "Yes"
		}
		scan.Records = append(scan.Records, rec)
	}
	return scan, nil
}

func tradeRow(t model.TradeRecord) []string {
	pnl := ""
	if t.RealizedPnL != nil {
		pnl = fixed(*t.RealizedPnL, navPlaces)
	}
	return []string{
		t.Date.Format(dateLayout),
		t.Symbol,
		t.Name,
		string(t.Action),
		fixed(t.Shares, sharePlaces),
		fixed(t.Price, pricePlaces),
		fixed(t.CostBasis, pricePlaces),
		pnl,
		t.Reason,
	}
}

// DecodeTrades parses the trade log.
func DecodeTrades(r io.Reader) ([]model.TradeRecord, error) {
	rows, err := readRows(r, tradeHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.TradeRecord, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		t := model.TradeRecord{Date: date, Symbol: row[1], Name: row[2], Action: model.TradeAction(row[3]), Reason: row[8]}
		if t.Shares, err = parseNumber(row[4]); err != nil {
			return nil, fmt.Errorf("row %d shares: %w", i+2, err)
		}
		if t.Price, err = parseNumber(row[5]); err != nil {
			return nil, fmt.Errorf("row %d price: %w", i+2, err)
		}
		if t.CostBasis, err = parseNumber(row[6]); err != nil {
			return nil, fmt.Errorf("row %d cost_basis: %w", i+2, err)
		}
		if row[7] != "" {
			pnl, err := parseNumber(row[7])
			if err != nil {
				return nil, fmt.Errorf("row %d realized_pnl: %w", i+2, err)
			}
			t.RealizedPnL = &pnl
		}
		out = append(out, t)
	}
	return out, nil
}

func navRow(p model.NAVPoint) []string {
	return []string{
		p.Date.Format(dateLayout),
		fixed(p.NAV, navPlaces),
		fixed(p.WeeklyReturnPct, returnPlaces),
		strconv.Itoa(p.NumHoldings),
		strconv.FormatBool(p.InCash),
		strconv.Itoa(p.QualifyingCount),
	}
}

// DecodeNAV parses the NAV history.
func DecodeNAV(r io.Reader) ([]model.NAVPoint, error) {
	rows, err := readRows(r, navHeader)
	if err != nil {
		return nil, err
	}
	out := make([]model.NAVPoint, 0, len(rows))
	for i, row := range rows {
		var p model.NAVPoint
		var perr error
		if p.Date, perr = time.Parse(dateLayout, row[0]); perr != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, perr)
		}
		if p.NAV, perr = parseNumber(row[1]); perr != nil {
			return nil, fmt.Errorf("row %d nav: %w", i+2, perr)
		}
		if p.WeeklyReturnPct, perr = parseNumber(row[2]); perr != nil {
			return nil, fmt.Errorf("row %d weekly_return_pct: %w", i+2, perr)
		}
		if p.NumHoldings, perr = strconv.Atoi(row[3]); perr != nil {
			return nil, fmt.Errorf("row %d num_holdings: %w", i+2, perr)
		}
		if p.InCash, perr = strconv.ParseBool(row[4]); perr != nil {
			return nil, fmt.Errorf("row %d in_cash: %w", i+2, perr)
		}
		if p.QualifyingCount, perr = strconv.Atoi(row[5]); perr != nil {
			return nil, fmt.Errorf("row %d qualifying_count: %w", i+2, perr)
		}
		out = append(out, p)
	}
	return out, nil
}

// readRows checks the header and returns the data rows.
func readRows(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if got := strings.Join(rows[0], ","); got != strings.Join(header, ",") {
		return nil, fmt.Errorf("unexpected header %q", got)
	}
	return rows[1:], nil
}

// appendRows returns existing followed by rows, adding the header when
// existing is empty.
func appendRows(existing []byte, header []string, rows [][]string) ([]byte, error) {
	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		b.WriteByte('\n')
	}
	cw := csv.NewWriter(&b)
	if len(existing) == 0 {
		if err := cw.Write(header); err != nil {
			return nil, err
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
