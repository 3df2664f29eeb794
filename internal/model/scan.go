package model

import "time"

// ScanRecord is the per-ticker outcome of one weekly scan.
type ScanRecord struct {
	Symbol     string
	Name       string
	Region     string
	Close      float64 // last weekly close, 0 when nothing was fetched
	Indicators *IndicatorSnapshot
	RankScore  float64
	Qualifies  bool
	Error      string
}

// OK reports whether indicators were computed for the record.
func (r ScanRecord) OK() bool {
	return r.Indicators != nil && r.Error == ""
}

// Scan is the immutable, ordered set of records produced by one run.
type Scan struct {
	Date    time.Time
	Records []ScanRecord
}

// Qualifying returns the qualifying records in scan order.
func (s Scan) Qualifying() []ScanRecord {
	var out []ScanRecord
	for _, r := range s.Records {
		if r.Qualifies {
			out = append(out, r)
		}
	}
	return out
}

// BySymbol indexes the records by symbol.
func (s Scan) BySymbol() map[string]ScanRecord {
	m := make(map[string]ScanRecord, len(s.Records))
	for _, r := range s.Records {
		m[r.Symbol] = r
	}
	return m
}

// Failures counts records without indicators.
func (s Scan) Failures() int {
	n := 0
	for _, r := range s.Records {
		if !r.OK() {
			n++
		}
	}
	return n
}
