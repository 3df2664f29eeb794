package strategy

import (
	"sort"

	"MomentumTracker/internal/model"
)

// Qualifies applies the momentum rule: MACD above zero and a positive
// histogram. Both comparisons are strict; a nil snapshot never qualifies.
func Qualifies(snap *model.IndicatorSnapshot) bool {
	if snap == nil {
		return false
	}
	return snap.MACD > 0 && snap.Histogram > 0
}

// RankScore normalises the histogram by price so scores compare across
// price scales and currencies.
func RankScore(snap *model.IndicatorSnapshot, close float64) float64 {
	if snap == nil || close == 0 {
		return 0
	}
	return snap.Histogram / close
}

// Evaluate fills the verdict fields of a scan record from its indicators.
func Evaluate(rec *model.ScanRecord) {
	rec.Qualifies = Qualifies(rec.Indicators)
	rec.RankScore = RankScore(rec.Indicators, rec.Close)
}

// Rank orders records by rank score descending, ties broken by symbol.
// The input slice is not modified.
func Rank(records []model.ScanRecord) []model.ScanRecord {
	out := make([]model.ScanRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RankScore != out[j].RankScore {
			return out[i].RankScore > out[j].RankScore
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
