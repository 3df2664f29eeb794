package strategy

import (
	"testing"

	"MomentumTracker/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestQualifies(t *testing.T) {
	tests := []struct {
		name string
		snap *model.IndicatorSnapshot
		want bool
	}{
		{"nil snapshot", nil, false},
		{"both positive", &model.IndicatorSnapshot{MACD: 0.5, Histogram: 0.1}, true},
		{"macd zero", &model.IndicatorSnapshot{MACD: 0, Histogram: 0.1}, false},
		{"histogram zero", &model.IndicatorSnapshot{MACD: 0.5, Histogram: 0}, false},
		{"both zero", &model.IndicatorSnapshot{}, false},
		{"negative macd", &model.IndicatorSnapshot{MACD: -0.2, Histogram: 0.3}, false},
		{"negative histogram", &model.IndicatorSnapshot{MACD: 0.2, Histogram: -0.3}, false},
		{"tiny positive", &model.IndicatorSnapshot{MACD: 1e-12, Histogram: 1e-12}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Qualifies(tt.snap))
		})
	}
}

func TestRankScore(t *testing.T) {
	snap := &model.IndicatorSnapshot{MACD: 1, Histogram: 2}
	assert.InDelta(t, 0.02, RankScore(snap, 100), 1e-12)
	assert.Zero(t, RankScore(snap, 0))
	assert.Zero(t, RankScore(nil, 100))
}

func TestEvaluate(t *testing.T) {
	rec := model.ScanRecord{Symbol: "AAA", Close: 50, Indicators: &model.IndicatorSnapshot{MACD: 1, Histogram: 0.5}}
	Evaluate(&rec)
	assert.True(t, rec.Qualifies)
	assert.InDelta(t, 0.01, rec.RankScore, 1e-12)

	failed := model.ScanRecord{Symbol: "BBB", Close: 50, Error: "boom"}
	Evaluate(&failed)
	assert.False(t, failed.Qualifies)
	assert.Zero(t, failed.RankScore)
}

func TestRank(t *testing.T) {
	records := []model.ScanRecord{
		{Symbol: "CCC", RankScore: 0.01},
		{Symbol: "AAA", RankScore: 0.03},
		{Symbol: "BBB", RankScore: 0.01},
	}
	ranked := Rank(records)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, []string{ranked[0].Symbol, ranked[1].Symbol, ranked[2].Symbol})
	assert.Equal(t, "CCC", records[0].Symbol)
}
