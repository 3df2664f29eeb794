package collector

import (
	"context"
	"time"

	"MomentumTracker/internal/model"
)

// StaticProvider serves fixed closes, for development, replays and tests.
type StaticProvider struct {
	Series map[string][]float64
	Errors map[string]error
	End    time.Time // timestamp of the last close; defaults to a fixed Friday
}

func (p *StaticProvider) Name() string { return "static" }

// FetchWeeklyCloses implements Provider.
func (p *StaticProvider) FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: err}
	}
	if err, ok := p.Errors[symbol]; ok {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: err}
	}
	closes, ok := p.Series[symbol]
	if !ok {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: ErrUnknownSymbol}
	}
	if len(closes) == 0 {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: ErrEmptySeries}
	}
	return model.PriceSeries{Symbol: symbol, Points: trimWeeks(weeklyPoints(closes, p.end()), weeks)}, nil
}

func (p *StaticProvider) end() time.Time {
	if p.End.IsZero() {
		return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	}
	return p.End
}

func weeklyPoints(closes []float64, end time.Time) []model.PricePoint {
	points := make([]model.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = model.PricePoint{
			Time:  end.AddDate(0, 0, -7*(len(closes)-1-i)),
			Close: c,
		}
	}
	return points
}
