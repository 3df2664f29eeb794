package collector

import (
	"context"
	"fmt"

	"MomentumTracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// YFinanceProvider fetches adjusted daily history through go-yfinance and
// resamples it to one close per ISO week.
type YFinanceProvider struct {
	log zerolog.Logger
}

// NewYFinanceProvider creates a go-yfinance backed provider.
func NewYFinanceProvider(log zerolog.Logger) *YFinanceProvider {
	return &YFinanceProvider{
		log: log.With().Str("client", "yfinance").Logger(),
	}
}

func (p *YFinanceProvider) Name() string { return "yfinance" }

type yfResult struct {
	points []model.PricePoint
	err    error
}

// FetchWeeklyCloses implements Provider. go-yfinance has no context support,
// so the call runs in its own goroutine and is abandoned on cancellation.
func (p *YFinanceProvider) FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: err}
	}

	done := make(chan yfResult, 1)
	go func() {
		points, err := p.history(symbol, yahooRange(weeks))
		done <- yfResult{points: points, err: err}
	}()

	select {
	case <-ctx.Done():
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: res.err}
		}
		weekly := aggregateDailyToWeekly(res.points)
		p.log.Debug().Str("symbol", symbol).Int("daily", len(res.points)).Int("weekly", len(weekly)).Msg("history fetched")
		return model.PriceSeries{Symbol: symbol, Points: trimWeeks(weekly, weeks)}, nil
	}
}

func (p *YFinanceProvider) history(symbol, period string) ([]model.PricePoint, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		points = append(points, model.PricePoint{Time: bar.Date, Close: bar.Close})
	}
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}
	return points, nil
}
