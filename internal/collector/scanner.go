package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MomentumTracker/internal/calculator"
	"MomentumTracker/internal/model"
	"MomentumTracker/internal/strategy"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	MACD          calculator.MACDConfig
	LookbackWeeks int
	Concurrency   int
	FetchTimeout  time.Duration
}

// healthResetter is implemented by providers that track upstream health per scan.
type healthResetter interface {
	ResetHealth()
}

// Scanner evaluates every ticker of the universe once per run.
type Scanner struct {
	provider Provider
	opts     ScannerOptions
	log      zerolog.Logger
}

// NewScanner creates a Scanner over provider.
func NewScanner(provider Provider, opts ScannerOptions, log zerolog.Logger) *Scanner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.LookbackWeeks <= 0 {
		opts.LookbackWeeks = 104
	}
	return &Scanner{
		provider: provider,
		opts:     opts,
		log:      log.With().Str("component", "scanner").Logger(),
	}
}

// Scan fetches and scores every ticker. Tickers are independent: a failure is
// recorded on that ticker's record and never stops the others. Records come
// back in input order.
func (s *Scanner) Scan(ctx context.Context, date time.Time, tickers []model.TickerSpec) model.Scan {
	records := make([]model.ScanRecord, len(tickers))
	if h, ok := s.provider.(healthResetter); ok {
		h.ResetHealth()
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, t := range tickers {
		g.Go(func() error {
			records[i] = s.scanOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	scan := model.Scan{Date: date, Records: records}
	s.log.Info().
		Int("tickers", len(records)).
		Int("qualifying", len(scan.Qualifying())).
		Int("failed", scan.Failures()).
		Msg("scan complete")
	return scan
}

func (s *Scanner) scanOne(ctx context.Context, t model.TickerSpec) model.ScanRecord {
	rec := model.ScanRecord{Symbol: t.Symbol, Name: t.Name, Region: t.Region}

	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	series, err := s.provider.FetchWeeklyCloses(fetchCtx, t.Symbol, s.opts.LookbackWeeks)
	if err != nil {
		return s.fail(rec, err)
	}
	series, err = ValidateSeries(series)
	if err != nil {
		return s.fail(rec, err)
	}
	if last, ok := series.Last(); ok {
		rec.Close = last.Close
	}

	snap, err := calculator.CalculateMACD(series.Closes(), s.opts.MACD)
	if err != nil {
		if errors.Is(err, calculator.ErrInsufficientData) {
			s.log.Warn().Str("symbol", t.Symbol).Int("weeks", len(series.Points)).Msg("insufficient history")
		}
		return s.fail(rec, err)
	}

	rec.Indicators = &snap
	strategy.Evaluate(&rec)
	s.log.Debug().
		Str("symbol", t.Symbol).
		Float64("close", rec.Close).
		Float64("macd", snap.MACD).
		Float64("hist", snap.Histogram).
		Bool("qualifies", rec.Qualifies).
		Msg("scored")
	return rec
}

func (s *Scanner) fail(rec model.ScanRecord, err error) model.ScanRecord {
	de := &model.DataError{Symbol: rec.Symbol, Err: err}
	rec.Indicators = nil
	rec.Qualifies = false
	rec.RankScore = 0
	rec.Error = errorText(err)
	s.log.Warn().Err(de).Msg("ticker unusable")
	return rec
}

// errorText is the status written to the scan snapshot.
func errorText(err error) string {
	switch {
	case errors.Is(err, calculator.ErrInsufficientData):
		return "insufficient_history"
	case errors.Is(err, ErrEmptySeries):
		return "no_data"
	case errors.Is(err, ErrUnknownSymbol):
		return "error: unknown symbol"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
