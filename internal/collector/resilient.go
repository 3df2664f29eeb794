package collector

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"MomentumTracker/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ResilienceConfig tunes the wrapper around an upstream provider.
type ResilienceConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	BreakerFailures   uint32 // consecutive failing symbols, with none fetched, before the breaker opens
	BreakerCooldown   time.Duration
}

// DefaultResilienceConfig mirrors the pacing of a polite Yahoo scraper.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		MaxAttempts:       3,
		BaseBackoff:       time.Second,
		MaxBackoff:        10 * time.Second,
		BreakerFailures:   5,
		BreakerCooldown:   60 * time.Second,
	}
}

// ResilientProvider rate-limits, retries and circuit-breaks another Provider.
//
// The breaker guards against an unreachable upstream, not against bad
// symbols: each symbol counts as one outcome after its retries, and the
// breaker can only open while no fetch has succeeded since the last
// ResetHealth. Once the upstream has answered in a scan, a failing ticker
// never stops another ticker from being fetched.
type ResilientProvider struct {
	next      Provider
	cfg       ResilienceConfig
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	reachable atomic.Bool
	log       zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewResilientProvider wraps next.
func NewResilientProvider(next Provider, cfg ResilienceConfig, log zerolog.Logger) *ResilientProvider {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	p := &ResilientProvider{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     log.With().Str("provider", next.Name()).Logger(),
		sleep:   sleepCtx,
	}

	st := gobreaker.Settings{Name: next.Name()}
	st.MaxRequests = uint32(cfg.Burst)
	st.Timeout = cfg.BreakerCooldown
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return cfg.BreakerFailures > 0 &&
			counts.ConsecutiveFailures >= cfg.BreakerFailures &&
			!p.reachable.Load()
	}
	// Only failures that say something about upstream health count.
	st.IsSuccessful = func(err error) bool {
		return err == nil || !IsRetryable(err)
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		p.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
	}
	p.breaker = gobreaker.NewCircuitBreaker(st)
	return p
}

func (p *ResilientProvider) Name() string { return p.next.Name() }

// ResetHealth forgets earlier successes. Scanner calls it when a scan starts.
func (p *ResilientProvider) ResetHealth() {
	p.reachable.Store(false)
}

// FetchWeeklyCloses implements Provider.
func (p *ResilientProvider) FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetchWithRetry(ctx, symbol, weeks)
	})
	if err == nil {
		p.reachable.Store(true)
		return res.(model.PriceSeries), nil
	}
	if errors.Is(err, ErrUnknownSymbol) || errors.Is(err, ErrEmptySeries) {
		// the upstream answered
		p.reachable.Store(true)
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return model.PriceSeries{}, err
	}
	return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: err}
}

func (p *ResilientProvider) fetchWithRetry(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return model.PriceSeries{}, err
		}

		series, err := p.next.FetchWeeklyCloses(ctx, symbol, weeks)
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == p.cfg.MaxAttempts {
			break
		}

		wait := p.backoff(attempt)
		p.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt).Dur("wait", wait).Msg("retrying")
		if err := p.sleep(ctx, wait); err != nil {
			return model.PriceSeries{}, err
		}
	}
	return model.PriceSeries{}, lastErr
}

// backoff is min(base * 2^(attempt-1), max).
func (p *ResilientProvider) backoff(attempt int) time.Duration {
	d := p.cfg.BaseBackoff * time.Duration(1<<uint(attempt-1))
	if p.cfg.MaxBackoff > 0 && d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
