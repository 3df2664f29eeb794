package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MomentumTracker/internal/collector"
	"MomentumTracker/internal/dashboard"
	"MomentumTracker/internal/model"
	"MomentumTracker/internal/notifier"
	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/recorder"
	"MomentumTracker/internal/store"
	"MomentumTracker/internal/strategy"

	"github.com/rs/zerolog"
)

// ErrProviderUnavailable aborts a run in which no ticker returned any price.
// Rebalancing on such a scan would liquidate the portfolio over an outage.
var ErrProviderUnavailable = errors.New("price provider unavailable: no ticker returned data")

// Notifier delivers run reports.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// MarketFilter configures the optional benchmark trend gate.
type MarketFilter struct {
	Enabled       bool
	Symbol        string
	FastPeriod    int
	SlowPeriod    int
	LookbackWeeks int
}

// Options configures a Runner.
type Options struct {
	UniverseFile string
	Portfolio    portfolio.Config
	MarketFilter MarketFilter
}

// Deps are the collaborators of a Runner. Recorder and Notifier are optional.
type Deps struct {
	Provider collector.Provider
	Scanner  *collector.Scanner
	Store    *store.Store
	Recorder recorder.Recorder
	Notifier Notifier
}

// RunResult is the outcome of a successful run.
type RunResult struct {
	Scan   model.Scan
	Result portfolio.Result
	NAV    model.NAVPoint
}

// Runner executes one weekly run end to end.
type Runner struct {
	deps   Deps
	opts   Options
	engine *portfolio.Engine
	log    zerolog.Logger
	now    func() time.Time
}

// New creates a Runner.
func New(deps Deps, opts Options, log zerolog.Logger) *Runner {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Runner{
		deps:   deps,
		opts:   opts,
		engine: portfolio.NewEngine(opts.Portfolio),
		log:    log.With().Str("component", "runner").Logger(),
		now:    time.Now,
	}
}

// RunDate normalises t to the calendar date a run is filed under.
func RunDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run scans the universe, rebalances and commits every artifact for date.
// An error returned before the commit means nothing was written. A commit
// interrupted between renames is reported by the next run as a StateError.
func (r *Runner) Run(ctx context.Context, date time.Time) (*RunResult, error) {
	date = RunDate(date)
	log := r.log.With().Str("date", date.Format("2006-01-02")).Logger()
	started := r.now()

	universe, err := collector.LoadUniverse(r.opts.UniverseFile)
	if err != nil {
		return nil, err
	}

	prev, err := r.loadState(date)
	if err != nil {
		return nil, err
	}

	exists, err := r.deps.Store.HasScan(date)
	if err != nil {
		return nil, fmt.Errorf("check snapshot: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("run %s: %w", date.Format("2006-01-02"), store.ErrSnapshotExists)
	}
	log.Info().Int("tickers", len(universe)).Int("version", prev.Version).Float64("nav", prev.NAV).Msg("run started")

	scan := r.deps.Scanner.Scan(ctx, date, universe)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !anyPriced(scan) {
		return nil, ErrProviderUnavailable
	}

	gate := r.marketGate(ctx)
	res := r.engine.Rebalance(prev, scan, gate)
	nav := portfolio.NAVPointFor(prev, res)

	err = r.deps.Store.Commit(store.Batch{Scan: scan, State: res.State, Trades: res.Trades, NAV: nav})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Int("qualifying", res.Qualifying).
		Int("trades", len(res.Trades)).
		Int("holdings", len(res.State.Holdings)).
		Bool("in_cash", res.State.InCash).
		Float64("nav", res.State.NAV).
		Float64("weekly_return_pct", nav.WeeklyReturnPct).
		Dur("took", r.now().Sub(started)).
		Msg("run committed")

	out := &RunResult{Scan: scan, Result: res, NAV: nav}
	r.publish(ctx, out, len(universe))
	return out, nil
}

// loadState reads and checks the previous state. A missing state file starts
// a fresh portfolio only when no artifact was ever written.
func (r *Runner) loadState(date time.Time) (model.PortfolioState, error) {
	prev, ok, err := r.deps.Store.LoadState()
	if err != nil {
		return model.PortfolioState{}, err
	}
	last, err := r.deps.Store.LastCommitted()
	if err != nil {
		return model.PortfolioState{}, &model.StateError{Reason: "read history", Err: err}
	}
	if !ok {
		if r.deps.Store.HasHistory() || !last.IsZero() {
			return model.PortfolioState{}, &model.StateError{Reason: "state file missing but scan, trade or nav history exists"}
		}
		r.log.Info().Float64("starting_nav", r.opts.Portfolio.StartingNAV).Msg("no previous state, starting fresh")
		return portfolio.NewState(r.opts.Portfolio.StartingNAV, date), nil
	}
	if err := portfolio.ValidateState(prev, r.opts.Portfolio.Tolerance); err != nil {
		return model.PortfolioState{}, err
	}
	if err := portfolio.CheckRunDate(prev, date); err != nil {
		return model.PortfolioState{}, err
	}
	if last.After(prev.AsOf) {
		return model.PortfolioState{}, &model.StateError{Reason: fmt.Sprintf(
			"artifacts dated %s are newer than the state as of %s, a previous commit was interrupted",
			last.Format("2006-01-02"), prev.AsOf.Format("2006-01-02"))}
	}
	return prev, nil
}

func (r *Runner) marketGate(ctx context.Context) portfolio.Gate {
	mf := r.opts.MarketFilter
	if !mf.Enabled || r.deps.Provider == nil {
		return portfolio.Gate{}
	}

	series, err := r.deps.Provider.FetchWeeklyCloses(ctx, mf.Symbol, mf.LookbackWeeks)
	if err == nil {
		series, err = collector.ValidateSeries(series)
	}
	var trend strategy.MarketTrend
	if err == nil {
		trend, err = strategy.EvaluateMarket(series.Closes(), mf.FastPeriod, mf.SlowPeriod)
	}
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", mf.Symbol).Msg("market filter unavailable, staying in cash")
		return portfolio.Gate{Reasons: []string{strategy.ReasonBenchmarkUnavailable}}
	}

	r.log.Info().
		Str("symbol", mf.Symbol).
		Float64("ema_fast", trend.FastEMA).
		Float64("ema_slow", trend.SlowEMA).
		Bool("risk_off", trend.RiskOff()).
		Msg("market filter")
	if trend.RiskOff() {
		return portfolio.Gate{Reasons: []string{strategy.ReasonBenchmarkDowntrend}}
	}
	return portfolio.Gate{}
}

// publish feeds the derived sinks. Their failures are logged, never returned:
// the committed artifacts are already authoritative.
func (r *Runner) publish(ctx context.Context, out *RunResult, universe int) {
	res := out.Result

	err := r.deps.Recorder.RecordRun(&recorder.RunSnapshot{
		Scan:        out.Scan,
		State:       res.State,
		Trades:      res.Trades,
		NAV:         out.NAV,
		PreNAV:      res.PreNAV,
		CashReasons: res.CashReasons,
	})
	if err != nil {
		r.log.Error().Err(err).Msg("record run")
	}

	if err := r.writeDashboard(out); err != nil {
		r.log.Error().Err(err).Msg("write dashboard")
	}

	if r.deps.Notifier != nil {
		msg := notifier.FormatRunReport(notifier.Report{
			Date:        out.Scan.Date,
			State:       res.State,
			Trades:      res.Trades,
			NAV:         out.NAV,
			Universe:    universe,
			Failures:    out.Scan.Failures(),
			CashReasons: res.CashReasons,
		})
		if err := r.deps.Notifier.Notify(ctx, msg); err != nil {
			r.log.Error().Err(err).Msg("send run report")
		}
	}
}

func (r *Runner) writeDashboard(out *RunResult) error {
	history, err := r.deps.Store.ReadNAVHistory()
	if err != nil {
		return err
	}
	trades, err := r.deps.Store.ReadTrades()
	if err != nil {
		return err
	}
	return dashboard.Write(r.deps.Store, dashboard.Data{
		Date:        out.Scan.Date,
		StartingNAV: r.opts.Portfolio.StartingNAV,
		State:       out.Result.State,
		Scan:        out.Scan,
		History:     history,
		Trades:      trades,
		CashReasons: out.Result.CashReasons,
		Generated:   r.now(),
	})
}

func anyPriced(scan model.Scan) bool {
	for _, rec := range scan.Records {
		if rec.Close > 0 {
			return true
		}
	}
	return false
}
