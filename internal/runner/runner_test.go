package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"MomentumTracker/internal/calculator"
	"MomentumTracker/internal/collector"
	"MomentumTracker/internal/model"
	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/recorder"
	"MomentumTracker/internal/store"
	"MomentumTracker/internal/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	friday     = time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	nextFriday = friday.AddDate(0, 0, 7)
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return nil
}

func compounding(n int, start, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start * math.Pow(1+rate, float64(i))
	}
	return out
}

// fixture is a universe of 12 tickers of which T00..T10 trend up.
type fixture struct {
	dir      string
	out      *store.Store
	provider *collector.StaticProvider
	notifier *captureNotifier
	opts     Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	series := map[string][]float64{}
	lines := []string{"ticker,name,region"}
	for i := 0; i < 12; i++ {
		sym := fmt.Sprintf("T%02d", i)
		lines = append(lines, fmt.Sprintf("%s,Ticker %d,US", sym, i))
		if i < 11 {
			series[sym] = compounding(60, 10+float64(i), 0.01)
		} else {
			series[sym] = compounding(60, 50, -0.01)
		}
	}
	universeFile := filepath.Join(dir, "tickers.csv")
	require.NoError(t, os.WriteFile(universeFile, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	opts := Options{UniverseFile: universeFile, Portfolio: portfolio.DefaultConfig()}
	opts.MarketFilter = MarketFilter{Symbol: "^GSPC", FastPeriod: 10, SlowPeriod: 20, LookbackWeeks: 104}

	return &fixture{
		dir:      dir,
		out:      store.New(filepath.Join(dir, "docs"), zerolog.Nop()),
		provider: &collector.StaticProvider{Series: series, Errors: map[string]error{}},
		notifier: &captureNotifier{},
		opts:     opts,
	}
}

func (f *fixture) runner(rec recorder.Recorder) *Runner {
	scanner := collector.NewScanner(f.provider, collector.ScannerOptions{
		MACD:        calculator.DefaultMACDConfig(),
		Concurrency: 4,
	}, zerolog.Nop())
	return New(Deps{
		Provider: f.provider,
		Scanner:  scanner,
		Store:    f.out,
		Recorder: rec,
		Notifier: f.notifier,
	}, f.opts, zerolog.Nop())
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			out = append(out, rel)
		}
		return nil
	})
	return out
}

func TestRun_FirstWeekFromCash(t *testing.T) {
	f := newFixture(t)
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(f.dir, "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer rec.Close()

	res, err := f.runner(rec).Run(context.Background(), friday.Add(22*time.Hour))
	require.NoError(t, err)

	state := res.Result.State
	require.Len(t, state.Holdings, 11)
	for _, h := range state.Holdings {
		assert.InDelta(t, 9090.91, h.Shares*h.LastPrice, 0.01)
	}
	assert.InDelta(t, 0, state.Cash, 1e-6)
	assert.Len(t, res.Result.Trades, 11)
	assert.Zero(t, res.Result.Sells())
	assert.Equal(t, friday, res.Scan.Date)
	assert.Equal(t, 11, res.NAV.QualifyingCount)
	assert.InDelta(t, 0, res.NAV.WeeklyReturnPct, 1e-9)

	assert.ElementsMatch(t, []string{
		"scans/2025-01-03.csv", store.StateFile, store.TradeLogFile, store.NAVFile, store.DashboardFile,
	}, listFiles(t, f.out.Dir()))

	loaded, ok, err := f.out.LoadState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loaded.Version)

	runs, err := rec.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 11, runs[0].Holdings)

	require.Len(t, f.notifier.msgs, 1)
	assert.Contains(t, f.notifier.msgs[0], "Qualifying: 11 / 12")
}

func TestRun_SecondWeekIsIdempotent(t *testing.T) {
	f := newFixture(t)
	r := f.runner(nil)

	first, err := r.Run(context.Background(), friday)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), nextFriday)
	require.NoError(t, err)

	assert.Empty(t, second.Result.Trades)
	assert.Equal(t, 2, second.Result.State.Version)
	assert.Equal(t, first.Result.State.Holdings, second.Result.State.Holdings)

	navs, err := f.out.ReadNAVHistory()
	require.NoError(t, err)
	assert.Len(t, navs, 2)
}

func TestRun_RejectsExistingSnapshot(t *testing.T) {
	f := newFixture(t)
	r := f.runner(nil)
	_, err := r.Run(context.Background(), friday)
	require.NoError(t, err)
	before, err := os.ReadFile(f.out.Path(store.StateFile))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), friday)
	assert.ErrorIs(t, err, store.ErrSnapshotExists)

	after, err := os.ReadFile(f.out.Path(store.StateFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_ProviderOutageWritesNothing(t *testing.T) {
	f := newFixture(t)
	for sym := range f.provider.Series {
		f.provider.Errors[sym] = errors.New("connection refused")
	}

	_, err := f.runner(nil).Run(context.Background(), friday)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, listFiles(t, f.out.Dir()))
	assert.Empty(t, f.notifier.msgs)
}

func TestRun_StateErrorsAreFatal(t *testing.T) {
	t.Run("corrupt state", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.MkdirAll(f.out.Dir(), 0755))
		require.NoError(t, os.WriteFile(f.out.Path(store.StateFile), []byte("{"), 0644))

		_, err := f.runner(nil).Run(context.Background(), friday)
		var se *model.StateError
		assert.ErrorAs(t, err, &se)
		assert.Equal(t, []string{store.StateFile}, listFiles(t, f.out.Dir()))
	})

	t.Run("inconsistent state", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.MkdirAll(f.out.Dir(), 0755))
		body := `{"version":3,"as_of_date":"2024-12-27T00:00:00Z","cash":10,"nav":5000,"holdings":{}}`
		require.NoError(t, os.WriteFile(f.out.Path(store.StateFile), []byte(body), 0644))

		_, err := f.runner(nil).Run(context.Background(), friday)
		var se *model.StateError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, err.Error(), "nav mismatch")
	})

	t.Run("missing state with history", func(t *testing.T) {
		f := newFixture(t)
		r := f.runner(nil)
		_, err := r.Run(context.Background(), friday)
		require.NoError(t, err)
		require.NoError(t, os.Remove(f.out.Path(store.StateFile)))

		_, err = r.Run(context.Background(), nextFriday)
		var se *model.StateError
		assert.ErrorAs(t, err, &se)
		exists, err := f.out.HasScan(nextFriday)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("interrupted commit", func(t *testing.T) {
		f := newFixture(t)
		r := f.runner(nil)
		_, err := r.Run(context.Background(), friday)
		require.NoError(t, err)

		// only the snapshot of the second week made it into place
		snap, err := os.ReadFile(f.out.ScanPath(friday))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(f.out.ScanPath(nextFriday), snap, 0644))

		_, err = r.Run(context.Background(), nextFriday)
		var se *model.StateError
		require.ErrorAs(t, err, &se)
		assert.NotErrorIs(t, err, store.ErrSnapshotExists)
		assert.Contains(t, err.Error(), "interrupted")
	})

	t.Run("interrupted first commit", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(f.out.ScanPath(friday)), 0755))
		require.NoError(t, os.WriteFile(f.out.ScanPath(friday), []byte("symbol\n"), 0644))

		_, err := f.runner(nil).Run(context.Background(), friday)
		var se *model.StateError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("state ahead of run date", func(t *testing.T) {
		f := newFixture(t)
		r := f.runner(nil)
		_, err := r.Run(context.Background(), nextFriday)
		require.NoError(t, err)

		_, err = r.Run(context.Background(), friday)
		assert.ErrorIs(t, err, portfolio.ErrStateAhead)
	})
}

func TestRun_BadUniverse(t *testing.T) {
	f := newFixture(t)
	f.opts.UniverseFile = filepath.Join(f.dir, "nope.csv")

	_, err := f.runner(nil).Run(context.Background(), friday)
	var ce *model.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestRun_MarketFilter(t *testing.T) {
	t.Run("downtrend forces cash", func(t *testing.T) {
		f := newFixture(t)
		f.opts.MarketFilter.Enabled = true
		f.provider.Series["^GSPC"] = compounding(60, 5000, -0.005)

		res, err := f.runner(nil).Run(context.Background(), friday)
		require.NoError(t, err)
		assert.True(t, res.Result.State.InCash)
		assert.Equal(t, []string{strategy.ReasonBenchmarkDowntrend}, res.Result.CashReasons)
		assert.Equal(t, 11, res.Result.Qualifying)
	})

	t.Run("uptrend allows entries", func(t *testing.T) {
		f := newFixture(t)
		f.opts.MarketFilter.Enabled = true
		f.provider.Series["^GSPC"] = compounding(60, 5000, 0.005)

		res, err := f.runner(nil).Run(context.Background(), friday)
		require.NoError(t, err)
		assert.Len(t, res.Result.State.Holdings, 11)
	})

	t.Run("missing benchmark forces cash", func(t *testing.T) {
		f := newFixture(t)
		f.opts.MarketFilter.Enabled = true

		res, err := f.runner(nil).Run(context.Background(), friday)
		require.NoError(t, err)
		assert.Equal(t, []string{strategy.ReasonBenchmarkUnavailable}, res.Result.CashReasons)
	})
}

func TestReplay_RebuildsLiveState(t *testing.T) {
	f := newFixture(t)
	r := f.runner(nil)
	_, err := r.Run(context.Background(), friday)
	require.NoError(t, err)

	// T03 drops out in week two
	f.provider.Series["T03"] = compounding(60, 40, -0.01)
	live, err := r.Run(context.Background(), nextFriday)
	require.NoError(t, err)
	require.Len(t, live.Result.State.Holdings, 10)

	out := store.New(filepath.Join(f.dir, "replay"), zerolog.Nop())
	res, err := r.Replay(out)
	require.NoError(t, err)

	assert.Equal(t, live.Result.State.Version, res.State.Version)
	assert.Equal(t, len(live.Result.State.Holdings), len(res.State.Holdings))
	for sym, h := range live.Result.State.Holdings {
		assert.InEpsilon(t, h.Shares, res.State.Holdings[sym].Shares, 1e-4)
	}
	assert.InEpsilon(t, live.Result.State.NAV, res.State.NAV, 1e-5)
	require.Len(t, res.History, 2)

	replayed, err := out.ReadTrades()
	require.NoError(t, err)
	liveTrades, err := f.out.ReadTrades()
	require.NoError(t, err)
	assert.Len(t, replayed, len(liveTrades))

	_, err = r.Replay(f.out)
	assert.Error(t, err)
}

func TestReplay_RefusesLiveDirectorySpelledDifferently(t *testing.T) {
	f := newFixture(t)
	r := f.runner(nil)
	_, err := r.Run(context.Background(), friday)
	require.NoError(t, err)
	before, err := os.ReadFile(f.out.Path(store.NAVFile))
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, f.out.Dir())
	require.NoError(t, err)

	for _, dir := range []string{
		f.out.Dir() + string(filepath.Separator) + ".",
		f.out.Dir() + string(filepath.Separator),
		rel,
	} {
		_, err := r.Replay(store.New(dir, zerolog.Nop()))
		assert.Error(t, err, dir)
	}
	after, err := os.ReadFile(f.out.Path(store.NAVFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
