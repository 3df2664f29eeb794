package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/recorder"
	"MomentumTracker/internal/runner"
	"MomentumTracker/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDay = time.Date(2025, 3, 7, 22, 0, 0, 0, time.UTC)

type fakeRunner struct {
	mu    sync.Mutex
	dates []time.Time
	err   error
}

func (f *fakeRunner) Run(_ context.Context, date time.Time) (*runner.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, date)
	if f.err != nil {
		return nil, f.err
	}
	return &runner.RunResult{}, nil
}

type captureNotifier struct {
	msgs []string
}

func (c *captureNotifier) Notify(_ context.Context, text string) error {
	c.msgs = append(c.msgs, text)
	return nil
}

type stubRecorder struct {
	recorder.NoopRecorder
	runs []recorder.RunSummary
}

func (s *stubRecorder) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	if len(s.runs) > limit {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func newTestScheduler(t *testing.T, r WeeklyRunner, rec recorder.Recorder, n runner.Notifier) (*Scheduler, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir(), zerolog.Nop())
	s := NewScheduler(context.Background(), r, st, rec, n, zerolog.Nop())
	s.now = func() time.Time { return runDay }
	return s, st
}

func commitWeek(t *testing.T, st *store.Store) {
	t.Helper()
	date := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	state := model.PortfolioState{
		Version: 1, AsOf: date, InceptionDate: date, Cash: 0, NAV: 100000,
		Holdings: map[string]model.Holding{
			"AAPL": {Symbol: "AAPL", Shares: 400, CostBasis: 240, LastPrice: 250, EntryDate: date},
		},
	}
	err := st.Commit(store.Batch{
		Scan:  model.Scan{Date: date, Records: []model.ScanRecord{{Symbol: "AAPL", Close: 250}}},
		State: state,
		NAV:   model.NAVPoint{Date: date, NAV: 100000, NumHoldings: 1, QualifyingCount: 1},
	})
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeRunner{}, nil, nil)
	require.NoError(t, s.Register("0 0 22 * * 5"))
	assert.Len(t, s.cron.Entries(), 1)

	err := s.Register("every friday")
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	fr := &fakeRunner{}
	n := &captureNotifier{}
	s, _ := newTestScheduler(t, fr, nil, n)

	require.NoError(t, s.RunNow())
	require.Len(t, fr.dates, 1)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), fr.dates[0])
	assert.Empty(t, n.msgs)
}

func TestRunNow_FailureIsReported(t *testing.T) {
	fr := &fakeRunner{err: errors.New("price provider unavailable")}
	n := &captureNotifier{}
	s, _ := newTestScheduler(t, fr, nil, n)

	assert.Error(t, s.RunNow())
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "Run failed")
	assert.Contains(t, n.msgs[0], "price provider unavailable")

	assert.Equal(t, "", s.HandleCommand("/run"))
	assert.Len(t, n.msgs, 2)
}

func TestHandleCommand_RunWithoutNotifier(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeRunner{}, nil, nil)
	assert.Equal(t, "Run completed.", s.HandleCommand("/run"))

	s, _ = newTestScheduler(t, &fakeRunner{err: errors.New("boom")}, nil, nil)
	assert.Contains(t, s.HandleCommand("/run"), "boom")
}

func TestHandleCommand_StateQueries(t *testing.T) {
	s, st := newTestScheduler(t, &fakeRunner{}, nil, nil)

	assert.Contains(t, s.HandleCommand("/nav"), "no portfolio state yet")
	assert.Contains(t, s.HandleCommand("/holdings"), "no portfolio state yet")

	commitWeek(t, st)

	nav := s.HandleCommand("/nav")
	assert.Contains(t, nav, "100,000.00")
	assert.Contains(t, nav, "v1")

	holdings := s.HandleCommand("/holdings@MomentumBot")
	assert.Contains(t, holdings, "AAPL")
	assert.Contains(t, holdings, "100,000.00")
}

func TestHandleCommand_History(t *testing.T) {
	rec := &stubRecorder{}
	for i := 0; i < 10; i++ {
		rec.runs = append(rec.runs, recorder.RunSummary{
			Date: runDay.AddDate(0, 0, -7*i), Version: 10 - i, NAV: 100000, Holdings: 3,
		})
	}
	s, _ := newTestScheduler(t, &fakeRunner{}, rec, nil)

	reply := s.HandleCommand("/history")
	assert.Contains(t, reply, "Recent runs")
	assert.Contains(t, reply, "2025-03-07")
	assert.NotContains(t, reply, runDay.AddDate(0, 0, -7*9).Format("2006-01-02"))

	s, _ = newTestScheduler(t, &fakeRunner{}, nil, nil)
	assert.Equal(t, "No recorded runs yet.", s.HandleCommand("/history"))
}

func TestHandleCommand_Help(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeRunner{}, nil, nil)
	for _, cmd := range []string{"", "hello", "/start"} {
		assert.Equal(t, helpText, s.HandleCommand(cmd), cmd)
	}
}
