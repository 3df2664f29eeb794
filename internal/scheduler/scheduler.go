package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"MomentumTracker/internal/model"
	"MomentumTracker/internal/notifier"
	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/recorder"
	"MomentumTracker/internal/runner"
	"MomentumTracker/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const historyLimit = 8

// WeeklyRunner is the part of runner.Runner the scheduler drives.
type WeeklyRunner interface {
	Run(ctx context.Context, date time.Time) (*runner.RunResult, error)
}

// Scheduler triggers weekly runs on a cron schedule and answers chat commands.
type Scheduler struct {
	cron     *cron.Cron
	runner   WeeklyRunner
	store    *store.Store
	recorder recorder.Recorder
	notifier runner.Notifier
	ctx      context.Context
	log      zerolog.Logger
	now      func() time.Time

	// serialises cron-triggered and manual runs
	mu sync.Mutex
}

// NewScheduler creates a Scheduler. rec and n may be nil.
func NewScheduler(ctx context.Context, r WeeklyRunner, st *store.Store, rec recorder.Recorder, n runner.Notifier, log zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:   r,
		store:    st,
		recorder: rec,
		notifier: n,
		ctx:      ctx,
		log:      log,
		now:      time.Now,
	}
}

// Register adds the weekly run job.
func (s *Scheduler) Register(weeklyCron string) error {
	if _, err := s.cron.AddFunc(weeklyCron, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register weekly task %q: %w", weeklyCron, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the weekly run for today. Failures are logged and reported
// to the chat; the run itself sends the success report.
func (s *Scheduler) RunNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := runner.RunDate(s.now())
	s.log.Info().Str("date", date.Format("2006-01-02")).Msg("running weekly task")
	if _, err := s.runner.Run(s.ctx, date); err != nil {
		s.log.Error().Err(err).Msg("weekly run failed")
		s.trySend(notifier.FormatRunFailure(date, err))
		return err
	}
	return nil
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/nav@SomeBot" in group chats
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/run":
		err := s.RunNow()
		switch {
		case s.notifier != nil:
			return ""
		case err != nil:
			return notifier.FormatRunFailure(runner.RunDate(s.now()), err)
		default:
			return "Run completed."
		}
	case "/nav":
		return s.navReply()
	case "/holdings":
		state, err := s.currentState()
		if err != nil {
			return errorReply(err)
		}
		return notifier.FormatHoldings(state)
	case "/history":
		runs, err := s.recorder.RecentRuns(historyLimit)
		if err != nil {
			return errorReply(err)
		}
		return notifier.FormatHistory(runs)
	default:
		return helpText
	}
}

const helpText = "Commands:\n" +
	"/nav - current NAV and track record\n" +
	"/holdings - open positions\n" +
	"/history - recent runs\n" +
	"/run - run this week's rebalance now"

func (s *Scheduler) navReply() string {
	state, err := s.currentState()
	if err != nil {
		return errorReply(err)
	}
	history, err := s.store.ReadNAVHistory()
	if err != nil {
		return errorReply(err)
	}
	return notifier.FormatNAV(state, portfolio.Summarize(history))
}

func (s *Scheduler) currentState() (model.PortfolioState, error) {
	state, ok, err := s.store.LoadState()
	if err != nil {
		return model.PortfolioState{}, err
	}
	if !ok {
		return model.PortfolioState{}, fmt.Errorf("no portfolio state yet, run the first rebalance with /run")
	}
	return state, nil
}

func errorReply(err error) string {
	return "⚠️ " + html.EscapeString(err.Error())
}

func (s *Scheduler) trySend(text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(s.ctx, text); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
