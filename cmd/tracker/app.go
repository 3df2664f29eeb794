package main

import (
	"fmt"

	"MomentumTracker/internal/collector"
	"MomentumTracker/internal/config"
	"MomentumTracker/internal/notifier"
	"MomentumTracker/internal/recorder"
	"MomentumTracker/internal/runner"
	"MomentumTracker/internal/store"
	"MomentumTracker/pkg/logger"

	"github.com/rs/zerolog"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    *store.Store
	recorder recorder.Recorder
	notifier *notifier.TelegramNotifier
	runner   *runner.Runner
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	provider, err := newProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", provider.Name()).Str("config", configPath).Msg("tracker starting")

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store.New(cfg.Output.Dir, log),
		recorder: newRecorder(cfg, log),
	}
	var n runner.Notifier
	if cfg.NotificationsEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = a.notifier
	}

	mf := cfg.Strategy.MarketFilter
	a.runner = runner.New(runner.Deps{
		Provider: provider,
		Scanner:  collector.NewScanner(provider, cfg.ScannerOptions(), log),
		Store:    a.store,
		Recorder: a.recorder,
		Notifier: n,
	}, runner.Options{
		UniverseFile: cfg.Universe.File,
		Portfolio:    cfg.PortfolioConfig(),
		MarketFilter: runner.MarketFilter{
			Enabled:       mf.Enabled,
			Symbol:        mf.Symbol,
			FastPeriod:    mf.FastPeriod,
			SlowPeriod:    mf.SlowPeriod,
			LookbackWeeks: cfg.DataSource.LookbackWeeks,
		},
	}, log)
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("close recorder")
	}
}

func newProvider(cfg *config.Config, log zerolog.Logger) (collector.Provider, error) {
	ds := cfg.DataSource
	var p collector.Provider
	switch ds.Provider {
	case config.ProviderYahoo:
		p = collector.NewYahooChartProvider(cfg.Proxy, ds.FetchTimeout)
	case config.ProviderYFinance:
		p = collector.NewYFinanceProvider(log)
	case config.ProviderREST:
		p = collector.NewRESTProvider(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.FetchTimeout)
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
	return collector.NewResilientProvider(p, cfg.ResilienceConfig(), log), nil
}

// newRecorder opens the SQLite history, falling back to a no-op recorder:
// the database is a secondary sink and must not block a run.
func newRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}
