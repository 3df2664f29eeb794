package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MomentumTracker/internal/calculator"
	"MomentumTracker/internal/collector"
	"MomentumTracker/internal/model"
	"MomentumTracker/internal/portfolio"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported data providers.
const (
	ProviderYahoo    = "yahoo"
	ProviderYFinance = "yfinance"
	ProviderREST     = "rest"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider          string        `yaml:"provider"`
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		LookbackWeeks     int           `yaml:"lookback_weeks"`
		Concurrency       int           `yaml:"concurrency"`
		FetchTimeout      time.Duration `yaml:"fetch_timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		MaxAttempts       int           `yaml:"max_attempts"`
		BreakerFailures   uint32        `yaml:"breaker_failures"`
		BreakerCooldown   time.Duration `yaml:"breaker_cooldown"`
	} `yaml:"data_source"`
	Universe struct {
		File string `yaml:"file"`
	} `yaml:"universe"`
	Strategy struct {
		MACD         calculator.MACDConfig `yaml:"macd"`
		MaxPositions int                   `yaml:"max_positions"`
		MarketFilter struct {
			Enabled    bool   `yaml:"enabled"`
			Symbol     string `yaml:"symbol"`
			FastPeriod int    `yaml:"fast_period"`
			SlowPeriod int    `yaml:"slow_period"`
		} `yaml:"market_filter"`
	} `yaml:"strategy"`
	Portfolio struct {
		StartingNAV   float64 `yaml:"starting_nav"`
		MinQualifiers int     `yaml:"min_qualifiers"`
		Tolerance     float64 `yaml:"tolerance"`
	} `yaml:"portfolio"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Schedule struct {
		WeeklyCron string `yaml:"weekly_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, &model.ConfigError{Field: "file", Err: fmt.Errorf("read config: %w", err)}
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &model.ConfigError{Field: "file", Err: fmt.Errorf("parse config: %w", err)}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Schedule.WeeklyCron, "CRON_WEEKLY")
	setString(&c.Output.Dir, "OUTPUT_DIR")
	setString(&c.Universe.File, "UNIVERSE_FILE")
	setString(&c.DataSource.Provider, "DATA_PROVIDER")
	setString(&c.DataSource.BaseURL, "DATA_BASE_URL")
	setString(&c.DataSource.APIKey, "DATA_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("MIN_QUALIFIERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &model.ConfigError{Field: "MIN_QUALIFIERS", Err: err}
		}
		c.Portfolio.MinQualifiers = n
	}
	if v := os.Getenv("STARTING_NAV"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &model.ConfigError{Field: "STARTING_NAV", Err: err}
		}
		c.Portfolio.StartingNAV = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.Provider == "" {
		ds.Provider = ProviderYahoo
	}
	ds.Provider = strings.ToLower(ds.Provider)
	if ds.LookbackWeeks == 0 {
		ds.LookbackWeeks = 104
	}
	if ds.Concurrency == 0 {
		ds.Concurrency = 4
	}
	if ds.FetchTimeout == 0 {
		ds.FetchTimeout = 30 * time.Second
	}
	res := collector.DefaultResilienceConfig()
	if ds.RequestsPerSecond == 0 {
		ds.RequestsPerSecond = 2
	}
	if ds.MaxAttempts == 0 {
		ds.MaxAttempts = res.MaxAttempts
	}
	if ds.BreakerFailures == 0 {
		ds.BreakerFailures = res.BreakerFailures
	}
	if ds.BreakerCooldown == 0 {
		ds.BreakerCooldown = res.BreakerCooldown
	}

	if c.Universe.File == "" {
		c.Universe.File = "tickers.csv"
	}

	def := calculator.DefaultMACDConfig()
	if c.Strategy.MACD.Fast == 0 {
		c.Strategy.MACD.Fast = def.Fast
	}
	if c.Strategy.MACD.Slow == 0 {
		c.Strategy.MACD.Slow = def.Slow
	}
	if c.Strategy.MACD.Signal == 0 {
		c.Strategy.MACD.Signal = def.Signal
	}
	mf := &c.Strategy.MarketFilter
	if mf.Symbol == "" {
		mf.Symbol = "^GSPC"
	}
	if mf.FastPeriod == 0 {
		mf.FastPeriod = 10
	}
	if mf.SlowPeriod == 0 {
		mf.SlowPeriod = 20
	}

	pd := portfolio.DefaultConfig()
	if c.Portfolio.StartingNAV == 0 {
		c.Portfolio.StartingNAV = pd.StartingNAV
	}
	if c.Portfolio.MinQualifiers == 0 {
		c.Portfolio.MinQualifiers = pd.MinQualifiers
	}
	if c.Portfolio.Tolerance == 0 {
		c.Portfolio.Tolerance = pd.Tolerance
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "docs"
	}
	if c.Schedule.WeeklyCron == "" {
		c.Schedule.WeeklyCron = "0 0 22 * * 5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/momentum.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration needed for a run.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderYFinance:
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return &model.ConfigError{Field: "data_source.base_url", Err: errors.New("required for the rest provider")}
		}
	default:
		return &model.ConfigError{Field: "data_source.provider", Err: fmt.Errorf("unknown provider %q", c.DataSource.Provider)}
	}
	if c.DataSource.LookbackWeeks < c.Strategy.MACD.MinPoints() {
		return &model.ConfigError{
			Field: "data_source.lookback_weeks",
			Err:   fmt.Errorf("%d weeks cannot cover the %d points MACD needs", c.DataSource.LookbackWeeks, c.Strategy.MACD.MinPoints()),
		}
	}
	if c.DataSource.Concurrency < 1 {
		return &model.ConfigError{Field: "data_source.concurrency", Err: errors.New("must be at least 1")}
	}
	if err := c.Strategy.MACD.Validate(); err != nil {
		return &model.ConfigError{Field: "strategy.macd", Err: err}
	}
	mf := c.Strategy.MarketFilter
	if mf.Enabled && (mf.FastPeriod <= 0 || mf.FastPeriod >= mf.SlowPeriod) {
		return &model.ConfigError{Field: "strategy.market_filter", Err: errors.New("fast_period must be positive and below slow_period")}
	}
	if c.Universe.File == "" {
		return &model.ConfigError{Field: "universe.file", Err: errors.New("required")}
	}
	if c.Output.Dir == "" {
		return &model.ConfigError{Field: "output.dir", Err: errors.New("required")}
	}
	return c.PortfolioConfig().Validate()
}

// NotificationsEnabled reports whether Telegram credentials are set.
func (c *Config) NotificationsEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// PortfolioConfig returns the rebalance parameters.
func (c *Config) PortfolioConfig() portfolio.Config {
	return portfolio.Config{
		StartingNAV:   c.Portfolio.StartingNAV,
		MinQualifiers: c.Portfolio.MinQualifiers,
		MaxPositions:  c.Strategy.MaxPositions,
		Tolerance:     c.Portfolio.Tolerance,
	}
}

// ScannerOptions returns the scan parameters.
func (c *Config) ScannerOptions() collector.ScannerOptions {
	return collector.ScannerOptions{
		MACD:          c.Strategy.MACD,
		LookbackWeeks: c.DataSource.LookbackWeeks,
		Concurrency:   c.DataSource.Concurrency,
		FetchTimeout:  c.DataSource.FetchTimeout,
	}
}

// ResilienceConfig returns the provider throttling and retry settings.
func (c *Config) ResilienceConfig() collector.ResilienceConfig {
	res := collector.DefaultResilienceConfig()
	res.RequestsPerSecond = c.DataSource.RequestsPerSecond
	res.Burst = c.DataSource.Concurrency
	res.MaxAttempts = c.DataSource.MaxAttempts
	res.BreakerFailures = c.DataSource.BreakerFailures
	res.BreakerCooldown = c.DataSource.BreakerCooldown
	return res
}
