package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at       INTEGER NOT NULL,
			run_date          TEXT NOT NULL UNIQUE,
			version           INTEGER,
			pre_nav           REAL,
			nav               REAL,
			cash              REAL,
			weekly_return_pct REAL,
			holdings          INTEGER,
			qualifying        INTEGER,
			failures          INTEGER,
			in_cash           INTEGER,
			cash_reasons      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS scan_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_date    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			name        TEXT,
			region      TEXT,
			close       REAL,
			ema_fast    REAL,
			ema_slow    REAL,
			macd        REAL,
			signal      REAL,
			histogram   REAL,
			rank_score  REAL,
			qualifies   INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_date ON scan_records(run_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_symbol ON scan_records(symbol)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_date     TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			action       TEXT,
			shares       REAL,
			price        REAL,
			cost_basis   REAL,
			realized_pnl REAL,
			reason       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(run_date)`,

		`CREATE TABLE IF NOT EXISTS holdings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_date   TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			shares     REAL,
			cost_basis REAL,
			last_price REAL,
			entry_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_holdings_date ON holdings(run_date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores one run in a single transaction. Recording the same date
// twice fails on the runs table and leaves the earlier rows in place.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := snap.Scan.Date.Format(dateLayout)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	failures := snap.Scan.Failures()
	_, err = tx.Exec(`INSERT INTO runs
		(recorded_at, run_date, version, pre_nav, nav, cash, weekly_return_pct,
		 holdings, qualifying, failures, in_cash, cash_reasons)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), date, snap.State.Version, snap.PreNAV, snap.State.NAV, snap.State.Cash,
		snap.NAV.WeeklyReturnPct, len(snap.State.Holdings), snap.NAV.QualifyingCount, failures,
		snap.State.InCash, strings.Join(snap.CashReasons, ","),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range snap.Scan.Records {
		var fast, slow, macd, signal, hist sql.NullFloat64
		if ind := rec.Indicators; ind != nil {
			fast = sql.NullFloat64{Float64: ind.FastEMA, Valid: true}
			slow = sql.NullFloat64{Float64: ind.SlowEMA, Valid: true}
			macd = sql.NullFloat64{Float64: ind.MACD, Valid: true}
			signal = sql.NullFloat64{Float64: ind.Signal, Valid: true}
			hist = sql.NullFloat64{Float64: ind.Histogram, Valid: true}
		}
		_, err := tx.Exec(`INSERT INTO scan_records
			(run_date, symbol, name, region, close, ema_fast, ema_slow, macd, signal, histogram,
			 rank_score, qualifies, error)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			date, rec.Symbol, rec.Name, rec.Region, rec.Close, fast, slow, macd, signal, hist,
			rec.RankScore, rec.Qualifies, rec.Error,
		)
		if err != nil {
			return fmt.Errorf("insert scan record %s: %w", rec.Symbol, err)
		}
	}

	for _, t := range snap.Trades {
		var pnl sql.NullFloat64
		if t.RealizedPnL != nil {
			pnl = sql.NullFloat64{Float64: *t.RealizedPnL, Valid: true}
		}
		_, err := tx.Exec(`INSERT INTO trades
			(run_date, symbol, action, shares, price, cost_basis, realized_pnl, reason)
			VALUES (?,?,?,?,?,?,?,?)`,
			date, t.Symbol, string(t.Action), t.Shares, t.Price, t.CostBasis, pnl, t.Reason,
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", t.Symbol, err)
		}
	}

	for sym, h := range snap.State.Holdings {
		_, err := tx.Exec(`INSERT INTO holdings
			(run_date, symbol, shares, cost_basis, last_price, entry_date)
			VALUES (?,?,?,?,?,?)`,
			date, sym, h.Shares, h.CostBasis, h.LastPrice, h.EntryDate.Format(dateLayout),
		)
		if err != nil {
			return fmt.Errorf("insert holding %s: %w", sym, err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_date, version, nav, weekly_return_pct, holdings,
		qualifying, failures, in_cash, cash_reasons
		FROM runs ORDER BY run_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var date string
		if err := rows.Scan(&date, &s.Version, &s.NAV, &s.WeeklyReturnPct, &s.Holdings,
			&s.Qualifying, &s.Failures, &s.InCash, &s.CashReasons); err != nil {
			return nil, err
		}
		if s.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
