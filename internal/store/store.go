package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"MomentumTracker/internal/model"

	"github.com/rs/zerolog"
)

// ErrSnapshotExists is returned when a scan for the run date was already written.
var ErrSnapshotExists = errors.New("scan snapshot already exists")

// Artifact names under the output directory.
const (
	ScansDir      = "scans"
	StateFile     = "portfolio_state.json"
	TradeLogFile  = "trade_log.csv"
	NAVFile       = "nav_history.csv"
	DashboardFile = "index.html"
)

// Store owns the artifacts of one output directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log.With().Str("component", "store").Logger()}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Path joins name to the output directory.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// ScanPath returns the snapshot path for date.
func (s *Store) ScanPath(date time.Time) string {
	return filepath.Join(s.dir, ScansDir, date.Format(dateLayout)+".csv")
}

// HasScan reports whether a snapshot for date exists.
func (s *Store) HasScan(date time.Time) (bool, error) {
	_, err := os.Stat(s.ScanPath(date))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// HasHistory reports whether a trade log or NAV history was ever written.
func (s *Store) HasHistory() bool {
	for _, name := range []string{TradeLogFile, NAVFile} {
		if _, err := os.Stat(s.Path(name)); err == nil {
			return true
		}
	}
	return false
}

// LoadState reads the current portfolio state.
func (s *Store) LoadState() (model.PortfolioState, bool, error) {
	return LoadState(s.Path(StateFile))
}

// Batch is everything one run persists.
type Batch struct {
	Scan   model.Scan
	State  model.PortfolioState
	Trades []model.TradeRecord
	NAV    model.NAVPoint
}

// Commit writes the scan snapshot, appends the trade log and NAV history and
// replaces the state. Every file is staged first; nothing is renamed into
// place unless all of them were staged, and the state file goes last.
func (s *Store) Commit(b Batch) error {
	exists, err := s.HasScan(b.Scan.Date)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, s.ScanPath(b.Scan.Date))
	}
	if err := os.MkdirAll(filepath.Join(s.dir, ScansDir), 0755); err != nil {
		return err
	}

	var scanBuf bytes.Buffer
	if err := EncodeScan(&scanBuf, b.Scan); err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}

	tradeRows := make([][]string, len(b.Trades))
	for i, t := range b.Trades {
		tradeRows[i] = tradeRow(t)
	}
	trades, err := s.appended(TradeLogFile, tradeHeader, tradeRows)
	if err != nil {
		return fmt.Errorf("trade log: %w", err)
	}
	navs, err := s.appended(NAVFile, navHeader, [][]string{navRow(b.NAV)})
	if err != nil {
		return fmt.Errorf("nav history: %w", err)
	}
	state, err := encodeState(b.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	err = s.publish([]pending{
		{path: s.ScanPath(b.Scan.Date), data: scanBuf.Bytes()},
		{path: s.Path(TradeLogFile), data: trades},
		{path: s.Path(NAVFile), data: navs},
		{path: s.Path(StateFile), data: state},
	})
	if err != nil {
		return err
	}
	s.log.Info().
		Str("date", b.Scan.Date.Format(dateLayout)).
		Int("version", b.State.Version).
		Int("trades", len(b.Trades)).
		Msg("artifacts committed")
	return nil
}

// Replace overwrites state, trade log and NAV history, e.g. with a replay.
func (s *Store) Replace(state model.PortfolioState, trades []model.TradeRecord, history []model.NAVPoint) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	tradeRows := make([][]string, len(trades))
	for i, t := range trades {
		tradeRows[i] = tradeRow(t)
	}
	navRows := make([][]string, len(history))
	for i, p := range history {
		navRows[i] = navRow(p)
	}
	tradeData, err := appendRows(nil, tradeHeader, tradeRows)
	if err != nil {
		return err
	}
	navData, err := appendRows(nil, navHeader, navRows)
	if err != nil {
		return err
	}
	stateData, err := encodeState(state)
	if err != nil {
		return err
	}
	return s.publish([]pending{
		{path: s.Path(TradeLogFile), data: tradeData},
		{path: s.Path(NAVFile), data: navData},
		{path: s.Path(StateFile), data: stateData},
	})
}

func (s *Store) appended(name string, header []string, rows [][]string) ([]byte, error) {
	existing, err := os.ReadFile(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return appendRows(existing, header, rows)
}

// ReadScans loads every snapshot in date order.
func (s *Store) ReadScans() ([]model.Scan, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, ScansDir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scans := make([]model.Scan, 0, len(paths))
	for _, p := range paths {
		date, err := time.Parse(dateLayout, strings.TrimSuffix(filepath.Base(p), ".csv"))
		if err != nil {
			s.log.Warn().Str("path", p).Msg("skipping file without a date name")
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		scan, err := DecodeScan(f, date)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scans = append(scans, scan)
	}
	return scans, nil
}

// LastCommitted returns the latest date found in any scan snapshot name, trade
// log row or NAV row, or the zero time when nothing was written. A state file
// older than this date means a commit was interrupted after the first rename.
func (s *Store) LastCommitted() (time.Time, error) {
	var last time.Time
	later := func(t time.Time) {
		if t.After(last) {
			last = t
		}
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, ScansDir, "*.csv"))
	if err != nil {
		return time.Time{}, err
	}
	for _, p := range paths {
		if date, err := time.Parse(dateLayout, strings.TrimSuffix(filepath.Base(p), ".csv")); err == nil {
			later(date)
		}
	}

	trades, err := s.ReadTrades()
	if err != nil {
		return time.Time{}, fmt.Errorf("trade log: %w", err)
	}
	for _, t := range trades {
		later(t.Date)
	}
	navs, err := s.ReadNAVHistory()
	if err != nil {
		return time.Time{}, fmt.Errorf("nav history: %w", err)
	}
	for _, n := range navs {
		later(n.Date)
	}
	return last, nil
}

// ReadTrades loads the trade log; a missing file is an empty log.
func (s *Store) ReadTrades() ([]model.TradeRecord, error) {
	f, err := os.Open(s.Path(TradeLogFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTrades(f)
}

// ReadNAVHistory loads the NAV history; a missing file is an empty history.
func (s *Store) ReadNAVHistory() ([]model.NAVPoint, error) {
	f, err := os.Open(s.Path(NAVFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeNAV(f)
}
