package runner

import (
	"errors"
	"fmt"
	"path/filepath"

	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/store"
)

// Replay rebuilds state, trade log and NAV history from every stored scan
// snapshot and writes them to out. Live artifacts are only read.
// The market filter is not replayed: benchmark history is not snapshotted.
func (r *Runner) Replay(out *store.Store) (portfolio.ReplayResult, error) {
	same, err := sameDir(out.Dir(), r.deps.Store.Dir())
	if err != nil {
		return portfolio.ReplayResult{}, err
	}
	if same {
		return portfolio.ReplayResult{}, errors.New("replay output must differ from the live output directory")
	}
	scans, err := r.deps.Store.ReadScans()
	if err != nil {
		return portfolio.ReplayResult{}, fmt.Errorf("read scans: %w", err)
	}
	if len(scans) == 0 {
		return portfolio.ReplayResult{}, errors.New("no scan snapshots to replay")
	}

	initial := portfolio.NewState(r.opts.Portfolio.StartingNAV, scans[0].Date)
	res := portfolio.Replay(initial, scans, r.engine, nil)
	if err := out.Replace(res.State, res.Trades, res.History); err != nil {
		return portfolio.ReplayResult{}, fmt.Errorf("write replay: %w", err)
	}

	r.log.Info().
		Int("scans", len(scans)).
		Int("trades", len(res.Trades)).
		Float64("nav", res.State.NAV).
		Str("out", out.Dir()).
		Msg("replay complete")
	return res, nil
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
