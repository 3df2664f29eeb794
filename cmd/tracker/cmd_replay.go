package main

import (
	"fmt"
	"path/filepath"

	"MomentumTracker/internal/portfolio"
	"MomentumTracker/internal/store"

	"github.com/spf13/cobra"
)

var replayOut string

// replayCmd rebuilds the portfolio history from stored scan snapshots.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild state, trades and NAV history from scan snapshots",
	Long: `Fold every stored scans/*.csv snapshot through the rebalance engine,
starting from the configured starting NAV, and write the reconstructed state,
trade log and NAV history to --out. Live artifacts are only read.`,
	RunE: replay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayOut, "out", "", "output directory (default <output_dir>/replay)")
}

func replay(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := replayOut
	if out == "" {
		out = filepath.Join(a.cfg.Output.Dir, "replay")
	}
	res, err := a.runner.Replay(store.New(out, a.log))
	if err != nil {
		return err
	}

	sum := portfolio.Summarize(res.History)
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d weeks into %s\n", sum.Weeks, out)
	fmt.Fprintf(cmd.OutOrStdout(), "NAV %.2f -> %.2f (%+.2f%%), max drawdown %.2f%%, %d weeks in cash, %d trades\n",
		sum.StartNAV, sum.EndNAV, sum.TotalReturnPct, sum.MaxDrawdownPct, sum.WeeksInCash, len(res.Trades))
	return nil
}
