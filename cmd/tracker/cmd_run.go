package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runDate string

// runCmd executes a single weekly rebalance.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one weekly scan and rebalance",
	Long: `Scan the universe, rebalance the model portfolio and commit the scan
snapshot, trade log, NAV history and state for the run date. A date whose
snapshot already exists is rejected.

Examples:
  tracker run
  tracker run --date 2025-03-07`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "run date as YYYY-MM-DD (default today)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if runDate != "" {
		d, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", runDate, err)
		}
		date = d
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.runner.Run(ctx, date)
	if err != nil {
		a.log.Error().Err(err).Msg("run failed")
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  NAV %.2f  (%+.2f%%)  holdings %d  qualifying %d  trades %d\n",
		res.Scan.Date.Format("2006-01-02"), res.Result.State.NAV, res.NAV.WeeklyReturnPct,
		len(res.Result.State.Holdings), res.Result.Qualifying, len(res.Result.Trades))
	return nil
}
