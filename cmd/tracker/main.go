package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command of the tracker CLI.
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Weekly MACD momentum model portfolio",
	Long: `tracker scans a universe of tickers once a week, keeps the ones whose
weekly MACD and histogram are both positive, and rebalances an equal-weight
model portfolio into them. Results are written as CSV/JSON artifacts and an
HTML dashboard under the configured output directory.`,
	SilenceUsage: true,
}

func init() {
	def := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", def, "path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
