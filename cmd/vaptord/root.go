// Command vaptord is the orchestrator: the REST control surface, the
// scan-status consumer, and the operational subcommands (schema migration,
// external-tool check) that support them. Each stage worker is its own
// separate binary under cmd/ — see internal/worker and internal/stage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vapter/vaptord/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vaptord",
	Short: "Distributed vulnerability-assessment pipeline orchestrator",
	Long: `vaptord coordinates a vulnerability-assessment pipeline across six
independent stage workers (nmap, fingerprint, web, vuln-lookup, vuln-engine,
report), tracking every scan's progress in Postgres and dispatching the next
stage over a durable message broker as each one completes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.Version = "0.1.0-dev"
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
