package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-ops/drverify/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	flagTopology string
	flagUsername string
	flagPassword string
	flagLogLevel string
	flagLogJSON  bool
	flagDataDir  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drverify",
	Short: "drverify - replication verification and promotion orchestrator",
	Long: `drverify validates disaster-recovery readiness of an asynchronously
replicated topology: it confirms the active replication link, measures
replication lag, and optionally drives a controlled promotion of a
downstream cluster followed by a guaranteed restoration of the original
topology.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(log.Config{
			Level:      log.Level(flagLogLevel),
			JSONOutput: flagLogJSON,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"drverify version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&flagTopology, "topology", "topology.yaml", "Path to the topology registry file")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "Management username (or DRVERIFY_USERNAME)")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "Management password (or DRVERIFY_PASSWORD, or interactive prompt)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", ".", "Directory for the run journal database")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(topologyCmd)
	rootCmd.AddCommand(reportCmd)
}
