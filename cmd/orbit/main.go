package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"orbit/internal/config"
	"orbit/internal/logging"
)

var (
	// Global flags
	configPath  string
	maxSteps    int
	tokenBudget int
	verbose     bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "orbit",
	Short: "orbit - bounded ReAct agent with reflective memory",
	Long: `orbit runs research goals through a reason/act/observe loop with hard
step and token budgets, episodic reflection on tool failures, rolling
context compaction, and retrieval with relevance grading.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if maxSteps > 0 {
			cfg.Agent.MaxSteps = maxSteps
		}
		if tokenBudget > 0 {
			cfg.Agent.TokenBudget = tokenBudget
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return logging.Init(cfg.Logging.Level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "orbit.yaml", "path to config file")
	rootCmd.PersistentFlags().IntVar(&maxSteps, "max-steps", 0, "override maximum reasoning steps per goal")
	rootCmd.PersistentFlags().IntVar(&tokenBudget, "token-budget", 0, "override token budget per goal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tracesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
