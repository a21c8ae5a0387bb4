package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"orbit/internal/agent"
	"orbit/internal/config"
	"orbit/internal/logging"
	"orbit/internal/perception"
	"orbit/internal/search"
	"orbit/internal/store"
	"orbit/internal/tools"
)

var watchConfig bool

var runCmd = &cobra.Command{
	Use:   "run [goal]...",
	Short: "Run one or more goals through the agent loop",
	Long: `Executes each goal as an independent trajectory. Multiple goals run
concurrently; each gets its own context, memory, and budget. Final
answers stream to stdout as they are synthesized.

Example:
  orbit run "find the population of Tokyo"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGoals,
}

func init() {
	runCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "reload config on file change")
}

func runGoals(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := perception.NewClient(cfg)
	if err != nil {
		return err
	}

	traces, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer traces.Close()

	registry, err := buildRegistry(cfg, traces)
	if err != nil {
		return err
	}
	controller := agent.NewController(llm, registry)

	if watchConfig {
		watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
			cfg = updated
		})
		if err != nil {
			logging.BootDebug("config watch unavailable: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, goal := range args {
		goal := goal
		single := len(args) == 1
		g.Go(func() error {
			opts := agent.Options{
				MaxSteps:    cfg.Agent.MaxSteps,
				TokenBudget: cfg.Agent.TokenBudget,
				MaxRetries:  cfg.Agent.MaxToolRetries,
				MaxTokens:   cfg.Context.MaxTokens,
			}
			if single {
				// Stream the final answer live only when there is no
				// interleaving to garble.
				opts.OnSynthesis = func(delta string) { fmt.Print(delta) }
			}

			tr, err := controller.Run(ctx, goal, opts)
			if err != nil {
				return err
			}

			if single {
				fmt.Println()
			} else {
				fmt.Printf("\n=== %s ===\n%s\n", goal, agent.FinalResponse(tr))
			}
			fmt.Printf("[%s | %d steps | %d tokens | efficiency %.2f]\n",
				tr.Status, len(tr.Steps), tr.TotalTokens.Sum(), tr.Efficiency)

			if err := traces.SaveTrajectory(ctx, tr); err != nil {
				logging.StoreDebug("trace save failed: %v", err)
			}
			if err := traces.SaveReflections(ctx, tr.RequestID, tr.Reflections); err != nil {
				logging.StoreDebug("reflection save failed: %v", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func buildRegistry(cfg *config.Config, traces *store.TraceStore) (*tools.Registry, error) {
	timeout, err := cfg.SearchTimeout()
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry()
	registry.MustRegister(tools.WebSearchTool(search.NewDuckDuckGo(search.DuckDuckGoConfig{
		BaseURL:    cfg.Search.BaseURL,
		MaxResults: cfg.RAG.MaxResults,
		Timeout:    timeout,
	})))
	registry.MustRegister(tools.RecallNotesTool(traces))
	return registry, nil
}
