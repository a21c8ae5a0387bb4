package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"orbit/internal/store"
)

var tracesLimit int

var tracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "List recent trajectories",
	RunE:  listTraces,
}

func init() {
	tracesCmd.Flags().IntVar(&tracesLimit, "limit", 20, "number of trajectories to show")
}

func listTraces(cmd *cobra.Command, args []string) error {
	traces, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer traces.Close()

	recs, err := traces.RecentTrajectories(context.Background(), tracesLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No trajectories recorded yet.")
		return nil
	}

	for _, r := range recs {
		fmt.Printf("%s  %-10s  eff %.2f  %6d tok  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Status, r.Efficiency,
			r.InputTokens+r.OutputTokens, r.Goal)
	}
	return nil
}
