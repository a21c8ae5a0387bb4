package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"orbit/internal/perception"
	"orbit/internal/rag"
	"orbit/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run the retrieval pipeline standalone",
	Long: `Runs one search/grade/rewrite cycle for a query and prints the graded
results. Useful for tuning the relevance threshold and inspecting what
the agent would retrieve.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := perception.NewClient(cfg)
	if err != nil {
		return err
	}

	timeout, err := cfg.SearchTimeout()
	if err != nil {
		return err
	}
	client := search.NewDuckDuckGo(search.DuckDuckGoConfig{
		BaseURL:    cfg.Search.BaseURL,
		MaxResults: cfg.RAG.MaxResults,
		Timeout:    timeout,
	})
	pipeline := rag.NewPipeline(client, llm, cfg.RAG.MaxRetries, cfg.RAG.RelevanceThreshold)

	res, err := pipeline.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if res.FallbackUsed {
		fmt.Println(res.Disclaimer)
		fmt.Println()
	}
	fmt.Printf("Queries tried: %s\n\n", strings.Join(res.QueryHistory, " -> "))
	if len(res.RelevantResults) == 0 {
		fmt.Println("No relevant results.")
		return nil
	}
	for i, g := range res.RelevantResults {
		fmt.Printf("%d. %s (confidence %.2f)\n   %s\n   %s\n", i+1, g.Result.Title, g.Confidence, g.Result.URL, g.Reasoning)
	}
	return nil
}
