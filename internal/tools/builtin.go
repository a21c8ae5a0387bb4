package tools

import (
	"context"
	"fmt"
	"strings"

	"orbit/internal/search"
)

// WebSearchTool returns a tool that searches the web through the given
// search collaborator.
func WebSearchTool(client search.Client) *Tool {
	return &Tool{
		Name:        "web_search",
		Description: "Search the web for information. Returns titles, URLs and snippets.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query is required")
			}

			results, err := client.Search(ctx, query)
			if err != nil {
				return "", fmt.Errorf("search failed: %w", err)
			}
			if len(results) == 0 {
				return "No results found for: " + query, nil
			}
			return FormatSearchResults(query, results), nil
		},
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "The search query",
				},
			},
		},
	}
}

// FormatSearchResults renders results as markdown for context injection.
func FormatSearchResults(query string, results []search.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Search Results for: %s\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d results:\n\n", len(results)))
	for i, result := range results {
		sb.WriteString(fmt.Sprintf("## %d. %s\n", i+1, result.Title))
		sb.WriteString(fmt.Sprintf("**URL:** %s\n", result.URL))
		if result.Snippet != "" {
			sb.WriteString(fmt.Sprintf("\n%s\n", result.Snippet))
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}

// NoteSearcher is the keyword-lookup slice of the trace store, kept as a
// local interface so tools does not depend on the store package.
type NoteSearcher interface {
	SearchNotes(ctx context.Context, query string, limit int) ([]string, error)
}

// RecallNotesTool returns a tool that looks up notes from prior runs.
func RecallNotesTool(notes NoteSearcher) *Tool {
	return &Tool{
		Name:        "recall_notes",
		Description: "Recall notes recorded during previous runs that match a keyword.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query is required")
			}

			hits, err := notes.SearchNotes(ctx, query, 10)
			if err != nil {
				return "", fmt.Errorf("recall failed: %w", err)
			}
			if len(hits) == 0 {
				return "No stored notes match: " + query, nil
			}
			return strings.Join(hits, "\n---\n"), nil
		},
		Schema: ToolSchema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "Keyword to match against stored notes",
				},
			},
		},
	}
}
