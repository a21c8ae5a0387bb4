package perception

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"orbit/internal/logging"
)

// GeminiClient implements LLMClient on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Chat streams a completion for the given messages. System messages become
// the system instruction; user/assistant messages map to user/model turns.
func (g *GeminiClient) Chat(ctx context.Context, messages []Message, onToken TokenCallback) (*ChatResponse, error) {
	var system string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no user content to send")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	logging.APIDebug("[Gemini] Chat: model=%s messages=%d", g.model, len(messages))

	var content string
	var usage *Usage
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("Gemini stream failed: %w", err)
		}
		delta := resp.Text()
		if delta != "" {
			content += delta
			if onToken != nil {
				onToken(delta)
			}
		}
		if resp.UsageMetadata != nil {
			usage = &Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			}
		}
	}

	logging.APIDebug("[Gemini] Chat: completed in %v (%d chars)", time.Since(start), len(content))
	return &ChatResponse{Content: content, Usage: usage}, nil
}
