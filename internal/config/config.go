// Package config loads orbit configuration from yaml with environment
// overrides. Precedence: defaults < file < environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all orbit configuration.
type Config struct {
	// LLM transport settings.
	LLM LLMConfig `yaml:"llm"`

	// Agent loop limits.
	Agent AgentConfig `yaml:"agent"`

	// Context window management.
	Context ContextConfig `yaml:"context"`

	// Agentic retrieval settings.
	RAG RAGConfig `yaml:"rag"`

	// Web search collaborator.
	Search SearchConfig `yaml:"search"`

	// Trace store.
	Store StoreConfig `yaml:"store"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the LLM provider client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// AgentConfig bounds a single trajectory.
type AgentConfig struct {
	MaxSteps       int `yaml:"max_steps"`
	TokenBudget    int `yaml:"token_budget"`
	MaxToolRetries int `yaml:"max_tool_retries"`
}

// ContextConfig configures the context manager.
type ContextConfig struct {
	// MaxTokens is the context window ceiling.
	MaxTokens int `yaml:"max_tokens"`
}

// RAGConfig configures the retrieval pipeline.
type RAGConfig struct {
	MaxRetries         int     `yaml:"max_retries"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	MaxResults         int     `yaml:"max_results"`
}

// SearchConfig configures the web search collaborator.
type SearchConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StoreConfig configures trace persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the category loggers.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
		},
		Agent: AgentConfig{
			MaxSteps:       10,
			TokenBudget:    50000,
			MaxToolRetries: 2,
		},
		Context: ContextConfig{
			MaxTokens: 16000,
		},
		RAG: RAGConfig{
			MaxRetries:         2,
			RelevanceThreshold: 0.5,
			MaxResults:         10,
		},
		Search: SearchConfig{
			BaseURL: "https://html.duckduckgo.com/html/",
			Timeout: "30s",
		},
		Store: StoreConfig{
			DatabasePath: ".orbit/traces.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config from path, applies defaults and environment overrides,
// and validates. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
// Provider-specific keys only apply when that provider is selected, except
// ORBIT_API_KEY which always wins.
func (c *Config) applyEnvOverrides() {
	switch c.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}
	if key := os.Getenv("ORBIT_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("ORBIT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if db := os.Getenv("ORBIT_DB"); db != "" {
		c.Store.DatabasePath = db
	}
}

// Validate checks ranges that would otherwise surface as runtime loops or
// divide-by-zero deep in the engine.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.TokenBudget <= 0 {
		return fmt.Errorf("agent.token_budget must be positive, got %d", c.Agent.TokenBudget)
	}
	if c.Agent.MaxToolRetries < 0 {
		return fmt.Errorf("agent.max_tool_retries cannot be negative, got %d", c.Agent.MaxToolRetries)
	}
	if c.Context.MaxTokens <= 0 {
		return fmt.Errorf("context.max_tokens must be positive, got %d", c.Context.MaxTokens)
	}
	if c.RAG.MaxRetries < 0 {
		return fmt.Errorf("rag.max_retries cannot be negative, got %d", c.RAG.MaxRetries)
	}
	if c.RAG.RelevanceThreshold < 0 || c.RAG.RelevanceThreshold > 1 {
		return fmt.Errorf("rag.relevance_threshold must be in [0,1], got %v", c.RAG.RelevanceThreshold)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.SearchTimeout(); err != nil {
		return fmt.Errorf("search.timeout: %w", err)
	}
	return nil
}

// LLMTimeout parses the LLM timeout, defaulting to 120s when unset.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	return time.ParseDuration(c.LLM.Timeout)
}

// SearchTimeout parses the search timeout, defaulting to 30s when unset.
func (c *Config) SearchTimeout() (time.Duration, error) {
	if c.Search.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Search.Timeout)
}
