// Package ai renders query explanations as narrative text, either from a
// template or through a chat runtime (OpenRouter, Ollama).
package ai

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Runtime is a chat-completion backend such as OpenRouter or a local Ollama.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Narrator turns the computed explanation of a query into narrative text.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (string, error)
}

// NarrationRequest carries the question and the facts already derived from the data.
type NarrationRequest struct {
	Query  string
	Intent string
	Facts  string
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderTemplate   = "template"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// RuntimeConfig carries common knobs used by narrators.
type RuntimeConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpenRouter
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

// NarratorFactory builds a Narrator from the generic config.
type NarratorFactory func(RuntimeConfig) Narrator

var registry = map[string]NarratorFactory{}

// RegisterNarrator registers a provider name with its factory.
func RegisterNarrator(name string, f NarratorFactory) { registry[name] = f }

// GetNarrator creates the Narrator for a provider. Empty selects the template narrator.
func GetNarrator(name string, cfg RuntimeConfig) (Narrator, error) {
	if name == "" {
		name = ProviderTemplate
	}
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown narrator provider %q (have %v)", name, Providers())
	}
	return f(cfg), nil
}

// Providers lists registered narrator names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterNarrator(ProviderTemplate, func(RuntimeConfig) Narrator { return TemplateNarrator{} })
	RegisterNarrator(ProviderOpenRouter, func(c RuntimeConfig) Narrator {
		if c.Model == "" {
			c.Model = "openai/gpt-4o-mini"
		}
		cl := NewClient(c.APIKey, c.HTTPTimeout, retryPolicy{maxAttempts: c.RetryMax, baseDelay: c.BaseDelay, maxDelay: c.MaxDelay})
		if c.BaseURL != "" {
			cl.baseURL = c.BaseURL
		}
		return &ChatNarrator{Runtime: cl, Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
	})
	RegisterNarrator(ProviderOllama, func(c RuntimeConfig) Narrator {
		if c.Model == "" {
			c.Model = "llama3.2"
		}
		cl := NewOllamaClient(c.Host, c.HTTPTimeout, retryPolicy{maxAttempts: c.RetryMax, baseDelay: c.BaseDelay, maxDelay: c.MaxDelay})
		return &ChatNarrator{Runtime: cl, Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
	})
}
