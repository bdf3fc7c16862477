// Package embedder abstracts the embedding model as a pluggable capability
// (§9 design note): chunking, storage, and search never see the HTTP or
// model-loading details, only Provider.
package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider maps text to unit-norm vectors via a loadable model.
type Provider interface {
	// ModelID is an opaque identifier compared by equality; persisted so
	// model swaps force a full reindex.
	ModelID() string
	// Dim returns the vector dimension produced by this model.
	Dim() int
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds a batch of texts; result order matches input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// maxInputChars is the deliberate, lossy truncation point for any text
// handed to a Provider (§4.C4): chunking is expected to keep chunks well
// under this, but the Provider enforces it regardless.
const maxInputChars = 2000

func truncate(text string) string {
	if len(text) <= maxInputChars {
		return text
	}
	return text[:maxInputChars]
}

func truncateAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = truncate(t)
	}
	return out
}

// Config selects and configures a Provider. It is read from the
// environment first, then a .env-style dotenv file at the project root
// (see internal/config), mirroring the teacher's layered configuration.
type Config struct {
	Provider string // "ollama" or "openai"
	Model    string
	APIKey   string
	BaseURL  string
}

// NewFromConfig constructs the Provider named by cfg.Provider.
func NewFromConfig(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllama(baseURL, cfg.Model), nil
	case "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAI(baseURL, cfg.Model, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("embedder: unknown provider %q", cfg.Provider)
	}
}

const (
	loadRetries = 3
	loadBackoff = 2 * time.Second
)

// loadWithRetry runs fn up to loadRetries times with loadBackoff between
// attempts. Used by each Provider for its lazy, at-most-once model load;
// failure after retries is fatal to the caller (§4.C4, §7).
func loadWithRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= loadRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == loadRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loadBackoff):
		}
	}
	return fmt.Errorf("embedder: model load failed after %d attempts: %w", loadRetries, err)
}
