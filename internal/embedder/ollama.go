package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"memoryforge/internal/vectormath"
)

// ollamaProvider calls an Ollama-compatible /api/embed endpoint.
type ollamaProvider struct {
	baseURL string
	model   string
	client  *http.Client

	mu      sync.Mutex
	loaded  bool
	loadErr error
	dim     int
}

// NewOllama creates a Provider targeting the given Ollama instance.
func NewOllama(baseURL, model string) Provider {
	return &ollamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *ollamaProvider) ModelID() string { return "ollama:" + p.model }

func (p *ollamaProvider) Dim() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *ollamaProvider) ensureLoaded(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.loadErr
	}
	p.loadErr = loadWithRetry(ctx, func() error {
		embs, err := p.embedBatchRaw(ctx, []string{"ping"})
		if err != nil {
			return err
		}
		if len(embs) != 1 || len(embs[0]) == 0 {
			return fmt.Errorf("ollama: empty probe embedding")
		}
		p.dim = len(embs[0])
		return nil
	})
	p.loaded = true
	return p.loadErr
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *ollamaProvider) embedBatchRaw(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	return result.Embeddings, nil
}

// EmbedBatch embeds texts in sub-batches of 32 (§5 resource limit),
// truncating each to maxInputChars, and L2-normalizes every result.
func (p *ollamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	texts = truncateAll(texts)

	const batchSize = 32
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		embs, err := p.embedBatchRaw(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		for _, e := range embs {
			out = append(out, vectormath.NormalizeL2(e))
		}
	}
	return out, nil
}

func (p *ollamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}
