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

// openAIProvider calls an OpenAI-compatible /embeddings endpoint.
type openAIProvider struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client

	mu      sync.Mutex
	loaded  bool
	loadErr error
	dim     int
}

// NewOpenAI creates a Provider targeting an OpenAI-compatible embeddings API.
func NewOpenAI(baseURL, model, apiKey string) Provider {
	return &openAIProvider{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *openAIProvider) ModelID() string { return "openai:" + p.model }

func (p *openAIProvider) Dim() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dim
}

func (p *openAIProvider) ensureLoaded(ctx context.Context) error {
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
			return fmt.Errorf("openai: empty probe embedding")
		}
		p.dim = len(embs[0])
		return nil
	})
	p.loaded = true
	return p.loadErr
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedDatum struct {
	Embedding []float64 `json:"embedding"`
}

type openAIEmbedResponse struct {
	Data []openAIEmbedDatum `json:"data"`
}

func (p *openAIProvider) embedBatchRaw(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embed returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	out := make([][]float32, len(result.Data))
	for i, d := range result.Data {
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		out[i] = v
	}
	return out, nil
}

// EmbedBatch embeds texts in sub-batches of 32, truncating each to
// maxInputChars, and L2-normalizes every result.
func (p *openAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (p *openAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}
