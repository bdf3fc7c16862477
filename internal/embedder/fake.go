package embedder

import (
	"context"
	"crypto/sha256"

	"memoryforge/internal/vectormath"
)

// Fake is a deterministic, network-free Provider for tests: it hashes each
// text into a fixed-dimension vector so identical texts always produce the
// identical embedding. Texts that differ at all, even slightly, get
// unrelated vectors, since the digest carries no similarity.
type Fake struct {
	Model string
	dim   int
}

// NewFake creates a fake Provider with the given dimension (default 32).
func NewFake(model string, dim int) *Fake {
	if dim <= 0 {
		dim = 32
	}
	return &Fake{Model: model, dim: dim}
}

func (f *Fake) ModelID() string { return "fake:" + f.Model }
func (f *Fake) Dim() int        { return f.dim }

func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	embs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (f *Fake) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	texts = truncateAll(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectormath.NormalizeL2(f.hashVector(t))
	}
	return out, nil
}

func (f *Fake) hashVector(text string) []float32 {
	v := make([]float32, f.dim)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < f.dim; i++ {
		b := block[i%len(block)]
		// Spread byte values into [-1, 1) so the hash's low bits still
		// perturb the vector once i wraps around the 32-byte digest.
		v[i] = float32(int(b)-128) / 128
		block[i%len(block)] = b ^ byte(i)
	}
	return v
}
