// Package engine wires together the store, embedder, and manifest that
// every other component (syncer, search, audit, retention) operates
// against. It owns no algorithms of its own — it is the construction
// site, mirroring the teacher's Indexer struct.
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"memoryforge/internal/config"
	"memoryforge/internal/embedder"
	"memoryforge/internal/manifest"
	"memoryforge/internal/store"
)

// Engine bundles the persistence, embedding, and manifest state shared
// by every operation against a single project root.
type Engine struct {
	Config   config.Config
	Store    store.Store
	Embedder embedder.Provider
}

// Open constructs an Engine for cfg, opening the SQLite store and
// building the embedder from cfg's provider settings. It does not load
// the embedding model — that happens lazily, on first use (§4.C4).
func Open(cfg config.Config) (*Engine, error) {
	if err := os.MkdirAll(filepath.Join(cfg.ProjectRoot, ".memory-forge"), 0o755); err != nil {
		return nil, fmt.Errorf("create .memory-forge directory: %w", err)
	}

	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	emb, err := embedder.NewFromConfig(embedder.Config{
		Provider: cfg.EmbeddingsProvider,
		Model:    cfg.EmbeddingsModel,
		APIKey:   cfg.EmbeddingsAPIKey,
		BaseURL:  cfg.EmbeddingsBaseURL,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	return &Engine{Config: cfg, Store: s, Embedder: emb}, nil
}

// LoadManifest reads the manifest sidecar for this engine's project.
func (e *Engine) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Load(e.Config.ManifestPath())
}

// SaveManifest persists m to this engine's project.
func (e *Engine) SaveManifest(m *manifest.Manifest) error {
	return manifest.Save(e.Config.ManifestPath(), m)
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.Store.Close()
}
