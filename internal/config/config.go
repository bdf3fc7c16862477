// Package config resolves the project root and embedding-provider
// settings from the environment, falling back to a .env file at the
// project root (§6.5).
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the settings read from the environment.
type Config struct {
	ProjectRoot        string
	EmbeddingsProvider string
	EmbeddingsModel    string
	EmbeddingsAPIKey   string
	EmbeddingsBaseURL  string
}

const (
	envProjectRoot = "MEMORY_FORGE_PROJECT_ROOT"
	envProvider    = "MEMORY_FORGE_EMBEDDINGS_PROVIDER"
	envModel       = "MEMORY_FORGE_EMBEDDINGS_MODEL"
	envAPIKey      = "MEMORY_FORGE_EMBEDDINGS_API_KEY"
	envBaseURL     = "MEMORY_FORGE_EMBEDDINGS_BASE_URL"
)

// defaults applied when the environment is silent.
const (
	defaultProvider = "ollama"
	defaultModel    = "nomic-embed-text"
	defaultBaseURL  = "http://localhost:11434"
)

// Load resolves configuration for a project rooted at root. If root is
// empty, it falls back to MEMORY_FORGE_PROJECT_ROOT, then the current
// working directory. A .env file at the resolved root is loaded first
// (best-effort) so real environment variables still take precedence.
func Load(root string) (Config, error) {
	if root == "" {
		root = os.Getenv(envProjectRoot)
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, err
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return Config{}, err
	}

	_ = godotenv.Load(filepath.Join(root, ".env"))

	cfg := Config{
		ProjectRoot:        root,
		EmbeddingsProvider: getOr(envProvider, defaultProvider),
		EmbeddingsModel:    getOr(envModel, defaultModel),
		EmbeddingsAPIKey:   os.Getenv(envAPIKey),
		EmbeddingsBaseURL:  getOr(envBaseURL, defaultBaseURL),
	}
	return cfg, nil
}

func getOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DBPath is the derived path to the SQLite index.
func (c Config) DBPath() string {
	return filepath.Join(c.ProjectRoot, ".memory-forge", "index.db")
}

// ManifestPath is the derived path to the manifest sidecar.
func (c Config) ManifestPath() string {
	return filepath.Join(c.ProjectRoot, ".memory-forge", "manifest.json")
}

// LockPath is the derived path to the cross-process sync lock.
func (c Config) LockPath() string {
	return filepath.Join(c.ProjectRoot, ".memory-forge", "sync.lock")
}

// KnowledgeRoot is the derived path to the indexable knowledge tree.
func (c Config) KnowledgeRoot() string {
	return filepath.Join(c.ProjectRoot, "knowledge")
}
