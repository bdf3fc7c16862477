// Package syncer keeps the store in step with the knowledge tree on
// disk (§4.C6). It is named syncer, not sync, only to avoid shadowing
// the standard library package of that name.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"memoryforge/internal/chunker"
	"memoryforge/internal/classify"
	"memoryforge/internal/engine"
	"memoryforge/internal/manifest"
	"memoryforge/internal/output"
	"memoryforge/internal/store"
	"memoryforge/internal/walker"
)

const defaultImportance = 5

// Stats reports the outcome of a sync pass.
type Stats struct {
	FilesIndexed int
	FilesRemoved int
	FilesTotal   int
	ChunksTotal  int
	ModelChanged bool
}

// SyncProject runs a full incremental sync of the knowledge tree under
// eng's project root (§4.C6, "explicit full pass").
func SyncProject(ctx context.Context, eng *engine.Engine) (Stats, error) {
	stats, _, err := run(ctx, eng)
	return stats, err
}

// EnsureFresh runs the same algorithm as SyncProject but is meant to be
// called before every search; it reports whether any work was actually
// done so callers can skip logging a no-op sync.
func EnsureFresh(ctx context.Context, eng *engine.Engine) (bool, error) {
	_, didWork, err := run(ctx, eng)
	return didWork, err
}

func run(ctx context.Context, eng *engine.Engine) (Stats, bool, error) {
	lockPath := eng.Config.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return Stats{}, false, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	locked, err := fl.TryLockContext(lockCtx, 200*time.Millisecond)
	if err != nil && (ctx.Err() != nil || lockCtx.Err() == nil) {
		return Stats{}, false, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !locked {
		return Stats{}, false, fmt.Errorf("sync lock held by another process, try again")
	}
	defer fl.Unlock()

	var stats Stats

	meta, err := eng.Store.GetMetadata()
	if err != nil {
		return stats, false, fmt.Errorf("read metadata: %w", err)
	}
	currentModel := eng.Embedder.ModelID()
	if meta.ModelID != "" && meta.ModelID != currentModel {
		output.Info("embedding model changed from %q to %q — clearing index", meta.ModelID, currentModel)
		if err := eng.Store.Clear(); err != nil {
			return stats, false, fmt.Errorf("clear store: %w", err)
		}
		m := manifest.New()
		if err := eng.SaveManifest(m); err != nil {
			return stats, false, fmt.Errorf("clear manifest: %w", err)
		}
		stats.ModelChanged = true
	}

	discovered, err := discover(eng.Config.ProjectRoot)
	if err != nil {
		return stats, false, err
	}
	stats.FilesTotal = len(discovered)

	m, err := eng.LoadManifest()
	if err != nil {
		return stats, false, fmt.Errorf("load manifest: %w", err)
	}
	storedFiles, err := eng.Store.ListFiles()
	if err != nil {
		return stats, false, fmt.Errorf("list stored files: %w", err)
	}

	toIndex, toRemove := partition(discovered, m, storedFiles)
	didWork := stats.ModelChanged || len(toIndex) > 0 || len(toRemove) > 0
	if !didWork {
		return stats, false, nil
	}

	for _, path := range toRemove {
		if err := eng.Store.RemoveFile(path); err != nil {
			return stats, true, fmt.Errorf("remove %s: %w", path, err)
		}
		m.Delete(path)
		stats.FilesRemoved++
	}

	for path, hash := range toIndex {
		absPath := filepath.Join(eng.Config.ProjectRoot, filepath.FromSlash(path))
		raw, err := os.ReadFile(absPath)
		if err != nil {
			return stats, true, fmt.Errorf("read %s: %w", path, err)
		}

		result, err := chunker.Chunk(path, raw)
		if err != nil {
			return stats, true, fmt.Errorf("chunk %s: %w", path, err)
		}

		texts := make([]string, len(result.Chunks))
		for i, c := range result.Chunks {
			texts[i] = c.Content
		}
		vectors, err := eng.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stats, true, fmt.Errorf("embed %s: %w", path, err)
		}

		importance := defaultImportance
		if result.Importance != nil {
			importance = *result.Importance
		}

		inputs := make([]store.ChunkInput, len(result.Chunks))
		for i, c := range result.Chunks {
			inputs[i] = store.ChunkInput{
				SourceType: string(c.SourceType),
				ChunkType:  string(c.ChunkType),
				Heading:    c.Heading,
				Priority:   c.Priority,
				Ordinal:    c.Ordinal,
				Content:    c.Content,
				Metadata:   c.Metadata,
				Vector:     vectors[i],
			}
		}

		if _, err := eng.Store.UpsertFile(path, hash, importance, inputs); err != nil {
			return stats, true, fmt.Errorf("upsert %s: %w", path, err)
		}
		m.Set(path, hash)
		stats.FilesIndexed++
		stats.ChunksTotal += len(inputs)
	}

	m.LastIndexed = time.Now().UTC()
	if err := eng.SaveManifest(m); err != nil {
		return stats, true, fmt.Errorf("save manifest: %w", err)
	}
	if err := eng.Store.SetModelID(currentModel, eng.Embedder.Dim()); err != nil {
		return stats, true, fmt.Errorf("set model id: %w", err)
	}

	return stats, true, nil
}

// discover walks the project root and returns relPath -> content hash for
// every currently indexable file.
func discover(root string) (map[string]string, error) {
	files, errs := walker.Walk(root)
	discovered := map[string]string{}
	for f := range files {
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			continue
		}
		discovered[f.RelPath] = classify.HashFile(raw)
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return discovered, nil
}

// partition splits the discovered set against the manifest and the
// store's own file list into files needing (re-)indexing and files
// needing removal (§4.C6 step 3: toRemove ranges over keys(M) ∪
// indexed_paths, not just the manifest, so a manifest that has drifted
// from the store still converges).
func partition(discovered map[string]string, m *manifest.Manifest, storedFiles []store.FileRecord) (toIndex map[string]string, toRemove []string) {
	toIndex = map[string]string{}
	for path, hash := range discovered {
		if m.Get(path) != hash {
			toIndex[path] = hash
		}
	}

	candidates := map[string]bool{}
	for _, path := range m.Paths() {
		candidates[path] = true
	}
	for _, f := range storedFiles {
		candidates[f.Path] = true
	}
	for path := range candidates {
		if _, ok := discovered[path]; !ok {
			toRemove = append(toRemove, path)
		}
	}
	return toIndex, toRemove
}
