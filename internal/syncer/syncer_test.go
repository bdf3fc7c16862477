package syncer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"memoryforge/internal/config"
	"memoryforge/internal/embedder"
	"memoryforge/internal/engine"
	"memoryforge/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "knowledge"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{ProjectRoot: dir}

	if err := os.MkdirAll(filepath.Join(dir, ".memory-forge"), 0o755); err != nil {
		t.Fatal(err)
	}
	s, err := store.Open(cfg.DBPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	eng := &engine.Engine{Config: cfg, Store: s, Embedder: embedder.NewFake("fake-model", 8)}
	return eng
}

func writeKnowledgeFile(t *testing.T, eng *engine.Engine, relPath, content string) {
	t.Helper()
	full := filepath.Join(eng.Config.ProjectRoot, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSyncProjectIndexesNewFiles(t *testing.T) {
	eng := newTestEngine(t)
	writeKnowledgeFile(t, eng, "knowledge/foo.md", "# Foo\n\nSome context content here.\n")

	stats, err := SyncProject(context.Background(), eng)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesIndexed != 1 {
		t.Errorf("expected 1 file indexed, got %d", stats.FilesIndexed)
	}

	files, err := eng.Store.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 stored file, got %d", len(files))
	}
}

func TestSyncProjectIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	writeKnowledgeFile(t, eng, "knowledge/foo.md", "# Foo\n\nSome context content here.\n")

	if _, err := SyncProject(context.Background(), eng); err != nil {
		t.Fatal(err)
	}
	stats, err := SyncProject(context.Background(), eng)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesIndexed != 0 || stats.FilesRemoved != 0 {
		t.Errorf("expected no-op second sync, got %+v", stats)
	}
}

func TestSyncProjectRemovesDeletedFiles(t *testing.T) {
	eng := newTestEngine(t)
	full := filepath.Join(eng.Config.ProjectRoot, "knowledge", "foo.md")
	writeKnowledgeFile(t, eng, "knowledge/foo.md", "# Foo\n\nSome context content here.\n")

	if _, err := SyncProject(context.Background(), eng); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(full); err != nil {
		t.Fatal(err)
	}

	stats, err := SyncProject(context.Background(), eng)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesRemoved != 1 {
		t.Errorf("expected 1 file removed, got %d", stats.FilesRemoved)
	}
	files, err := eng.Store.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("expected no stored files, got %d", len(files))
	}
}

func TestEnsureFreshReportsNoWorkWhenClean(t *testing.T) {
	eng := newTestEngine(t)
	writeKnowledgeFile(t, eng, "knowledge/foo.md", "# Foo\n\nSome context content here.\n")

	if _, err := SyncProject(context.Background(), eng); err != nil {
		t.Fatal(err)
	}
	didWork, err := EnsureFresh(context.Background(), eng)
	if err != nil {
		t.Fatal(err)
	}
	if didWork {
		t.Error("expected EnsureFresh to be a no-op on a clean index")
	}
}

func TestSyncProjectModelChangeClearsStore(t *testing.T) {
	eng := newTestEngine(t)
	writeKnowledgeFile(t, eng, "knowledge/foo.md", "# Foo\n\nSome context content here.\n")

	if _, err := SyncProject(context.Background(), eng); err != nil {
		t.Fatal(err)
	}
	eng.Embedder = embedder.NewFake("different-model", 8)

	stats, err := SyncProject(context.Background(), eng)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.ModelChanged {
		t.Error("expected ModelChanged to be true")
	}
	if stats.FilesIndexed != 1 {
		t.Errorf("expected the file to be reindexed under the new model, got %d", stats.FilesIndexed)
	}
}
