package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleChunks() []ChunkInput {
	return []ChunkInput{
		{
			SourceType: "skill",
			ChunkType:  "frontmatter",
			Heading:    "",
			Priority:   10,
			Ordinal:    0,
			Content:    "name: foo\ndescription: bar",
			Vector:     []float32{1, 0, 0},
		},
		{
			SourceType: "skill",
			ChunkType:  "solution",
			Heading:    "Solution",
			Priority:   7,
			Ordinal:    1,
			Content:    "do the thing",
			Metadata:   map[string]string{"lang": "go"},
			Vector:     []float32{0, 1, 0},
		},
	}
}

func TestUpsertAndGetFile(t *testing.T) {
	s := openTestStore(t)

	id, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks())
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected nonzero file id")
	}

	f, err := s.GetFile("knowledge/foo.md")
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Fatal("expected file record, got nil")
	}
	if f.Hash != "hash1" || f.Importance != 5 {
		t.Errorf("unexpected file record: %+v", f)
	}

	chunks, err := s.ListChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Metadata["lang"] != "go" {
		t.Errorf("expected metadata to round-trip, got %v", chunks[1].Metadata)
	}
	if len(chunks[0].Vector) != 3 || chunks[0].Vector[0] != 1 {
		t.Errorf("expected vector to round-trip, got %v", chunks[0].Vector)
	}
}

func TestUpsertReplacesOldChunks(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	newChunks := []ChunkInput{
		{SourceType: "skill", ChunkType: "full", Priority: 5, Ordinal: 0, Content: "replaced", Vector: []float32{0, 0, 1}},
	}
	if _, err := s.UpsertFile("knowledge/foo.md", "hash2", 8, newChunks); err != nil {
		t.Fatal(err)
	}

	chunks, err := s.ListChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected old chunks to be replaced, got %d chunks", len(chunks))
	}
	if chunks[0].Content != "replaced" {
		t.Errorf("expected replaced content, got %q", chunks[0].Content)
	}

	f, err := s.GetFile("knowledge/foo.md")
	if err != nil {
		t.Fatal(err)
	}
	if f.Hash != "hash2" || f.Importance != 8 {
		t.Errorf("expected updated file record, got %+v", f)
	}
}

func TestRemoveFileCascades(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFile("knowledge/foo.md"); err != nil {
		t.Fatal(err)
	}
	f, err := s.GetFile("knowledge/foo.md")
	if err != nil {
		t.Fatal(err)
	}
	if f != nil {
		t.Errorf("expected file to be removed, got %+v", f)
	}
	chunks, err := s.ListChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected chunks to cascade-delete, got %d", len(chunks))
	}
}

func TestRemoveFilesDeletesAllInOneTransaction(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertFile("knowledge/a.md", "h1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertFile("knowledge/b.md", "h2", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveFiles([]string{"knowledge/a.md", "knowledge/b.md"}); err != nil {
		t.Fatal(err)
	}
	files, err := s.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("expected both files removed, got %d", len(files))
	}
}

func TestListChunksFiltersBySourceType(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	ctxChunks := []ChunkInput{
		{SourceType: "knowledge", ChunkType: "full", Priority: 5, Ordinal: 0, Content: "ctx", Vector: []float32{1, 1, 1}},
	}
	if _, err := s.UpsertFile("knowledge/bar.md", "hash2", 5, ctxChunks); err != nil {
		t.Fatal(err)
	}

	skillChunks, err := s.ListChunks("skill")
	if err != nil {
		t.Fatal(err)
	}
	if len(skillChunks) != 2 {
		t.Errorf("expected 2 skill chunks, got %d", len(skillChunks))
	}

	all, err := s.ListChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 total chunks, got %d", len(all))
	}
}

func TestTouchUpdatesAccessCount(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	if err := s.Touch([]string{"knowledge/foo.md"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Touch([]string{"knowledge/foo.md"}); err != nil {
		t.Fatal(err)
	}
	f, err := s.GetFile("knowledge/foo.md")
	if err != nil {
		t.Fatal(err)
	}
	if f.AccessCount != 2 {
		t.Errorf("expected access count 2, got %d", f.AccessCount)
	}
	if f.LastAccessed.IsZero() {
		t.Error("expected last_accessed to be set")
	}
}

func TestMetadataAndModelID(t *testing.T) {
	s := openTestStore(t)
	m, err := s.GetMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if m.ModelID != "" || m.Dim != 0 {
		t.Errorf("expected zero-value metadata, got %+v", m)
	}

	if err := s.SetModelID("nomic-embed-text", 768); err != nil {
		t.Fatal(err)
	}
	m, err = s.GetMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if m.ModelID != "nomic-embed-text" || m.Dim != 768 {
		t.Errorf("unexpected metadata: %+v", m)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.UpsertFile("knowledge/foo.md", "hash1", 5, sampleChunks()); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	files, err := s.ListFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files after clear, got %d", len(files))
	}
	chunks, err := s.ListChunks()
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks after clear, got %d", len(chunks))
	}
}
