package retention

import (
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
	if err := os.MkdirAll(filepath.Join(dir, ".memory-forge"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{ProjectRoot: dir}
	s, err := store.Open(cfg.DBPath())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return &engine.Engine{Config: cfg, Store: s, Embedder: embedder.NewFake("fake-model", 4)}
}

func seedFile(t *testing.T, eng *engine.Engine, path string, importance int) {
	t.Helper()
	chunks := []store.ChunkInput{
		{SourceType: "knowledge", ChunkType: "full", Priority: 5, Ordinal: 0, Content: "x", Vector: []float32{1, 0, 0, 0}},
	}
	if _, err := eng.Store.UpsertFile(path, "h-"+filepath.Base(path), importance, chunks); err != nil {
		t.Fatal(err)
	}
}

func TestForgetStaleRequiresAConfig(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := ForgetStale(eng, Config{}); err == nil {
		t.Error("expected an error when neither maxFiles nor maxAgeDays is set")
	}
}

func TestForgetStaleMaxFilesKeepsMostImportant(t *testing.T) {
	eng := newTestEngine(t)
	seedFile(t, eng, "knowledge/important.md", 9)
	seedFile(t, eng, "knowledge/medium.md", 5)
	seedFile(t, eng, "knowledge/minor.md", 1)

	result, err := ForgetStale(eng, Config{MaxFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 file removed, got %d (%v)", len(result.Removed), result.Removed)
	}
	if result.Removed[0] != "knowledge/minor.md" {
		t.Errorf("expected the least-important file removed, got %q", result.Removed[0])
	}

	f, err := eng.Store.GetFile("knowledge/important.md")
	if err != nil {
		t.Fatal(err)
	}
	if f == nil {
		t.Error("expected protected-by-importance file to remain despite being over maxFiles with importance 9")
	}
}

func TestForgetStaleMaxAgeRemovesUnaccessed(t *testing.T) {
	eng := newTestEngine(t)
	seedFile(t, eng, "knowledge/old.md", 3)
	seedFile(t, eng, "knowledge/touched.md", 3)
	if err := eng.Store.Touch([]string{"knowledge/touched.md"}); err != nil {
		t.Fatal(err)
	}

	result, err := ForgetStale(eng, Config{MaxAgeDays: 30})
	if err != nil {
		t.Fatal(err)
	}
	removedSet := map[string]bool{}
	for _, p := range result.Removed {
		removedSet[p] = true
	}
	if !removedSet["knowledge/old.md"] {
		t.Error("expected never-accessed file to be marked stale")
	}
	if removedSet["knowledge/touched.md"] {
		t.Error("expected recently-touched file to survive")
	}
}

// TestRetentionSpecScenarioFollowsMaxFilesFormula pins down the §4.C8
// formula (keep = max(0, maxFiles - protected)) against the numbers from
// the spec's own worked example, which reads maxFiles differently (see
// DESIGN.md "Open question decisions"). Per the formula actually
// implemented, protected={10,8} leaves keep=max(0,2-2)=0 among the
// candidates, so all three of 5/3/2 are removed.
func TestRetentionSpecScenarioFollowsMaxFilesFormula(t *testing.T) {
	eng := newTestEngine(t)
	seedFile(t, eng, "knowledge/ten.md", 10)
	seedFile(t, eng, "knowledge/eight.md", 8)
	seedFile(t, eng, "knowledge/five.md", 5)
	seedFile(t, eng, "knowledge/three.md", 3)
	seedFile(t, eng, "knowledge/two.md", 2)

	result, err := ForgetStale(eng, Config{MaxFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	removedSet := map[string]bool{}
	for _, p := range result.Removed {
		removedSet[p] = true
	}
	if len(result.Removed) != 3 {
		t.Fatalf("expected 3 files removed under the §4.C8 formula, got %d (%v)", len(result.Removed), result.Removed)
	}
	for _, p := range []string{"knowledge/five.md", "knowledge/three.md", "knowledge/two.md"} {
		if !removedSet[p] {
			t.Errorf("expected %s to be removed, it survived", p)
		}
	}
	for _, p := range []string{"knowledge/ten.md", "knowledge/eight.md"} {
		if removedSet[p] {
			t.Errorf("expected %s to survive as protected, it was removed", p)
		}
	}
}

func TestForgetStaleImportanceFloorExemptsFromMaxFiles(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < 5; i++ {
		seedFile(t, eng, filepath.ToSlash(filepath.Join("knowledge", "protected"+string(rune('a'+i))+".md")), 8)
	}
	result, err := ForgetStale(eng, Config{MaxFiles: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Removed) != 0 {
		t.Errorf("expected no removals since all 5 files are protected (importance>=8), got %v", result.Removed)
	}
	if result.ProtectedCount != 5 {
		t.Errorf("expected 5 protected files, got %d", result.ProtectedCount)
	}
}
