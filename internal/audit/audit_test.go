package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAuditIgnoresNonAutoloadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "knowledge", "foo.md"), "not autoload")
	writeFile(t, filepath.Join(dir, "README.md"), "also not autoload")

	report, err := Audit(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Entries) != 0 {
		t.Errorf("expected no entries, got %v", report.Entries)
	}
}

func TestAuditFlagsOversizedClaudeMD(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("word ", 1000) // ~5000 bytes => ~1250 tokens, well over critical (1000)
	writeFile(t, filepath.Join(dir, "CLAUDE.md"), big)

	report, err := Audit(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(report.Entries))
	}
	if report.Entries[0].Level != LevelCritical {
		t.Errorf("expected critical, got %v", report.Entries[0].Level)
	}
}

func TestAuditSkillThresholdIsTighter(t *testing.T) {
	dir := t.TempDir()
	// 1500 bytes => 375 tokens: over SKILL.md's 300 warn bar, though a
	// CLAUDE.md of the same size (warn bar 500) would be ok.
	medium := strings.Repeat("x", 1500)
	writeFile(t, filepath.Join(dir, ".claude", "skills", "foo", "SKILL.md"), medium)

	report, err := Audit(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(report.Entries))
	}
	if report.Entries[0].Level != LevelWarning {
		t.Errorf("expected warning, got %v", report.Entries[0].Level)
	}
}

func TestAuditAggregatesTotalAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	// 12000 bytes => 3000 tokens each, 6000 in total.
	writeFile(t, filepath.Join(dir, "CLAUDE.md"), strings.Repeat("x", 12000))
	writeFile(t, filepath.Join(dir, "AGENTS.md"), strings.Repeat("x", 12000))

	report, err := Audit(dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalLevel != LevelCritical {
		t.Errorf("expected aggregate critical (sum > 5000 tokens), got %v (%d tokens)", report.TotalLevel, report.TotalTokens)
	}
}
