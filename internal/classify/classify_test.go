package classify

import "testing"

func TestIsIndexable(t *testing.T) {
	cases := map[string]bool{
		"knowledge/api-v2.0.md":          true,
		"knowledge/nested/deep/notes.md": true,
		"CLAUDE.md":                      false,
		".claude/skills/x/SKILL.md":      false,
		"knowledge/not-markdown.txt":     false,
		"knowledgebase/fake.md":          false,
	}
	for p, want := range cases {
		if got := IsIndexable(p); got != want {
			t.Errorf("IsIndexable(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestIsAuditable(t *testing.T) {
	cases := map[string]bool{
		"CLAUDE.md":                    true,
		"AGENTS.md":                    true,
		".opencode/skill/y/SKILL.md":   true,
		".codex/commands/deploy.md":    true,
		"knowledge/api-v2.0.md":        false,
		"README.md":                    false,
		"knowledge/.claude/notes.md":   false,
		"knowledge/CLAUDE.md":          false,
	}
	for p, want := range cases {
		if got := IsAuditable(p); got != want {
			t.Errorf("IsAuditable(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestClassifyDisjoint(t *testing.T) {
	paths := []string{
		"knowledge/api-v2.0.md",
		"CLAUDE.md",
		"AGENTS.md",
		".claude/skills/x/SKILL.md",
		".codex/commands/deploy.md",
		".opencode/skill/y/SKILL.md",
		"README.md",
		"knowledge/.claude/notes.md",
		"knowledge/CLAUDE.md",
	}
	for _, p := range paths {
		if IsIndexable(p) && IsAuditable(p) {
			t.Errorf("path %q is both indexable and auditable", p)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify("knowledge/x.md"); got != Indexable {
		t.Errorf("Classify(knowledge/x.md) = %v, want Indexable", got)
	}
	if got := Classify("CLAUDE.md"); got != Auditable {
		t.Errorf("Classify(CLAUDE.md) = %v, want Auditable", got)
	}
	if got := Classify("random.txt"); got != Ignored {
		t.Errorf("Classify(random.txt) = %v, want Ignored", got)
	}
}
