// Package chunker splits a single indexable markdown file into an ordered
// list of semantically coherent chunks (§4.C3). It is a data
// transformation — parse(file) → (chunks, importance?) — dispatching on
// file shape, not a class hierarchy (§9 design note).
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"memoryforge/internal/classify"
)

// SourceType groups chunks by where they came from. claude-md and
// agents-md are preserved so a database written by a future version that
// indexes autoload files round-trips; no code path in this engine
// produces them today (see SPEC_FULL.md open questions).
type SourceType string

const (
	SourceSkill     SourceType = "skill"
	SourceKnowledge SourceType = "knowledge"
	SourceClaudeMD  SourceType = "claude-md"
	SourceAgentsMD  SourceType = "agents-md"
)

// ChunkType is the shape a chunk was produced by.
type ChunkType string

const (
	TypeFrontmatter  ChunkType = "frontmatter"
	TypeProblem      ChunkType = "problem"
	TypeTrigger      ChunkType = "trigger"
	TypeSolution     ChunkType = "solution"
	TypeVerification ChunkType = "verification"
	TypeSection      ChunkType = "section"
	TypeFull         ChunkType = "full"
)

var canonicalPriority = map[ChunkType]int{
	TypeFrontmatter:  10,
	TypeTrigger:      9, // above problem: trigger strings are the highest-signal retrieval targets
	TypeProblem:      8,
	TypeSolution:     7,
	TypeVerification: 5,
}

const (
	sectionPriority        = 4 // uncategorized skill section
	contextSectionPriority = 6 // context-file section
	fullPriority           = 5
)

// tokenBudget is the fixed, model-independent heuristic budget per chunk.
const tokenBudget = 500

func estimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

func fitsBudget(s string) bool { return estimateTokens(s) <= tokenBudget }

// ChunkRecord is an atomic unit of retrievable text.
type ChunkRecord struct {
	SourceFile string
	SourceType SourceType
	ChunkType  ChunkType
	Ordinal    int
	Content    string
	Heading    string
	Priority   int
	Metadata   map[string]string
}

// ID derives a stable identifier from (source_file, chunk_type, ordinal).
func (c ChunkRecord) ID() string {
	return fmt.Sprintf("%s#%s#%d", c.SourceFile, c.ChunkType, c.Ordinal)
}

// Result is the output of chunking one file.
type Result struct {
	Chunks     []ChunkRecord
	Importance *int
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Importance  *int   `yaml:"importance"`
}

// splitFrontmatter separates a leading YAML block delimited by "---" from
// the rest of the document. Malformed or absent frontmatter yields a nil
// fm and the body unchanged — malformed frontmatter is silently ignored
// and the whole file is treated as body (§4.C3).
func splitFrontmatter(content string) (*frontmatter, string) {
	if !strings.HasPrefix(content, "---") {
		return nil, content
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return nil, content
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, content
	}
	return &fm, strings.TrimPrefix(parts[2], "\n")
}

// Chunk parses raw markdown content for relPath into a Result. raw is
// normalized internally (§4.C2) so chunk boundaries are deterministic
// regardless of the caller's line-ending or trailing-whitespace state.
func Chunk(relPath string, raw []byte) (Result, error) {
	content := string(classify.Normalize(raw))
	fm, body := splitFrontmatter(content)

	var result Result
	if fm != nil && fm.Importance != nil {
		result.Importance = fm.Importance
	}

	isSkill := fm != nil && strings.TrimSpace(fm.Name) != "" && strings.TrimSpace(fm.Description) != ""
	if isSkill {
		result.Chunks = chunkSkill(relPath, fm, body)
	} else {
		result.Chunks = chunkContext(relPath, body)
	}

	result.Chunks = finalize(dropEmpty(result.Chunks))
	return result, nil
}

// dropEmpty removes chunks whose content is blank (§7: "chunk produces
// zero-length content — skip chunk").
func dropEmpty(chunks []ChunkRecord) []ChunkRecord {
	out := make([]ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			out = append(out, c)
		}
	}
	return out
}

// finalize assigns stable ordinals in emission order.
func finalize(chunks []ChunkRecord) []ChunkRecord {
	for i := range chunks {
		chunks[i].Ordinal = i
	}
	return chunks
}

func chunkSkill(relPath string, fm *frontmatter, body string) []ChunkRecord {
	chunks := []ChunkRecord{{
		SourceFile: relPath,
		SourceType: SourceSkill,
		ChunkType:  TypeFrontmatter,
		Content:    fmt.Sprintf("%s: %s", fm.Name, fm.Description),
		Priority:   canonicalPriority[TypeFrontmatter],
		Metadata:   map[string]string{"skill_name": fm.Name},
	}}

	for _, s := range splitByHeading(body, 2) {
		heading := strings.TrimSpace(s.heading)
		content := strings.TrimSpace(s.body)
		if content == "" {
			continue
		}
		ct, ok := canonicalSectionType(heading)
		if !ok {
			chunks = append(chunks, ChunkRecord{
				SourceFile: relPath,
				SourceType: SourceSkill,
				ChunkType:  TypeSection,
				Heading:    heading,
				Content:    content,
				Priority:   sectionPriority,
				Metadata:   map[string]string{"sectionPath": heading, "skill_name": fm.Name},
			})
			continue
		}
		chunks = append(chunks, ChunkRecord{
			SourceFile: relPath,
			SourceType: SourceSkill,
			ChunkType:  ct,
			Heading:    heading,
			Content:    content,
			Priority:   canonicalPriority[ct],
			Metadata:   map[string]string{"sectionPath": heading, "skill_name": fm.Name},
		})
	}
	return chunks
}

func canonicalSectionType(heading string) (ChunkType, bool) {
	switch strings.ToLower(strings.TrimSpace(heading)) {
	case "problem":
		return TypeProblem, true
	case "trigger":
		return TypeTrigger, true
	case "solution":
		return TypeSolution, true
	case "verification":
		return TypeVerification, true
	default:
		return "", false
	}
}

func chunkContext(relPath, body string) []ChunkRecord {
	sections := splitByHeading(body, 2)
	if len(sections) == 1 && sections[0].heading == "" {
		return chunkFull(relPath, sections[0].body)
	}

	var chunks []ChunkRecord
	for _, s := range sections {
		heading := strings.TrimSpace(s.heading)
		content := strings.TrimSpace(s.body)
		if content == "" {
			continue
		}
		chunks = append(chunks, chunkSection(relPath, heading, content)...)
	}
	return chunks
}

// chunkSection implements one level-2 section of a context file: emit
// whole if it fits, else split by H3, else split by paragraph/sentence.
func chunkSection(relPath, heading, content string) []ChunkRecord {
	if fitsBudget(content) {
		return []ChunkRecord{newSectionChunk(relPath, heading, content)}
	}

	subs := splitByHeading(content, 3)
	if len(subs) > 1 {
		var out []ChunkRecord
		for _, sub := range subs {
			subHeading := strings.TrimSpace(sub.heading)
			subContent := strings.TrimSpace(sub.body)
			if subContent == "" {
				continue
			}
			label := heading
			if subHeading != "" {
				label = heading + " > " + subHeading
			}
			out = append(out, splitToBudget(relPath, label, subContent)...)
		}
		return out
	}

	return splitToBudget(relPath, heading, content)
}

func newSectionChunk(relPath, heading, content string) ChunkRecord {
	return ChunkRecord{
		SourceFile: relPath,
		SourceType: SourceKnowledge,
		ChunkType:  TypeSection,
		Heading:    heading,
		Content:    content,
		Priority:   contextSectionPriority,
		Metadata:   map[string]string{"sectionPath": heading},
	}
}

// splitToBudget splits content that no longer has finer heading structure
// to break on: first by paragraph, then by sentence, never exceeding
// tokenBudget except when a single sentence alone already exceeds it (the
// content is then emitted whole rather than dropped).
func splitToBudget(relPath, heading, content string) []ChunkRecord {
	if fitsBudget(content) {
		return []ChunkRecord{newSectionChunk(relPath, heading, content)}
	}

	paragraphs := splitParagraphs(content)
	if len(paragraphs) > 1 {
		return groupToBudget(paragraphs, "\n\n", func(text string) []ChunkRecord {
			return splitToBudget(relPath, heading, text)
		})
	}

	sentences := splitSentences(content)
	if len(sentences) <= 1 {
		return []ChunkRecord{newSectionChunk(relPath, heading, content)}
	}
	return groupToBudget(sentences, " ", func(text string) []ChunkRecord {
		return []ChunkRecord{newSectionChunk(relPath, heading, text)}
	})
}

// groupToBudget greedily packs pieces (joined by sep) into runs that fit
// tokenBudget, handing any run that still doesn't fit to overflow for
// further splitting.
func groupToBudget(pieces []string, sep string, overflow func(string) []ChunkRecord) []ChunkRecord {
	var out []ChunkRecord
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			return
		}
		out = append(out, overflow(text)...)
		buf.Reset()
	}

	for _, p := range pieces {
		candidate := buf.String()
		if candidate != "" {
			candidate += sep
		}
		candidate += p
		if fitsBudget(candidate) {
			buf.Reset()
			buf.WriteString(candidate)
			continue
		}
		flush()
		buf.WriteString(p)
	}
	flush()
	return out
}

func chunkFull(relPath, body string) []ChunkRecord {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if fitsBudget(body) {
		return []ChunkRecord{{
			SourceFile: relPath,
			SourceType: SourceKnowledge,
			ChunkType:  TypeFull,
			Content:    body,
			Priority:   fullPriority,
		}}
	}

	paragraphs := splitParagraphs(body)
	full := func(text string) []ChunkRecord {
		return []ChunkRecord{{
			SourceFile: relPath,
			SourceType: SourceKnowledge,
			ChunkType:  TypeFull,
			Content:    text,
			Priority:   fullPriority,
		}}
	}
	if len(paragraphs) > 1 {
		return groupToBudget(paragraphs, "\n\n", func(text string) []ChunkRecord {
			if fitsBudget(text) {
				return full(text)
			}
			sentences := splitSentences(text)
			if len(sentences) <= 1 {
				return full(text)
			}
			return groupToBudget(sentences, " ", full)
		})
	}

	sentences := splitSentences(body)
	if len(sentences) <= 1 {
		return full(body)
	}
	return groupToBudget(sentences, " ", full)
}

type headingSection struct {
	heading string
	body    string
}

// splitByHeading splits content into sections at headings of exactly the
// given level ("## " for 2, "### " for 3). Content preceding the first
// such heading is returned as a section with an empty heading.
func splitByHeading(content string, level int) []headingSection {
	marker := strings.Repeat("#", level) + " "
	lines := strings.Split(content, "\n")

	var sections []headingSection
	heading := ""
	var body []string

	flush := func() {
		sections = append(sections, headingSection{heading: heading, body: strings.Join(body, "\n")})
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, marker) {
			flush()
			heading = strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			body = nil
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}

func splitParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(content)}
	}
	return out
}

// sentenceBoundary is a crude sentence splitter: break after ".", "!", or
// "?" followed by whitespace. Good enough for chunk-boundary purposes;
// this is not a prose-quality tokenizer.
var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

func splitSentences(content string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(content, -1) {
		if p := strings.TrimSpace(content[start:loc[1]]); p != "" {
			out = append(out, p)
		}
		start = loc[1]
	}
	if p := strings.TrimSpace(content[start:]); p != "" {
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{content}
	}
	return out
}
