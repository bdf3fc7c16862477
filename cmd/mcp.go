package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"memoryforge/internal/audit"
	"memoryforge/internal/engine"
	"memoryforge/internal/manifest"
	"memoryforge/internal/retention"
	"memoryforge/internal/search"
	"memoryforge/internal/syncer"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the knowledge index as tools",
	RunE:  runMCP,
}

func init() { rootCmd.AddCommand(mcpCmd) }

func runMCP(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	s := mcpserver.NewMCPServer("memory-forge", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(searchKnowledgeTool(), makeSearchKnowledgeHandler(eng))
	s.AddTool(saveKnowledgeTool(), makeSaveKnowledgeHandler(eng))
	s.AddTool(indexKnowledgeTool(), makeIndexKnowledgeHandler(eng))
	s.AddTool(knowledgeStatsTool(), makeKnowledgeStatsHandler(eng))
	s.AddTool(auditKnowledgeTool(), makeAuditKnowledgeHandler(eng))
	s.AddTool(forgetKnowledgeTool(), makeForgetKnowledgeHandler(eng))

	return mcpserver.ServeStdio(s)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var mutatingAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(false),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

// --- Tool schema builders ---

func searchKnowledgeTool() mcp.Tool {
	return mcp.NewTool("search_knowledge",
		mcp.WithDescription("Search the indexed knowledge base by meaning and return the best-matching chunks with their file paths."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query")),
		mcp.WithNumber("limit", mcp.Description("Maximum chunks to return (default 5)")),
		mcp.WithString("source_type", mcp.Description("Restrict to a source type: skill or knowledge")),
		mcp.WithBoolean("unique_files", mcp.Description("Return at most one chunk per file")),
	)
}

func saveKnowledgeTool() mcp.Tool {
	return mcp.NewTool("save_knowledge",
		mcp.WithDescription("Write a new markdown file under knowledge/ and re-sync the index. Refuses to overwrite an existing file."),
		mcp.WithToolAnnotation(mutatingAnnotation),
		mcp.WithString("type", mcp.Required(), mcp.Description(`"skill" or "context"`)),
		mcp.WithString("name", mcp.Required(), mcp.Description("Short title; used to derive the filename")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Main body (solution, for a skill; the whole note, for context)")),
		mcp.WithString("description", mcp.Description("One-line description (skill frontmatter)")),
		mcp.WithString("trigger", mcp.Description("When this skill applies (skill only)")),
		mcp.WithString("problem", mcp.Description("What this skill solves (skill only)")),
		mcp.WithNumber("importance", mcp.Description("Importance 1-10, default 5")),
	)
}

func indexKnowledgeTool() mcp.Tool {
	return mcp.NewTool("index_knowledge",
		mcp.WithDescription("Run a full sync of the knowledge index."),
		mcp.WithToolAnnotation(mutatingAnnotation),
		mcp.WithBoolean("force", mcp.Description("Clear the store and manifest before syncing")),
	)
}

func knowledgeStatsTool() mcp.Tool {
	return mcp.NewTool("knowledge_stats",
		mcp.WithDescription("Report file/chunk counts, the last-index timestamp, and access extremes."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func auditKnowledgeTool() mcp.Tool {
	return mcp.NewTool("audit_knowledge",
		mcp.WithDescription("Audit autoload files (CLAUDE.md, AGENTS.md, skills) for context-window bloat."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func forgetKnowledgeTool() mcp.Tool {
	return mcp.NewTool("forget_knowledge",
		mcp.WithDescription("Remove stale or low-value files from the index. At least one of max_files/max_age_days is required."),
		mcp.WithToolAnnotation(mutatingAnnotation),
		mcp.WithNumber("max_files", mcp.Description("Cap the total number of files kept (protected files always stay and count toward it)")),
		mcp.WithNumber("max_age_days", mcp.Description("Remove files unaccessed for this many days")),
	)
}

// --- Handler factories ---

func makeSearchKnowledgeHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		opts := search.Options{
			Limit:          int(req.GetFloat("limit", 5)),
			UniqueFiles:    req.GetBool("unique_files", false),
			IncludeContent: true,
		}
		if st := req.GetString("source_type", ""); st != "" {
			opts.SourceTypes = []string{st}
		}

		results, err := search.Search(ctx, eng, query, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeSaveKnowledgeHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := req.GetString("type", "")
		name := req.GetString("name", "")
		content := req.GetString("content", "")
		if kind != "skill" && kind != "context" {
			return mcp.NewToolResultError(`type must be "skill" or "context"`), nil
		}
		if name == "" || content == "" {
			return mcp.NewToolResultError("name and content are required"), nil
		}

		relPath := filepath.Join("knowledge", slugify(name)+".md")
		absPath := filepath.Join(eng.Config.ProjectRoot, relPath)
		if _, err := os.Stat(absPath); err == nil {
			return mcp.NewToolResultError(fmt.Sprintf("refusing to overwrite existing file %s", relPath)), nil
		}

		var body string
		if kind == "skill" {
			body = renderSkill(name, req.GetString("description", ""), req.GetString("trigger", ""),
				req.GetString("problem", ""), content, req.GetFloat("importance", 0))
		} else {
			body = renderContext(name, content)
		}

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create knowledge directory: %v", err)), nil
		}
		if err := os.WriteFile(absPath, []byte(body), 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("write %s: %v", relPath, err)), nil
		}

		if _, err := syncer.SyncProject(ctx, eng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saved %s but re-sync failed: %v", relPath, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("saved %s and re-synced the index", relPath)), nil
	}
}

func makeIndexKnowledgeHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if req.GetBool("force", false) {
			if err := eng.Store.Clear(); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("clear store: %v", err)), nil
			}
			if err := eng.SaveManifest(manifest.New()); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("clear manifest: %v", err)), nil
			}
		}
		stats, err := syncer.SyncProject(ctx, eng)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"indexed %d files (%d chunks), removed %d, total %d files%s",
			stats.FilesIndexed, stats.ChunksTotal, stats.FilesRemoved, stats.FilesTotal,
			map[bool]string{true: " — embedding model changed, full reindex"}[stats.ModelChanged],
		)), nil
	}
}

func makeKnowledgeStatsHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		files, err := eng.Store.ListFiles()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files: %v", err)), nil
		}
		chunks, err := eng.Store.ListChunks()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list chunks: %v", err)), nil
		}
		meta, err := eng.Store.GetMetadata()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get metadata: %v", err)), nil
		}
		m, err := eng.LoadManifest()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load manifest: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "files: %d\nchunks: %d\n", len(files), len(chunks))
		if meta.ModelID != "" {
			fmt.Fprintf(&sb, "model: %s (dim %d)\n", meta.ModelID, meta.Dim)
		}
		if !m.LastIndexed.IsZero() {
			fmt.Fprintf(&sb, "last indexed: %s\n", m.LastIndexed.Format("2006-01-02 15:04:05"))
		}

		var mostAccessed, leastAccessed string
		var maxAccess int64
		minAccess := int64(-1)
		for _, f := range files {
			if f.AccessCount > maxAccess {
				maxAccess = f.AccessCount
				mostAccessed = f.Path
			}
			if minAccess < 0 || f.AccessCount < minAccess {
				minAccess = f.AccessCount
				leastAccessed = f.Path
			}
		}
		if mostAccessed != "" {
			fmt.Fprintf(&sb, "most accessed: %s (%d times)\n", mostAccessed, maxAccess)
		}
		if leastAccessed != "" {
			fmt.Fprintf(&sb, "least accessed: %s (%d times)\n", leastAccessed, minAccess)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeAuditKnowledgeHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := audit.Audit(eng.Config.ProjectRoot)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("audit failed: %v", err)), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "total: %d tokens (%s)\n", report.TotalTokens, report.TotalLevel)
		for _, e := range report.Entries {
			fmt.Fprintf(&sb, "- %s: %d tokens (%s)\n", e.Path, e.Tokens, e.Level)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func makeForgetKnowledgeHandler(eng *engine.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg := retention.Config{
			MaxFiles:   int(req.GetFloat("max_files", 0)),
			MaxAgeDays: int(req.GetFloat("max_age_days", 0)),
		}
		result, err := retention.ForgetStale(eng, cfg)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("forget failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("removed %d files, %d protected by importance: %s",
			len(result.Removed), result.ProtectedCount, strings.Join(result.Removed, ", "))), nil
	}
}

// --- Formatting / rendering helpers ---

func formatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No matches for %q", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q (%d)\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. %s (score %.3f)\n\n", i+1, r.FilePath, r.Score)
		if r.Heading != "" {
			fmt.Fprintf(&sb, "**%s**\n\n", r.Heading)
		}
		fmt.Fprintf(&sb, "%s\n\n", r.Content)
	}
	return sb.String()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func renderSkill(name, description, trigger, problem, solution string, importance float64) string {
	var fm strings.Builder
	fm.WriteString("---\n")
	fmt.Fprintf(&fm, "name: %s\n", name)
	if description == "" {
		description = name
	}
	fmt.Fprintf(&fm, "description: %s\n", description)
	if importance > 0 {
		fmt.Fprintf(&fm, "importance: %d\n", int(importance))
	}
	fm.WriteString("---\n\n")

	var body strings.Builder
	if trigger != "" {
		fmt.Fprintf(&body, "## Trigger\n\n%s\n\n", trigger)
	}
	if problem != "" {
		fmt.Fprintf(&body, "## Problem\n\n%s\n\n", problem)
	}
	fmt.Fprintf(&body, "## Solution\n\n%s\n", solution)

	return fm.String() + body.String()
}

func renderContext(name, content string) string {
	return fmt.Sprintf("# %s\n\n%s\n", name, content)
}
