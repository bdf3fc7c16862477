// Package search implements the ranked semantic query (§4.C7): cosine
// similarity over stored chunk vectors, boosted by chunk priority.
package search

import (
	"context"
	"fmt"
	"sort"

	"memoryforge/internal/engine"
	"memoryforge/internal/store"
	"memoryforge/internal/syncer"
	"memoryforge/internal/vectormath"
)

const (
	defaultLimit     = 5
	defaultThreshold = 0.3
	priorityBoost    = 0.2
	uniqueOverFetch  = 3
)

// Options configures a Search call. A zero Limit or Threshold takes the
// default described in §4.C7. IncludeContent has no default: false
// leaves Result.Content empty.
type Options struct {
	Limit          int
	Threshold      float64
	SourceTypes    []string
	UniqueFiles    bool
	IncludeContent bool
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Threshold == 0 {
		o.Threshold = defaultThreshold
	}
	return o
}

// Result is one ranked chunk match.
type Result struct {
	FilePath  string
	ChunkType string
	Heading   string
	Priority  int
	Score     float64
	Content   string // empty when Options.IncludeContent is false
	Metadata  map[string]string
}

// Search ensures the index is fresh, embeds query, and returns the
// top-ranked chunks across the stored corpus.
func Search(ctx context.Context, eng *engine.Engine, query string, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	if _, err := syncer.EnsureFresh(ctx, eng); err != nil {
		return nil, fmt.Errorf("ensure index fresh: %w", err)
	}

	qv, err := eng.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := eng.Store.ListChunks(opts.SourceTypes...)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return []Result{}, nil
	}

	scored := rank(qv, chunks, opts.Threshold)
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	fetchLimit := opts.Limit
	if opts.UniqueFiles {
		fetchLimit = opts.Limit * uniqueOverFetch
	}
	if len(scored) > fetchLimit {
		scored = scored[:fetchLimit]
	}
	if opts.UniqueFiles {
		scored = foldUniqueFiles(scored, opts.Limit)
	} else if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	results, touched := toResults(scored, opts.IncludeContent)
	if len(touched) > 0 {
		if err := eng.Store.Touch(touched); err != nil {
			return nil, fmt.Errorf("touch results: %w", err)
		}
	}
	return results, nil
}

type scoredChunk struct {
	chunk store.Chunk
	score float64
}

// rank computes the priority-boosted score for every chunk that clears
// threshold. Both q and stored vectors are unit-normalized, so Dot is
// cosine similarity.
func rank(q []float32, chunks []store.Chunk, threshold float64) []scoredChunk {
	out := make([]scoredChunk, 0, len(chunks))
	for _, c := range chunks {
		sim, err := vectormath.Dot(q, c.Vector)
		if err != nil {
			continue // dimension mismatch: a stale vector from a since-changed model
		}
		adjusted := sim * (1 + priorityBoost*float64(c.Priority)/10)
		if adjusted < threshold {
			continue
		}
		out = append(out, scoredChunk{chunk: c, score: adjusted})
	}
	return out
}

func foldUniqueFiles(scored []scoredChunk, limit int) []scoredChunk {
	seen := make(map[string]bool, limit)
	out := make([]scoredChunk, 0, limit)
	for _, sc := range scored {
		if seen[sc.chunk.FilePath] {
			continue
		}
		seen[sc.chunk.FilePath] = true
		out = append(out, sc)
		if len(out) == limit {
			break
		}
	}
	return out
}

func toResults(scored []scoredChunk, includeContent bool) ([]Result, []string) {
	results := make([]Result, 0, len(scored))
	seenFiles := make(map[string]bool)
	var touched []string
	for _, sc := range scored {
		r := Result{
			FilePath:  sc.chunk.FilePath,
			ChunkType: sc.chunk.ChunkType,
			Heading:   sc.chunk.Heading,
			Priority:  sc.chunk.Priority,
			Score:     sc.score,
			Metadata:  sc.chunk.Metadata,
		}
		if includeContent {
			r.Content = sc.chunk.Content
		}
		results = append(results, r)
		if !seenFiles[sc.chunk.FilePath] {
			seenFiles[sc.chunk.FilePath] = true
			touched = append(touched, sc.chunk.FilePath)
		}
	}
	return results, touched
}
