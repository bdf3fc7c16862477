// Package retention removes indexed files from the store under memory
// pressure (§4.C8, "Retention"). It never touches the filesystem or the
// manifest — only the derived index. A forgotten file therefore stays out
// of the index until its content changes or the index is rebuilt.
package retention

import (
	"fmt"
	"sort"
	"time"

	"memoryforge/internal/engine"
	"memoryforge/internal/store"
)

const defaultProtectImportance = 8

// Config selects which files are eligible for removal.
type Config struct {
	// MaxFiles caps the total number of files kept: protected files all
	// stay and count toward the cap, and non-protected files are trimmed
	// least valuable first down to MaxFiles minus the protected count.
	// 0 means unset.
	MaxFiles int
	// MaxAgeDays marks candidates whose last access is older than this
	// (or who have never been accessed) as stale. 0 means unset.
	MaxAgeDays int
	// ProtectImportance is the importance floor that exempts a file from
	// all retention. Defaults to 8.
	ProtectImportance int
}

func (c Config) withDefaults() Config {
	if c.ProtectImportance == 0 {
		c.ProtectImportance = defaultProtectImportance
	}
	return c
}

// Result reports what ForgetStale did.
type Result struct {
	Removed        []string
	ProtectedCount int
	CandidateCount int
}

// ForgetStale removes files judged stale by cfg, in one transaction.
// At least one of MaxFiles or MaxAgeDays must be set.
func ForgetStale(eng *engine.Engine, cfg Config) (Result, error) {
	result, err := selectStale(eng, cfg)
	if err != nil {
		return Result{}, err
	}
	if err := eng.Store.RemoveFiles(result.Removed); err != nil {
		return Result{}, fmt.Errorf("remove stale files: %w", err)
	}
	return result, nil
}

// Preview reports what ForgetStale would remove without deleting anything.
func Preview(eng *engine.Engine, cfg Config) (Result, error) {
	return selectStale(eng, cfg)
}

func selectStale(eng *engine.Engine, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxFiles <= 0 && cfg.MaxAgeDays <= 0 {
		return Result{}, fmt.Errorf("retention: at least one of maxFiles or maxAgeDays must be set")
	}

	files, err := eng.Store.ListFiles()
	if err != nil {
		return Result{}, fmt.Errorf("list files: %w", err)
	}

	protected, candidates := partition(files, cfg.ProtectImportance)
	stale := map[string]bool{}

	if cfg.MaxAgeDays > 0 {
		markStaleByAge(candidates, cfg.MaxAgeDays, stale)
	}
	if cfg.MaxFiles > 0 {
		markStaleByCount(candidates, cfg.MaxFiles, len(protected), stale)
	}

	removed := make([]string, 0, len(stale))
	for path := range stale {
		removed = append(removed, path)
	}
	sort.Strings(removed)

	return Result{
		Removed:        removed,
		ProtectedCount: len(protected),
		CandidateCount: len(candidates),
	}, nil
}

func partition(files []store.FileRecord, protectImportance int) (protected, candidates []store.FileRecord) {
	for _, f := range files {
		if f.Importance >= protectImportance {
			protected = append(protected, f)
		} else {
			candidates = append(candidates, f)
		}
	}
	return protected, candidates
}

func markStaleByAge(candidates []store.FileRecord, maxAgeDays int, stale map[string]bool) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	for _, c := range candidates {
		if c.LastAccessed.IsZero() || c.LastAccessed.Before(cutoff) {
			stale[c.Path] = true
		}
	}
}

// markStaleByCount reduces candidates to max(0, maxFiles-protectedCount)
// by marking the least-important, then least-used, then oldest-accessed
// candidates stale first (§4.C8).
func markStaleByCount(candidates []store.FileRecord, maxFiles, protectedCount int, stale map[string]bool) {
	keep := maxFiles - protectedCount
	if keep < 0 {
		keep = 0
	}
	if keep >= len(candidates) {
		return
	}

	sorted := make([]store.FileRecord, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Importance != b.Importance {
			return a.Importance < b.Importance
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
		return a.LastAccessed.Before(b.LastAccessed)
	})

	for _, c := range sorted[:len(sorted)-keep] {
		stale[c.Path] = true
	}
}
