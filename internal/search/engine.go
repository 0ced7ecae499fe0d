// Package search ranks knowledge records against free-text queries using a
// deterministic heuristic: the same corpus and query always produce the same
// ordered results.
package search

import (
	"errors"
	"sort"
	"strings"

	"codelore/internal/store"
)

// ErrEmptyQuery is returned when a query contains no terms after tokenization.
var ErrEmptyQuery = errors.New("query is empty")

const (
	// DefaultLimit bounds result sets when the caller doesn't ask for a limit.
	DefaultLimit = 50
	// MaxLimit is the hard cap on requested result counts.
	MaxLimit = 100
)

// Term weights. Tags are strongest because they are curated; summary beats
// key elements and path because it describes the whole file.
const (
	tagWeight        = 3
	summaryWeight    = 2
	keyElementWeight = 1
	pathWeight       = 1
)

// Result pairs a record with its relevance score.
type Result struct {
	Record store.FileRecord
	Score  int
}

// Tokenize splits a query into lower-cased terms on whitespace.
func Tokenize(query string) []string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, strings.ToLower(f))
	}
	return terms
}

// Rank scores every candidate against the query and returns matches ordered
// by score descending, then indexed_at descending, then path ascending.
// Records that match no term are excluded.
func Rank(candidates []store.FileRecord, query string, limit int) ([]Result, error) {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	limit = clampLimit(limit)

	var results []Result
	for _, rec := range candidates {
		if score := scoreRecord(rec, terms); score > 0 {
			results = append(results, Result{Record: rec, Score: score})
		}
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scoreRecord(rec store.FileRecord, terms []string) int {
	summary := strings.ToLower(rec.Summary)
	path := strings.ToLower(rec.Path)

	// Tags match exactly with set semantics: duplicates collapse.
	tagSet := make(map[string]struct{}, len(rec.Tags))
	for _, t := range rec.Tags {
		tagSet[strings.ToLower(t)] = struct{}{}
	}
	elements := make([]string, len(rec.KeyElements))
	for i, e := range rec.KeyElements {
		elements[i] = strings.ToLower(e)
	}

	score := 0
	for _, term := range terms {
		if _, ok := tagSet[term]; ok {
			score += tagWeight
		}
		if strings.Contains(summary, term) {
			score += summaryWeight
		}
		for _, e := range elements {
			if strings.Contains(e, term) {
				score += keyElementWeight
				break
			}
		}
		if strings.Contains(path, term) {
			score += pathWeight
		}
	}
	return score
}

// Related ranks candidates by the number of signals they share with root:
// each shared tag counts once, as does a dependency edge in either
// direction. The root itself is excluded.
func Related(candidates []store.FileRecord, root store.FileRecord, limit int) []Result {
	if limit <= 0 {
		limit = 10
	}
	rootTags := make(map[string]struct{}, len(root.Tags))
	for _, t := range root.Tags {
		rootTags[strings.ToLower(t)] = struct{}{}
	}
	rootDeps := make(map[string]struct{}, len(root.Dependencies))
	for _, d := range root.Dependencies {
		rootDeps[d] = struct{}{}
	}

	var results []Result
	for _, rec := range candidates {
		if rec.Path == root.Path {
			continue
		}
		signals := 0
		seen := make(map[string]struct{})
		for _, t := range rec.Tags {
			lt := strings.ToLower(t)
			if _, dup := seen[lt]; dup {
				continue
			}
			seen[lt] = struct{}{}
			if _, ok := rootTags[lt]; ok {
				signals++
			}
		}
		if _, ok := rootDeps[rec.Path]; ok {
			signals++
		}
		for _, d := range rec.Dependencies {
			if d == root.Path {
				signals++
				break
			}
		}
		if signals > 0 {
			results = append(results, Result{Record: rec, Score: signals})
		}
	}
	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Record.IndexedAt.Equal(b.Record.IndexedAt) {
			return a.Record.IndexedAt.After(b.Record.IndexedAt)
		}
		return a.Record.Path < b.Record.Path
	})
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
