// Package knowledge is the query facade over the record store, search
// engine, and dependency graph. It owns cross-cutting validation and batch
// partial-failure aggregation; paths are opaque strings compared exactly.
package knowledge

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codelore/internal/graph"
	"codelore/internal/search"
	"codelore/internal/store"
)

// DefaultRelatedLimit bounds find_related result sets.
const DefaultRelatedLimit = 10

// Service exposes the knowledge base operations. It is safe for concurrent
// use: all state lives in the store, and upserts are atomic per row.
type Service struct {
	store store.Store
	log   *slog.Logger
}

// New creates a Service over the given store. A nil logger falls back to
// the default slog logger.
func New(st store.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, log: log}
}

// IndexInput carries one file's extracted knowledge to be indexed.
type IndexInput struct {
	Path         string         `json:"path"`
	Repo         string         `json:"repo"`
	FileType     string         `json:"file_type"`
	Technology   string         `json:"technology"`
	Summary      string         `json:"summary"`
	KeyElements  []string       `json:"key_elements,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	ContentHash  string         `json:"content_hash"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IndexResult reports what indexing did and the record as stored.
type IndexResult struct {
	Outcome store.Outcome
	Record  store.FileRecord
}

func (in IndexInput) toRecord() (store.FileRecord, error) {
	if strings.TrimSpace(in.Path) == "" {
		return store.FileRecord{}, missingField("path")
	}
	if strings.TrimSpace(in.Repo) == "" {
		return store.FileRecord{}, missingField("repo")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return store.FileRecord{}, missingField("summary")
	}
	if strings.TrimSpace(in.ContentHash) == "" {
		return store.FileRecord{}, missingField("content_hash")
	}
	fileType, ok := store.ParseFileType(in.FileType)
	if !ok {
		return store.FileRecord{}, &ValidationError{Field: "file_type", Reason: fmt.Sprintf("unknown value %q", in.FileType)}
	}
	technology, ok := store.ParseTechnology(in.Technology)
	if !ok {
		return store.FileRecord{}, &ValidationError{Field: "technology", Reason: fmt.Sprintf("unknown value %q", in.Technology)}
	}
	return store.FileRecord{
		Path:         in.Path,
		Repo:         in.Repo,
		FileType:     fileType,
		Technology:   technology,
		Summary:      in.Summary,
		KeyElements:  in.KeyElements,
		Dependencies: in.Dependencies,
		Tags:         collapseTags(in.Tags),
		ContentHash:  in.ContentHash,
		Metadata:     in.Metadata,
	}, nil
}

// collapseTags applies set semantics while preserving first-seen order.
func collapseTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// IndexFile validates and upserts a single record. The outcome is
// "unchanged" when the stored content hash matches, in which case
// indexed_at is not advanced.
func (s *Service) IndexFile(in IndexInput) (IndexResult, error) {
	rec, err := in.toRecord()
	if err != nil {
		return IndexResult{}, err
	}
	outcome, stored, err := s.store.Upsert(rec)
	if err != nil {
		return IndexResult{}, fmt.Errorf("upsert %s: %w", rec.Path, err)
	}
	s.log.Debug("indexed file", "path", rec.Path, "outcome", string(outcome))
	return IndexResult{Outcome: outcome, Record: stored}, nil
}

// BatchItemResult is one input's result: either an outcome or an error,
// never both. Results keep the order of the inputs.
type BatchItemResult struct {
	Path    string
	Outcome store.Outcome
	Record  store.FileRecord
	Err     error
}

// IndexBatch indexes every input independently. One item's failure never
// rolls back or blocks the others; the caller can retry just the failed
// subset. Items run concurrently, relying on per-row upsert atomicity.
func (s *Service) IndexBatch(inputs []IndexInput) []BatchItemResult {
	results := make([]BatchItemResult, len(inputs))
	batchID := uuid.NewString()

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, in := range inputs {
		g.Go(func() error {
			res, err := s.IndexFile(in)
			if err != nil {
				results[i] = BatchItemResult{Path: in.Path, Err: err}
				return nil
			}
			results[i] = BatchItemResult{Path: in.Path, Outcome: res.Outcome, Record: res.Record}
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Info("indexed batch", "batch_id", batchID, "items", len(inputs), "failed", failed)
	return results
}

// SearchFilter narrows a search to records matching the set fields.
type SearchFilter struct {
	Repo       string
	FileType   string
	Technology string
}

func (f SearchFilter) toListFilter() (store.ListFilter, error) {
	lf := store.ListFilter{Repo: f.Repo}
	if f.FileType != "" {
		ft, ok := store.ParseFileType(f.FileType)
		if !ok {
			return store.ListFilter{}, &ValidationError{Field: "file_type", Reason: fmt.Sprintf("unknown value %q", f.FileType)}
		}
		lf.FileType = ft
	}
	if f.Technology != "" {
		t, ok := store.ParseTechnology(f.Technology)
		if !ok {
			return store.ListFilter{}, &ValidationError{Field: "technology", Reason: fmt.Sprintf("unknown value %q", f.Technology)}
		}
		lf.Technology = t
	}
	return lf, nil
}

// Search ranks records against a free-text query. Results are deterministic
// for a fixed corpus and query.
func (s *Service) Search(query string, limit int, filter SearchFilter) ([]search.Result, error) {
	if len(search.Tokenize(query)) == 0 {
		return nil, ErrInvalidQuery
	}
	lf, err := filter.toListFilter()
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.List(lf, 0)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return search.Rank(candidates, query, limit)
}

// FileContext is a record together with its graph-derived dependents and
// the summaries of its indexed dependencies.
type FileContext struct {
	Record              store.FileRecord
	Dependents          []string
	DependencySummaries map[string]string
}

// GetFileContext returns the full record for path, or ErrNotFound.
// Dependents come from the dependency graph, never from stored state.
// Dependencies that are themselves indexed contribute their summaries;
// dangling dependency paths are simply absent from the map.
func (s *Service) GetFileContext(path string) (FileContext, error) {
	rec, ok, err := s.store.Get(path)
	if err != nil {
		return FileContext{}, fmt.Errorf("get %s: %w", path, err)
	}
	if !ok {
		return FileContext{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	edges, err := s.store.DependencyEdges()
	if err != nil {
		return FileContext{}, fmt.Errorf("dependency edges: %w", err)
	}
	deps, err := s.store.GetMany(rec.Dependencies)
	if err != nil {
		return FileContext{}, fmt.Errorf("get dependencies: %w", err)
	}
	summaries := make(map[string]string, len(deps))
	for p, d := range deps {
		summaries[p] = d.Summary
	}
	return FileContext{
		Record:              rec,
		Dependents:          graph.Build(edges).DirectDependents(path),
		DependencySummaries: summaries,
	}, nil
}

// FindRelated returns records sharing at least one tag with path's record
// or connected to it by a dependency edge in either direction, ranked by
// the number of shared signals. An unknown path yields an empty result.
func (s *Service) FindRelated(path string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	root, ok, err := s.store.Get(path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if !ok {
		return nil, nil
	}
	candidates, err := s.store.List(store.ListFilter{}, 0)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return search.Related(candidates, root, limit), nil
}

// SearchByType lists records whose file_type or technology equals value.
// The value must be a member of one of the two enumerations.
func (s *Service) SearchByType(value string, limit int) ([]store.FileRecord, error) {
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	if ft, ok := store.ParseFileType(value); ok {
		return s.store.List(store.ListFilter{FileType: ft}, limit)
	}
	if t, ok := store.ParseTechnology(value); ok {
		return s.store.List(store.ListFilter{Technology: t}, limit)
	}
	return nil, &ValidationError{Field: "value", Reason: fmt.Sprintf("%q is neither a file type nor a technology", value)}
}

// Stats aggregates category counts over the whole store.
func (s *Service) Stats() (store.Stats, error) {
	return s.store.Stats()
}

// AnalyzeDependencies reports direct dependencies, direct dependents, and
// the bounded transitive depth map for path. It never fails for an absent
// record: the report is computed purely from edge data.
func (s *Service) AnalyzeDependencies(path string, maxDepth int) (graph.Analysis, error) {
	edges, err := s.store.DependencyEdges()
	if err != nil {
		return graph.Analysis{}, fmt.Errorf("dependency edges: %w", err)
	}
	return graph.Build(edges).Analyze(path, maxDepth), nil
}
