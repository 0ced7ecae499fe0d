package knowledge

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"codelore/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validInput(path string) IndexInput {
	return IndexInput{
		Path:        path,
		Repo:        "azure-iac",
		FileType:    "bicep",
		Technology:  "infrastructure-as-code",
		Summary:     "Main infrastructure definition for Azure resources",
		KeyElements: []string{"storageAccount"},
		Tags:        []string{"azure", "storage"},
		ContentHash: "abc123",
	}
}

func TestIndexFileValidation(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name   string
		mutate func(*IndexInput)
		field  string
	}{
		{"missing path", func(in *IndexInput) { in.Path = "" }, "path"},
		{"missing repo", func(in *IndexInput) { in.Repo = "  " }, "repo"},
		{"missing summary", func(in *IndexInput) { in.Summary = "" }, "summary"},
		{"missing hash", func(in *IndexInput) { in.ContentHash = "" }, "content_hash"},
		{"unknown file type", func(in *IndexInput) { in.FileType = "cobol" }, "file_type"},
		{"unknown technology", func(in *IndexInput) { in.Technology = "quantum" }, "technology"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput("main.bicep")
			tc.mutate(&in)
			_, err := svc.IndexFile(in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestIndexFileOutcomes(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.IndexFile(validInput("main.bicep"))
	require.NoError(t, err)
	require.Equal(t, store.OutcomeCreated, res.Outcome)
	firstIndexed := res.Record.IndexedAt

	res, err = svc.IndexFile(validInput("main.bicep"))
	require.NoError(t, err)
	require.Equal(t, store.OutcomeUnchanged, res.Outcome)
	require.True(t, res.Record.IndexedAt.Equal(firstIndexed))

	changed := validInput("main.bicep")
	changed.ContentHash = "def456"
	changed.Summary = "Rewritten module"
	res, err = svc.IndexFile(changed)
	require.NoError(t, err)
	require.Equal(t, store.OutcomeReplaced, res.Outcome)
	require.Equal(t, "Rewritten module", res.Record.Summary)
}

func TestIndexFileCollapsesDuplicateTags(t *testing.T) {
	svc := newTestService(t)
	in := validInput("main.bicep")
	in.Tags = []string{"azure", "Azure", "prod", "azure"}
	res, err := svc.IndexFile(in)
	require.NoError(t, err)
	require.Equal(t, []string{"azure", "prod"}, res.Record.Tags)
}

func TestIndexBatchPartialFailure(t *testing.T) {
	svc := newTestService(t)

	invalid := validInput("broken.bicep")
	invalid.Summary = ""
	inputs := []IndexInput{validInput("a.bicep"), invalid, validInput("b.bicep")}

	results := svc.IndexBatch(inputs)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.Equal(t, store.OutcomeCreated, results[0].Outcome)
	require.Equal(t, "a.bicep", results[0].Path)

	var verr *ValidationError
	require.ErrorAs(t, results[1].Err, &verr)

	require.NoError(t, results[2].Err)
	require.Equal(t, store.OutcomeCreated, results[2].Outcome)

	stats, err := svc.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalFiles)

	_, err = svc.GetFileContext("broken.bicep")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchInvalidQuery(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Search("", 0, SearchFilter{})
	require.ErrorIs(t, err, ErrInvalidQuery)
	_, err = svc.Search("   ", 0, SearchFilter{})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchWithFilters(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.IndexFile(validInput("iac/main.bicep"))
	require.NoError(t, err)

	api := validInput("api/auth.cs")
	api.Repo = "IntakeAPI"
	api.FileType = "csharp"
	api.Technology = "backend"
	api.Tags = []string{"azure", "api"}
	_, err = svc.IndexFile(api)
	require.NoError(t, err)

	all, err := svc.Search("azure", 0, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyAPI, err := svc.Search("azure", 0, SearchFilter{Repo: "IntakeAPI"})
	require.NoError(t, err)
	require.Len(t, onlyAPI, 1)
	require.Equal(t, "api/auth.cs", onlyAPI[0].Record.Path)

	_, err = svc.Search("azure", 0, SearchFilter{FileType: "cobol"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGetFileContextDependentsAreDerived(t *testing.T) {
	svc := newTestService(t)

	parent := validInput("main.bicep")
	parent.Dependencies = []string{"modules/storage.bicep"}
	_, err := svc.IndexFile(parent)
	require.NoError(t, err)

	child := validInput("modules/storage.bicep")
	_, err = svc.IndexFile(child)
	require.NoError(t, err)

	fc, err := svc.GetFileContext("modules/storage.bicep")
	require.NoError(t, err)
	require.Equal(t, []string{"main.bicep"}, fc.Dependents)
	require.Empty(t, fc.DependencySummaries)

	fc, err = svc.GetFileContext("main.bicep")
	require.NoError(t, err)
	require.Empty(t, fc.Dependents)
	require.Equal(t,
		map[string]string{"modules/storage.bicep": "Main infrastructure definition for Azure resources"},
		fc.DependencySummaries)

	_, err = svc.GetFileContext("missing.bicep")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindRelated(t *testing.T) {
	svc := newTestService(t)

	root := validInput("root.bicep")
	root.Tags = []string{"azure", "storage"}
	root.Dependencies = []string{"dep.bicep"}
	_, err := svc.IndexFile(root)
	require.NoError(t, err)

	twoTags := validInput("two.bicep")
	twoTags.Tags = []string{"azure", "storage"}
	_, err = svc.IndexFile(twoTags)
	require.NoError(t, err)

	oneTag := validInput("one.bicep")
	oneTag.Tags = []string{"azure"}
	_, err = svc.IndexFile(oneTag)
	require.NoError(t, err)

	dep := validInput("dep.bicep")
	dep.Tags = []string{"unrelated"}
	_, err = svc.IndexFile(dep)
	require.NoError(t, err)

	results, err := svc.FindRelated("root.bicep", 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "two.bicep", results[0].Record.Path)
	require.Equal(t, 2, results[0].Score)

	// Unknown path: empty, not an error.
	results, err = svc.FindRelated("ghost.bicep", 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchByType(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.IndexFile(validInput("main.bicep"))
	require.NoError(t, err)

	api := validInput("auth.cs")
	api.FileType = "csharp"
	api.Technology = "backend"
	_, err = svc.IndexFile(api)
	require.NoError(t, err)

	byType, err := svc.SearchByType("bicep", 0)
	require.NoError(t, err)
	require.Len(t, byType, 1)
	require.Equal(t, "main.bicep", byType[0].Path)

	byTech, err := svc.SearchByType("backend", 0)
	require.NoError(t, err)
	require.Len(t, byTech, 1)
	require.Equal(t, "auth.cs", byTech[0].Path)

	_, err = svc.SearchByType("not-a-category", 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	none, err := svc.SearchByType("terraform", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestAnalyzeDependencies(t *testing.T) {
	svc := newTestService(t)

	a := validInput("a.bicep")
	a.Dependencies = []string{"b.bicep"}
	_, err := svc.IndexFile(a)
	require.NoError(t, err)

	b := validInput("b.bicep")
	b.Dependencies = []string{"a.bicep"} // cycle
	_, err = svc.IndexFile(b)
	require.NoError(t, err)

	analysis, err := svc.AnalyzeDependencies("a.bicep", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"b.bicep"}, analysis.Dependencies)
	require.Equal(t, []string{"b.bicep"}, analysis.Dependents)
	require.Equal(t, map[string]int{"a.bicep": 0, "b.bicep": 1}, analysis.Depths)

	// Absent record still succeeds with empty graph data.
	analysis, err = svc.AnalyzeDependencies("ghost.bicep", 0)
	require.NoError(t, err)
	require.Empty(t, analysis.Dependencies)
	require.Empty(t, analysis.Dependents)
	require.Equal(t, map[string]int{"ghost.bicep": 0}, analysis.Depths)
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := missingField("path")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, err.Error(), "path")
}
