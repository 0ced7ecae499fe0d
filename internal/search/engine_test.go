package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codelore/internal/store"
)

var baseTime = time.Date(2025, 10, 29, 18, 0, 0, 0, time.UTC)

func record(path string, indexedAt time.Time, tags []string) store.FileRecord {
	return store.FileRecord{
		Path:       path,
		Repo:       "azure-iac",
		FileType:   store.FileTypeBicep,
		Technology: store.TechInfrastructure,
		Summary:    "Main infrastructure definition",
		Tags:       tags,
		IndexedAt:  indexedAt,
	}
}

func TestRankTagScoringExample(t *testing.T) {
	tagged := record("a.bicep", baseTime, []string{"storage", "azure"})
	other := record("b.bicep", baseTime, []string{"keyvault"})
	other.Summary = "Key vault module with storage-unrelated content"

	results, err := Rank([]store.FileRecord{other, tagged}, "azure storage", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "a.bicep", results[0].Record.Path)
	require.GreaterOrEqual(t, results[0].Score, 6) // two exact tag hits
}

func TestRankFieldWeights(t *testing.T) {
	rec := record("services/auth.cs", baseTime, []string{"api"})
	rec.Summary = "Authentication service for the api gateway"
	rec.KeyElements = []string{"AuthService", "TokenValidator"}

	// "api": tag (+3), summary (+2). "auth": summary? no — summary has
	// "Authentication" which contains "auth" (+2), element AuthService (+1),
	// path (+1).
	results, err := Rank([]store.FileRecord{rec}, "api auth", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 9, results[0].Score)
}

func TestRankExcludesZeroScores(t *testing.T) {
	rec := record("a.bicep", baseTime, nil)
	results, err := Rank([]store.FileRecord{rec}, "nonexistent-term", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRankDeterminism(t *testing.T) {
	corpus := []store.FileRecord{
		record("c.bicep", baseTime.Add(2*time.Minute), []string{"azure"}),
		record("a.bicep", baseTime, []string{"azure"}),
		record("b.bicep", baseTime.Add(time.Minute), []string{"azure", "storage"}),
	}

	first, err := Rank(corpus, "azure storage", 10)
	require.NoError(t, err)
	second, err := Rank(corpus, "azure storage", 10)
	require.NoError(t, err)
	require.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		require.LessOrEqual(t, first[i].Score, first[i-1].Score)
	}
}

func TestRankTieBreaks(t *testing.T) {
	older := record("a.bicep", baseTime, []string{"azure"})
	newer := record("z.bicep", baseTime.Add(time.Hour), []string{"azure"})
	results, err := Rank([]store.FileRecord{older, newer}, "azure", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "z.bicep", results[0].Record.Path) // newer first

	twinA := record("a.bicep", baseTime, []string{"azure"})
	twinB := record("b.bicep", baseTime, []string{"azure"})
	results, err = Rank([]store.FileRecord{twinB, twinA}, "azure", 10)
	require.NoError(t, err)
	require.Equal(t, "a.bicep", results[0].Record.Path) // path ascending
}

func TestRankEmptyQuery(t *testing.T) {
	_, err := Rank(nil, "", 10)
	require.ErrorIs(t, err, ErrEmptyQuery)
	_, err = Rank(nil, "   \t  ", 10)
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRankLimit(t *testing.T) {
	var corpus []store.FileRecord
	for _, p := range []string{"a", "b", "c", "d"} {
		corpus = append(corpus, record(p+".bicep", baseTime, []string{"azure"}))
	}
	results, err := Rank(corpus, "azure", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestRankDuplicateTagsCollapse(t *testing.T) {
	rec := record("a.bicep", baseTime, []string{"azure", "AZURE", "Azure"})
	results, err := Rank([]store.FileRecord{rec}, "azure", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 3, results[0].Score) // one tag hit, not three
}

func TestRelatedRanksBySharedSignals(t *testing.T) {
	root := record("root.bicep", baseTime, []string{"azure", "storage"})
	root.Dependencies = []string{"dep.bicep"}

	twoTags := record("two.bicep", baseTime, []string{"azure", "storage"})
	oneTag := record("one.bicep", baseTime, []string{"azure"})
	dependency := record("dep.bicep", baseTime, nil)
	dependent := record("parent.bicep", baseTime, nil)
	dependent.Dependencies = []string{"root.bicep"}
	unrelated := record("other.bicep", baseTime, []string{"gcp"})

	corpus := []store.FileRecord{root, unrelated, oneTag, dependent, dependency, twoTags}
	results := Related(corpus, root, 10)

	require.Len(t, results, 4)
	require.Equal(t, "two.bicep", results[0].Record.Path)
	require.Equal(t, 2, results[0].Score)
	for _, r := range results {
		require.NotEqual(t, "root.bicep", r.Record.Path)
		require.NotEqual(t, "other.bicep", r.Record.Path)
	}
}

func TestRelatedEmptyWhenNoSignals(t *testing.T) {
	root := record("root.bicep", baseTime, []string{"azure"})
	lonely := record("lonely.bicep", baseTime, []string{"gcp"})
	require.Empty(t, Related([]store.FileRecord{root, lonely}, root, 10))
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"azure", "storage"}, Tokenize("  Azure   STORAGE "))
	require.Empty(t, Tokenize("   "))
}
