package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"codelore/internal/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func indexRecord(t *testing.T, st store.Store, path, hash string) {
	t.Helper()
	_, _, err := st.Upsert(store.FileRecord{
		Path:        path,
		Repo:        "demo",
		FileType:    store.FileTypeOther,
		Technology:  store.TechOther,
		Summary:     "test record",
		ContentHash: hash,
	})
	require.NoError(t, err)
}

func TestScanClassifiesFiles(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	hashA := writeFile(t, root, "a.txt", "alpha content")
	writeFile(t, root, "b.txt", "beta content, edited since indexing")
	writeFile(t, root, "sub/c.txt", "gamma content")

	indexRecord(t, st, "a.txt", hashA)
	indexRecord(t, st, "b.txt", "stale-hash-from-before-the-edit")
	indexRecord(t, st, "gone.txt", "deadbeef")

	report, err := Scan(st, root, "demo")
	require.NoError(t, err)

	require.Equal(t, []string{"a.txt"}, report.Unchanged)
	require.Equal(t, []string{"b.txt"}, report.Stale)
	require.Equal(t, []string{"gone.txt"}, report.Missing)
	require.Equal(t, []string{"sub/c.txt"}, report.Unindexed)
}

func TestScanIgnoresOtherRepos(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	hash := writeFile(t, root, "a.txt", "alpha content")
	indexRecord(t, st, "a.txt", hash)
	_, _, err := st.Upsert(store.FileRecord{
		Path:        "other.txt",
		Repo:        "unrelated",
		FileType:    store.FileTypeOther,
		Technology:  store.TechOther,
		Summary:     "belongs to another repo",
		ContentHash: "aaaa",
	})
	require.NoError(t, err)

	report, err := Scan(st, root, "demo")
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, report.Unchanged)
	require.Empty(t, report.Missing)
}

func TestScanSkipsDefaultIgnoredDirs(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = 1")
	writeFile(t, root, ".git/config", "[core]")
	writeFile(t, root, "keep.txt", "kept")

	report, err := Scan(st, root, "demo")
	require.NoError(t, err)
	require.Equal(t, []string{"keep.txt"}, report.Unindexed)
}

func TestScanSkipsLargeAndEmptyFiles(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	writeFile(t, root, "empty.txt", "")
	big := make([]byte, maxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))
	writeFile(t, root, "normal.txt", "fits")

	report, err := Scan(st, root, "demo")
	require.NoError(t, err)
	require.Equal(t, []string{"normal.txt"}, report.Unindexed)
}

func TestScanIndexedUnhashableFilesAreNotMissing(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	writeFile(t, root, "empty.txt", "")
	big := make([]byte, maxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), big, 0o644))

	indexRecord(t, st, "empty.txt", "hash-at-index-time")
	indexRecord(t, st, "big.bin", "hash-at-index-time")
	indexRecord(t, st, "gone.txt", "hash-at-index-time")

	// Files present on disk but skipped by the size rules are not missing;
	// only the record with no file behind it is.
	report, err := Scan(st, root, "demo")
	require.NoError(t, err)
	require.Equal(t, []string{"gone.txt"}, report.Missing)
	require.Empty(t, report.Unchanged)
	require.Empty(t, report.Stale)
	require.Empty(t, report.Unindexed)
}

func TestScanHonorsIgnoreFile(t *testing.T) {
	st := openTestStore(t)
	root := t.TempDir()

	writeFile(t, root, ".codeloreignore", "*.log\ntmp\n")
	writeFile(t, root, "app.log", "log line")
	writeFile(t, root, "tmp/scratch.txt", "scratch")
	writeFile(t, root, "src/main.go", "package main")

	report, err := Scan(st, root, "demo")
	require.NoError(t, err)
	// The ignore file itself is an ordinary tree entry.
	require.Equal(t, []string{".codeloreignore", "src/main.go"}, report.Unindexed)
}
