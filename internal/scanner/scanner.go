// Package scanner compares a working tree against the knowledge store.
// It hashes file content and classifies each path as unchanged, stale,
// missing, or unindexed. It never writes to the store: re-indexing stale
// files is the indexing client's job.
package scanner

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"codelore/internal/store"
)

// maxFileSize is the largest file considered for hashing (1 MB).
const maxFileSize = 1 << 20

// defaultIgnores are used when no .codeloreignore file exists.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".codelore",
	"dist",
	"build",
}

// Report classifies working-tree files against the store. Stored paths are
// opaque and compared exactly against root-relative forward-slash paths.
type Report struct {
	Unchanged []string // indexed, content hash matches
	Stale     []string // indexed, content hash differs
	Missing   []string // indexed under the repo but absent on disk
	Unindexed []string // on disk but no record
}

// Scan walks the tree rooted at root and compares every regular file
// against the records stored for repo.
func Scan(st store.Store, root, repo string) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	records, err := st.List(store.ListFilter{Repo: repo}, 0)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]store.FileRecord, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}

	ignores := loadIgnorePatterns(absRoot)
	report := &Report{}
	seen := make(map[string]struct{})

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if matchesIgnore(d.Name(), rel, ignores) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if matchesIgnore(d.Name(), rel, ignores) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rec, indexed := byPath[rel]
		if info.Size() > maxFileSize || info.Size() == 0 {
			// Present on disk, just not worth hashing. An indexed file in
			// this range must not be reported as missing.
			if indexed {
				seen[rel] = struct{}{}
			}
			return nil
		}
		if !indexed {
			report.Unindexed = append(report.Unindexed, rel)
			return nil
		}
		seen[rel] = struct{}{}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		sum := sha256.Sum256(src)
		if hex.EncodeToString(sum[:]) == rec.ContentHash {
			report.Unchanged = append(report.Unchanged, rel)
		} else {
			report.Stale = append(report.Stale, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for path := range byPath {
		if _, ok := seen[path]; !ok {
			report.Missing = append(report.Missing, path)
		}
	}

	sort.Strings(report.Unchanged)
	sort.Strings(report.Stale)
	sort.Strings(report.Missing)
	sort.Strings(report.Unindexed)
	return report, nil
}

// loadIgnorePatterns reads .codeloreignore from the scan root, falling back
// to the defaults when the file is absent or empty.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".codeloreignore"))
	if err != nil {
		return defaultIgnores
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return defaultIgnores
	}
	return patterns
}

// matchesIgnore checks a name or relative path against the ignore patterns.
// Patterns are doublestar globs; a bare name also matches exactly.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		if name == p {
			return true
		}
		if strings.HasPrefix(relPath, p+"/") || relPath == p {
			return true
		}
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
