package store

import "time"

// FileType classifies the kind of source artifact a record describes.
type FileType string

const (
	FileTypeBicep      FileType = "bicep"
	FileTypeTerraform  FileType = "terraform"
	FileTypeHelm       FileType = "helm"
	FileTypeYAML       FileType = "yaml"
	FileTypeCSharp     FileType = "csharp"
	FileTypePython     FileType = "python"
	FileTypeJavaScript FileType = "javascript"
	FileTypeTypeScript FileType = "typescript"
	FileTypePowerShell FileType = "powershell"
	FileTypeBash       FileType = "bash"
	FileTypeMarkdown   FileType = "markdown"
	FileTypeDockerfile FileType = "dockerfile"
	FileTypeEnv        FileType = "env"
	FileTypeJSON       FileType = "json"
	FileTypeOther      FileType = "other"
)

// Technology is the broad category a file belongs to.
type Technology string

const (
	TechInfrastructure Technology = "infrastructure-as-code"
	TechBackend        Technology = "backend"
	TechFrontend       Technology = "frontend"
	TechDevOps         Technology = "devops"
	TechTesting        Technology = "testing"
	TechDocumentation  Technology = "documentation"
	TechConfiguration  Technology = "configuration"
	TechOther          Technology = "other"
)

var fileTypes = []FileType{
	FileTypeBicep, FileTypeTerraform, FileTypeHelm, FileTypeYAML,
	FileTypeCSharp, FileTypePython, FileTypeJavaScript, FileTypeTypeScript,
	FileTypePowerShell, FileTypeBash, FileTypeMarkdown, FileTypeDockerfile,
	FileTypeEnv, FileTypeJSON, FileTypeOther,
}

var technologies = []Technology{
	TechInfrastructure, TechBackend, TechFrontend, TechDevOps,
	TechTesting, TechDocumentation, TechConfiguration, TechOther,
}

// ParseFileType returns the FileType for s, or false if s is not a member
// of the closed set.
func ParseFileType(s string) (FileType, bool) {
	for _, ft := range fileTypes {
		if string(ft) == s {
			return ft, true
		}
	}
	return "", false
}

// ParseTechnology returns the Technology for s, or false if s is not a
// member of the closed set.
func ParseTechnology(s string) (Technology, bool) {
	for _, t := range technologies {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// FileTypes returns all members of the FileType enumeration.
func FileTypes() []FileType { return append([]FileType(nil), fileTypes...) }

// Technologies returns all members of the Technology enumeration.
func Technologies() []Technology { return append([]Technology(nil), technologies...) }

// FileRecord is the canonical knowledge unit for one indexed file.
// Path is the unique key. Dependents are never stored on the record —
// they are derived from the full dependency edge set at query time.
type FileRecord struct {
	Path         string
	Repo         string
	FileType     FileType
	Technology   Technology
	Summary      string
	KeyElements  []string
	Dependencies []string
	Tags         []string
	ContentHash  string
	IndexedAt    time.Time
	CreatedAt    time.Time
	Metadata     map[string]any
}

// Outcome reports what an upsert did to the stored record.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeReplaced  Outcome = "replaced"
)

// ListFilter narrows List to matching records. Zero values mean "any".
type ListFilter struct {
	Repo       string
	FileType   FileType
	Technology Technology
}

// Stats aggregates the corpus by category.
type Stats struct {
	TotalFiles        int
	ByRepo            map[string]int
	ByFileType        map[string]int
	ByTechnology      map[string]int
	TotalDependencies int
	LastIndexed       time.Time // zero when the store is empty
}
