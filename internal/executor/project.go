package executor

import (
	"os"
	"path/filepath"
)

// projectMarkers are the files and directories that mark a project root.
var projectMarkers = []string{
	"go.mod",
	"package.json",
	"Cargo.toml",
	"pyproject.toml",
	"setup.py",
	".git",
}

// DetectProject derives a project scope for the given file or directory:
// the nearest ancestor directory carrying a project marker, or the starting
// directory when no marker is found.
func DetectProject(path string, languages ...string) Project {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Project{Root: path, Languages: languages}
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	for dir := abs; ; dir = filepath.Dir(dir) {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return Project{Root: dir, Languages: languages}
			}
		}
		if filepath.Dir(dir) == dir {
			return Project{Root: abs, Languages: languages}
		}
	}
}
