package orchestrator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/local/pdfsplitter/internal/split"
)

// ScanFolder turns the regular files of dir into classifier groups, in
// name order. Hidden files and split temp files are skipped.
func ScanFolder(dir string) ([]split.Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var groups []split.Group
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || split.IsTempName(name) {
			continue
		}
		groups = append(groups, split.Group{SourcePath: filepath.Join(dir, name)})
	}
	return groups, nil
}
