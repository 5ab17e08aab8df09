package orchestrator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/local/pdfsplitter/internal/split"
)

// SweepTemps removes split temp files (.split-*.tmp) left in dir by an
// interrupted write and older than maxAge. Subdirectories are not visited.
// It returns the number of files removed.
func SweepTemps(dir string, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	now := time.Now()
	removed := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !split.IsTempName(info.Name()) {
			return nil
		}
		if now.Sub(info.ModTime()) >= maxAge {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed
}

func dirOf(p string) string { return filepath.Dir(p) }
