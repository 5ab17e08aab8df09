package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/split"
)

// Watcher processes files as they land in a folder. Files the watcher
// produced itself are never picked up again.
type Watcher struct {
	orch     *Orchestrator
	debounce time.Duration

	mu       sync.Mutex
	produced map[string]bool
}

func NewWatcher(o *Orchestrator, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{orch: o, debounce: debounce, produced: make(map[string]bool)}
}

// Run blocks until ctx is done. Files created or written in dir are
// collected until dir has been quiet for the debounce period, then
// processed as one job. onJob, if set, sees every finished job.
func (w *Watcher) Run(ctx context.Context, dir string, onJob func(Job)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info().Str("folder", dir).Dur("debounce", w.debounce).Msg("watching folder")

	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("folder", dir).Msg("watcher error")
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.wanted(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
					paths = append(paths, p)
				}
			}
			pending = map[string]bool{}
			if len(paths) == 0 {
				continue
			}
			sort.Strings(paths)
			job, err := w.orch.ProcessFiles(ctx, paths)
			if err != nil {
				log.Error().Err(err).Str("folder", dir).Msg("watch job failed")
				continue
			}
			w.remember(job.Result)
			if onJob != nil {
				onJob(job)
			}
		}
	}
}

func (w *Watcher) wanted(p string) bool {
	name := filepath.Base(p)
	if strings.HasPrefix(name, ".") || split.IsTempName(name) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.produced[filepath.Clean(p)]
}

func (w *Watcher) remember(res split.JobResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, of := range res.OutputFiles {
		if of.StartPage > 0 {
			w.produced[filepath.Clean(of.Path)] = true
		}
	}
}
