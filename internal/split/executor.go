package split

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Extractor writes the inclusive page range r of the PDF at src to w.
// Implementations open and release src within the call.
type Extractor interface {
	ExtractRange(src string, r PageRange, w io.Writer) error
}

// Executor runs split plans against the filesystem, one segment at a time.
type Executor struct {
	extractor Extractor
	remove    func(string) error
}

func NewExecutor(x Extractor) *Executor {
	return &Executor{extractor: x, remove: os.Remove}
}

// Execute writes every segment of plan to its target through a temporary
// file and rename. A failed segment is recorded and the next one is tried.
// Stale outputs are deleted only when at least one segment was written.
// keep holds paths produced elsewhere in the same request; they are never
// deleted. It may be nil.
func (e *Executor) Execute(plan SplitPlan, keep map[string]bool) ExecResult {
	res := ExecResult{Errors: append([]error(nil), plan.Rejected...)}
	written := make(map[string]bool, len(plan.Segments))
	for _, seg := range plan.Segments {
		if err := e.writeSegment(plan.Source.Path, seg); err != nil {
			log.Warn().Err(err).Str("source", plan.Source.Path).Int("start", seg.Start).Int("end", seg.End).Msg("segment failed")
			res.Errors = append(res.Errors, err)
			continue
		}
		written[filepath.Clean(seg.Target)] = true
		res.Outputs = append(res.Outputs, OutputFile{
			Path:             seg.Target,
			OriginalFilePath: plan.Source.Path,
			IsMultipage:      seg.End > seg.Start,
			StartPage:        seg.Start,
			EndPage:          seg.End,
		})
		log.Debug().Str("source", plan.Source.Path).Str("path", seg.Target).Int("start", seg.Start).Int("end", seg.End).Msg("segment written")
	}
	if len(res.Outputs) > 0 {
		for p := range keep {
			written[p] = true
		}
		deleted, errs := e.cleanup(plan.Source.Path, plan.StaleOutputs, written)
		res.Deleted = deleted
		res.Errors = append(res.Errors, errs...)
	}
	return res
}

// Cleanup deletes the stale outputs of a plan that had nothing to write,
// sparing the paths in keep. The caller decides whether the surrounding
// request succeeded.
func (e *Executor) Cleanup(plan SplitPlan, keep map[string]bool) ExecResult {
	deleted, errs := e.cleanup(plan.Source.Path, plan.StaleOutputs, keep)
	return ExecResult{Deleted: deleted, Errors: errs}
}

func (e *Executor) writeSegment(src string, seg Segment) error {
	err := WriteFileAtomic(seg.Target, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		if err := e.extractor.ExtractRange(src, seg.PageRange, cw); err != nil {
			return err
		}
		if cw.n == 0 {
			return errEmptyWrite
		}
		return nil
	})
	if err != nil {
		return &ExtractionError{Source: src, Start: seg.Start, End: seg.End, Target: seg.Target, Err: err}
	}
	return nil
}

// cleanup removes each distinct stale path once. Paths in keep (clean
// form) are left alone.
func (e *Executor) cleanup(src string, stale []string, keep map[string]bool) ([]string, []error) {
	var (
		deleted []string
		errs    []error
	)
	done := make(map[string]bool, len(stale))
	for _, p := range stale {
		c := filepath.Clean(p)
		if done[c] || keep[c] {
			continue
		}
		done[c] = true
		if err := e.remove(p); err != nil {
			errs = append(errs, &CleanupError{Source: src, Path: p, Err: err})
			continue
		}
		deleted = append(deleted, p)
		log.Debug().Str("source", src).Str("path", p).Msg("stale output deleted")
	}
	return deleted, errs
}
