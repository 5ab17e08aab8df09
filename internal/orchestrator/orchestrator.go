package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/metrics"
	"github.com/local/pdfsplitter/internal/split"
	"github.com/local/pdfsplitter/internal/statuscheck"
	"github.com/local/pdfsplitter/internal/store"
)

type Status struct {
	Status   string
	Progress int
	Message  string
	Start    *time.Time
	End      *time.Time
	Metadata map[string]any
	Result   json.RawMessage
}

type StatusStore interface {
	Set(ctx context.Context, jobID string, st Status) error
	Get(ctx context.Context, jobID string) (Status, bool, error)
}

// Runner executes split groups. *split.Coordinator satisfies it.
type Runner interface {
	Run(ctx context.Context, groups []split.Group) (split.JobResult, error)
}

// UsageRecorder persists the token bill of a job.
type UsageRecorder interface {
	Record(ctx context.Context, rec store.UsageRecord) error
}

// Mirror copies a finished job's files somewhere else.
type Mirror interface {
	Sync(ctx context.Context, res split.JobResult) error
}

// ReadinessChecker reports the state of external dependencies.
type ReadinessChecker interface {
	Summary(ctx context.Context) statuscheck.Summary
}

// Dependencies wires the orchestrator. Usage, Mirror and Ready are optional.
type Dependencies struct {
	Runner     Runner
	Status     StatusStore
	Usage      UsageRecorder
	Mirror     Mirror
	Ready      ReadinessChecker
	ReportDir  string
	TempMaxAge time.Duration
}

type Orchestrator struct {
	deps Dependencies
	now  func() time.Time
}

func New(deps Dependencies) *Orchestrator {
	if deps.Status == nil {
		deps.Status = NewStatusAdapter(store.NewMemoryStatus())
	}
	return &Orchestrator{deps: deps, now: time.Now}
}

// Job modes.
const (
	ModeFolder = "folder"
	ModeCut    = "cut"
	ModeWatch  = "watch"
)

// Job is a finished request.
type Job struct {
	ID     string
	Mode   string
	Result split.JobResult
}

// BadRequestError marks caller mistakes that are reported before any work.
type BadRequestError struct{ Msg string }

func (e *BadRequestError) Error() string { return e.Msg }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err should be answered with 400.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br) || errors.Is(err, split.ErrMalformedRequest)
}

// ProcessFolder splits every multi-page PDF of folder by classifier
// boundaries. Other files are reported as they are.
func (o *Orchestrator) ProcessFolder(ctx context.Context, folder string) (Job, error) {
	if folder == "" {
		return Job{}, badRequest("folder_path is required in request body")
	}
	fi, err := os.Stat(folder)
	if err != nil {
		return Job{}, badRequest("Folder path does not exist: %s", folder)
	}
	if !fi.IsDir() {
		return Job{}, badRequest("Path is not a directory: %s", folder)
	}
	if n := SweepTemps(folder, o.deps.TempMaxAge); n > 0 {
		log.Info().Str("folder", folder).Int("removed", n).Msg("removed stale temp files")
	}
	groups, err := ScanFolder(folder)
	if err != nil {
		return Job{}, fmt.Errorf("scan %s: %w", folder, err)
	}
	return o.run(ctx, ModeFolder, groups, map[string]any{"folder_path": folder, "files": len(groups)})
}

// ProcessFiles runs the classifier flow on individual files, in order.
func (o *Orchestrator) ProcessFiles(ctx context.Context, paths []string) (Job, error) {
	groups := make([]split.Group, 0, len(paths))
	for _, p := range paths {
		groups = append(groups, split.Group{SourcePath: p})
	}
	return o.run(ctx, ModeWatch, groups, map[string]any{"files": len(paths)})
}

// CutPDF applies caller supplied cuts.
func (o *Orchestrator) CutPDF(ctx context.Context, groups []split.Group) (Job, error) {
	if err := split.ValidateGroups(groups); err != nil {
		return Job{}, err
	}
	for _, g := range groups {
		if g.Explicit {
			if n := SweepTemps(dirOf(g.SourcePath), o.deps.TempMaxAge); n > 0 {
				log.Info().Str("source", g.SourcePath).Int("removed", n).Msg("removed stale temp files")
			}
		}
	}
	return o.run(ctx, ModeCut, groups, map[string]any{"groups": len(groups)})
}

func (o *Orchestrator) run(ctx context.Context, mode string, groups []split.Group, meta map[string]any) (Job, error) {
	jobID := uuid.NewString()
	ctx = WithJobID(ctx, jobID)
	start := o.now()
	meta["mode"] = mode
	log.Info().Str("job_id", jobID).Str("mode", mode).Int("groups", len(groups)).Msg("job created")
	o.setStatus(ctx, jobID, Status{Status: store.StatusProcessing, Progress: 0, Message: "processing", Start: &start, Metadata: meta})

	var (
		res split.JobResult
		err error
	)
	if len(groups) == 0 {
		res = split.JobResult{OutputFiles: []split.OutputFile{}, Errors: []string{}}
	} else {
		res, err = o.deps.Runner.Run(ctx, groups)
	}
	end := o.now()
	if err != nil {
		metrics.ObserveJob(mode, store.StatusFailed, end.Sub(start))
		o.setStatus(ctx, jobID, Status{Status: store.StatusFailed, Progress: 100, Message: err.Error(), Start: &start, End: &end, Metadata: meta})
		return Job{ID: jobID, Mode: mode}, err
	}

	metrics.AddTokens(res.InputTokens, res.OutputTokens)
	if o.deps.Usage != nil && (mode != ModeCut || res.TotalTokens > 0) {
		rec := store.UsageRecord{JobID: jobID, Mode: mode, Files: len(groups), At: end.UTC(), Usage: res.Usage}
		if err := o.deps.Usage.Record(ctx, rec); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("failed to record token usage")
		}
	}
	if o.deps.Mirror != nil {
		if err := o.deps.Mirror.Sync(ctx, res); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("mirror sync incomplete")
			meta["mirror_error"] = err.Error()
		}
	}

	meta["output_files"] = len(res.OutputFiles)
	meta["errors"] = len(res.Errors)
	b, _ := json.Marshal(res)
	o.setStatus(ctx, jobID, Status{Status: store.StatusSuccess, Progress: 100, Message: "completed",
		Start: &start, End: &end, Metadata: meta, Result: b})
	metrics.ObserveJob(mode, store.StatusSuccess, end.Sub(start))
	log.Info().Str("job_id", jobID).Str("mode", mode).Int("output_files", len(res.OutputFiles)).
		Int("errors", len(res.Errors)).Int64("total_tokens", res.TotalTokens).
		Dur("duration", end.Sub(start)).Msg("job finished")
	return Job{ID: jobID, Mode: mode, Result: res}, nil
}

// setStatus stores st. Failures are logged, never returned.
func (o *Orchestrator) setStatus(ctx context.Context, jobID string, st Status) {
	if err := o.deps.Status.Set(ctx, jobID, st); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Str("status", st.Status).Msg("failed to store job status")
	}
}

type ctxKey struct{}

// WithJobID tags ctx with the job id used in classifier logs.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func JobIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
