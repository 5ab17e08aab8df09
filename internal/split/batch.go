package split

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/metrics"
)

// Inspector loads the SourceDocument for a path.
type Inspector interface {
	Inspect(path string) (SourceDocument, error)
}

// Classifier labels the pages of a multi-page PDF. It is called at most
// once per source document per job.
type Classifier interface {
	Classify(ctx context.Context, src SourceDocument) (Classification, error)
}

var (
	errEmptyPDF     = errors.New("could not read PDF or empty PDF")
	errNotPDF       = errors.New("not a PDF")
	errNoClassifier = errors.New("no classifier configured")
)

// Coordinator runs groups through planning and execution in request order.
type Coordinator struct {
	inspector  Inspector
	classifier Classifier
	executor   *Executor
}

// NewCoordinator wires a coordinator. classifier may be nil when only
// explicit groups are run.
func NewCoordinator(inspector Inspector, classifier Classifier, executor *Executor) *Coordinator {
	return &Coordinator{inspector: inspector, classifier: classifier, executor: executor}
}

// ValidateGroups rejects structurally malformed input.
func ValidateGroups(groups []Group) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: no groups", ErrMalformedRequest)
	}
	for i, g := range groups {
		if g.SourcePath == "" {
			return fmt.Errorf("%w: group %d has no source path", ErrMalformedRequest, i+1)
		}
		if g.Explicit && len(g.Cuts) == 0 {
			return fmt.Errorf("%w: group %d (%s) has no cuts", ErrMalformedRequest, i+1, g.SourcePath)
		}
	}
	return nil
}

// Run processes groups in order. Failures are recorded in the result and
// never stop later groups; the only returned error is ErrMalformedRequest.
func (c *Coordinator) Run(ctx context.Context, groups []Group) (JobResult, error) {
	if err := ValidateGroups(groups); err != nil {
		return JobResult{}, err
	}
	res := newJobResult()
	// Errors are kept per group so deferred cleanup failures land in the
	// slot of the group that owns them.
	errs := make([][]error, len(groups))
	produced := map[string]bool{}
	type deferredPlan struct {
		group int
		plan  SplitPlan
	}
	var deferred []deferredPlan
	for i, g := range groups {
		var (
			plan SplitPlan
			ok   bool
		)
		if g.Explicit {
			plan, ok = c.planExplicit(g, &errs[i])
		} else {
			plan, ok = c.planAI(ctx, g, &res, &errs[i])
		}
		if !ok {
			continue
		}
		if plan.Origin == OriginExplicit && len(plan.Segments) == 0 {
			errs[i] = append(errs[i], plan.Rejected...)
			if len(plan.StaleOutputs) > 0 {
				deferred = append(deferred, deferredPlan{group: i, plan: plan})
			}
			continue
		}
		er := c.executor.Execute(plan, produced)
		for _, o := range er.Outputs {
			produced[filepath.Clean(o.Path)] = true
		}
		res.OutputFiles = append(res.OutputFiles, er.Outputs...)
		errs[i] = append(errs[i], er.Errors...)
		metrics.ObserveSegments(string(plan.Origin), len(er.Outputs))
		metrics.ObserveDeleted(len(er.Deleted))
		res.Deleted = append(res.Deleted, er.Deleted...)
		log.Info().Str("source", plan.Source.Path).Str("origin", string(plan.Origin)).
			Int("segments", len(plan.Segments)).Int("written", len(er.Outputs)).
			Int("deleted", len(er.Deleted)).Int("errors", len(er.Errors)).Msg("group done")
	}
	// Plans whose cuts were all invalid still own stale outputs; they are
	// cleaned when the request as a whole wrote something, sparing every
	// file the request produced.
	if len(produced) > 0 {
		for _, d := range deferred {
			er := c.executor.Cleanup(d.plan, produced)
			errs[d.group] = append(errs[d.group], er.Errors...)
			metrics.ObserveDeleted(len(er.Deleted))
			res.Deleted = append(res.Deleted, er.Deleted...)
		}
	}
	// A stale path rewritten later in the request is an output, not a deletion.
	kept := res.Deleted[:0]
	for _, p := range res.Deleted {
		if !produced[filepath.Clean(p)] {
			kept = append(kept, p)
		}
	}
	res.Deleted = kept
	for _, ge := range errs {
		c.record(&res, ge...)
	}
	return res, nil
}

func (c *Coordinator) planAI(ctx context.Context, g Group, res *JobResult, errs *[]error) (SplitPlan, bool) {
	src, err := c.inspector.Inspect(g.SourcePath)
	if err != nil {
		*errs = append(*errs, &SourceError{Source: g.SourcePath, Err: err})
		return SplitPlan{}, false
	}
	if src.Kind != KindPDF || src.TotalPages == 1 {
		res.OutputFiles = append(res.OutputFiles, passThrough(src.Path))
		metrics.IncPassThrough(string(src.Kind))
		return SplitPlan{}, false
	}
	if src.TotalPages < 1 {
		*errs = append(*errs, &SourceError{Source: src.Path, Err: errEmptyPDF})
		return SplitPlan{}, false
	}
	if c.classifier == nil {
		*errs = append(*errs, &SourceError{Source: src.Path, Err: errNoClassifier})
		return SplitPlan{}, false
	}

	cls, err := c.classifier.Classify(ctx, src)
	res.Usage.Add(cls.Usage)
	switch {
	case errors.Is(err, ErrMalformedClassification):
		*errs = append(*errs, &BoundaryInconsistencyError{Source: src.Path, Reason: err.Error()})
		return SplitPlan{}, false
	case err != nil:
		*errs = append(*errs, &SourceError{Source: src.Path, Err: fmt.Errorf("classify: %w", err)})
		return SplitPlan{}, false
	}
	spans, err := Normalize(src.Path, cls.Labels, src.TotalPages)
	if err != nil {
		*errs = append(*errs, err)
		return SplitPlan{}, false
	}
	return PlanAI(src, spans), true
}

func (c *Coordinator) planExplicit(g Group, errs *[]error) (SplitPlan, bool) {
	src, err := c.inspector.Inspect(g.SourcePath)
	switch {
	case err != nil:
		*errs = append(*errs, &SourceError{Source: g.SourcePath, Err: err})
		return SplitPlan{}, false
	case src.Kind != KindPDF:
		*errs = append(*errs, &SourceError{Source: src.Path, Err: errNotPDF})
		return SplitPlan{}, false
	case src.TotalPages < 1:
		*errs = append(*errs, &SourceError{Source: src.Path, Err: errEmptyPDF})
		return SplitPlan{}, false
	}
	return PlanExplicit(src, g), true
}

func (c *Coordinator) record(res *JobResult, errs ...error) {
	for _, err := range errs {
		res.addError(err)
		metrics.IncError(ErrorKind(err))
	}
}

func passThrough(path string) OutputFile {
	return OutputFile{Path: path, OriginalFilePath: path, IsMultipage: false}
}
