package split

// Kind is the detected kind of a source file.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// SourceDocument is a file taking part in a job. It is read, never written.
type SourceDocument struct {
	Path        string
	TotalPages  int
	ContentHash string
	Kind        Kind
}

// PageRange is a 1-indexed inclusive page range.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) Pages() int { return r.End - r.Start + 1 }

// Origin tells how the segments of a plan were produced.
type Origin string

const (
	OriginAI       Origin = "ai"
	OriginExplicit Origin = "explicit"
)

// Segment is one planned page range destined to become one output file.
type Segment struct {
	PageRange
	Label      string
	Confidence float64
	Modify     bool
	// Target is the final output path, filled by the planner.
	Target string
}

// SplitPlan is the ordered set of segments for one source plus the stale
// outputs to delete once at least one segment has been written.
type SplitPlan struct {
	Source       SourceDocument
	Origin       Origin
	Segments     []Segment
	StaleOutputs []string
	// Rejected holds planning errors for cuts that never became segments.
	Rejected []error
}

// PageLabel is one classifier entry: a set of pages belonging to one
// logical document.
type PageLabel struct {
	Pages             []int
	SuggestedFilename string
	DocumentType      string
	Confidence        float64
}

// Usage carries token counters reported by the classifier.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// Classification is the classifier's answer for one source document.
type Classification struct {
	Labels []PageLabel
	Usage  Usage
}

// Cut is a caller supplied explicit page range.
type Cut struct {
	Start   int
	End     int
	PDFName string
	Modify  bool
}

// Group is one unit of work in a batch: a source file and, in explicit
// mode, the cuts to apply and the outputs they replace.
type Group struct {
	SourcePath   string
	Explicit     bool
	Cuts         []Cut
	StaleOutputs []string
}

// OutputFile is one entry of the job report.
type OutputFile struct {
	Path             string `json:"path"`
	OriginalFilePath string `json:"original_file_path,omitempty"`
	IsMultipage      bool   `json:"is_multipage"`
	StartPage        int    `json:"start_page,omitempty"`
	EndPage          int    `json:"end_page,omitempty"`
}

// JobResult is the ordered outcome of a batch.
type JobResult struct {
	OutputFiles []OutputFile `json:"output_files"`
	Usage
	Errors []string `json:"errors"`
	// Deleted lists stale outputs removed during the job.
	Deleted []string `json:"-"`
}

func newJobResult() JobResult {
	return JobResult{OutputFiles: []OutputFile{}, Errors: []string{}}
}

func (r *JobResult) addError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// ExecResult is what the executor produced for one plan.
type ExecResult struct {
	Outputs []OutputFile
	Errors  []error
	// Deleted lists stale outputs removed by cleanup.
	Deleted []string
}

func (e ExecResult) Succeeded() int { return len(e.Outputs) }
