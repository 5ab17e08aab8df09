package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/local/pdfsplitter/internal/split"
)

// ReportTimestampLayout names report files file_{timestamp}.json.
const ReportTimestampLayout = "20060102_150405"

// Report is the success body of /process and /cut_pdf and the content of
// report files.
type Report struct {
	Status     string `json:"status"`
	StatusCode string `json:"status_code"`
	JobID      string `json:"job_id,omitempty"`
	split.JobResult
}

// ErrorReport is written when a job could not run at all.
type ErrorReport struct {
	Status     string `json:"status"`
	StatusCode string `json:"status_code"`
	Error      string `json:"error"`
}

func NewReport(job Job) Report {
	return Report{Status: "success", StatusCode: "200", JobID: job.ID, JobResult: job.Result}
}

func NewErrorReport(code int, err error) ErrorReport {
	return ErrorReport{Status: "error", StatusCode: fmt.Sprint(code), Error: err.Error()}
}

// ReportTimestamp formats t for report file names, in UTC.
func ReportTimestamp(t time.Time) string { return t.UTC().Format(ReportTimestampLayout) }

// WriteReport writes v as indented JSON to dir/file_{timestamp}.json. The
// file appears complete or not at all.
func WriteReport(dir, timestamp string, v any) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	p := filepath.Join(dir, fmt.Sprintf("file_%s.json", timestamp))
	err := split.WriteFileAtomic(p, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		return "", fmt.Errorf("write report %s: %w", p, err)
	}
	return p, nil
}
