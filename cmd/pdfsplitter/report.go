package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/orchestrator"
)

var (
	reportDir       string
	reportTimestamp string
)

// addReportFlags registers the flags shared by commands that produce a report.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "folder for file_{timestamp}.json (default $REPORT_DIR)")
	cmd.Flags().StringVar(&reportTimestamp, "timestamp", "", "report timestamp (default now, UTC, 20060102_150405)")
}

// finish prints the outcome of a job, stores it as a report file and
// returns the job error so the exit code reflects it.
func finish(cmd *cobra.Command, job orchestrator.Job, jobErr error) error {
	var v any
	if jobErr != nil {
		code := http.StatusInternalServerError
		if orchestrator.IsBadRequest(jobErr) {
			code = http.StatusBadRequest
		}
		v = orchestrator.NewErrorReport(code, jobErr)
	} else {
		v = orchestrator.NewReport(job)
	}

	dir := reportDir
	if dir == "" {
		dir = cfg.Server.ReportDir
	}
	if dir != "" {
		ts := reportTimestamp
		if ts == "" {
			ts = orchestrator.ReportTimestamp(time.Now())
		}
		path, err := orchestrator.WriteReport(dir, ts, v)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("write report failed")
		} else {
			log.Info().Str("report", path).Msg("report written")
		}
	}

	if err := outputTo(cmd.OutOrStdout(), outputFormat, v); err != nil {
		return err
	}
	return jobErr
}
