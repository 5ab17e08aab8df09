package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/orchestrator"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <folder>",
	Short: "Split PDFs as they arrive in a folder",
	Long: `Watch a folder and run the classifier flow on every file that lands
in it. Files are batched until the folder has been quiet for the
debounce period. Split outputs written by the watcher are not picked
up again. A report is written per batch.

Examples:
  pdfsplitter watch ./inbox
  pdfsplitter watch ./inbox --debounce 5s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		fi, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if n := orchestrator.SweepTemps(dir, cfg.Split.TempMaxAge); n > 0 {
			log.Info().Int("removed", n).Str("folder", dir).Msg("stale temp files removed")
		}

		w := orchestrator.NewWatcher(a.orch, watchDebounce)
		return w.Run(cmd.Context(), dir, func(job orchestrator.Job) {
			// Each batch gets its own report file
			reportTimestamp = ""
			if err := finish(cmd, job, nil); err != nil {
				log.Error().Err(err).Str("job_id", job.ID).Msg("report output failed")
			}
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a batch is processed")
	watchCmd.Flags().StringVar(&reportDir, "report-dir", "", "folder for file_{timestamp}.json (default $REPORT_DIR)")
	rootCmd.AddCommand(watchCmd)
}
