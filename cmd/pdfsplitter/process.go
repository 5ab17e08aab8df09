package main

import (
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <folder>",
	Short: "Classify and split every PDF in a folder",
	Long: `Classify the pages of every PDF in a folder and split each one into
its logical documents. Single-page PDFs and non-PDF files are reported
unchanged.

Examples:
  pdfsplitter process ./inbox
  pdfsplitter process ./inbox -o json --timestamp 20240501_120405`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.orch.ProcessFolder(cmd.Context(), args[0])
		return finish(cmd, job, err)
	},
}

func init() {
	addReportFlags(processCmd)
	rootCmd.AddCommand(processCmd)
}
