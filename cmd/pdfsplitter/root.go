package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/config"
	"github.com/local/pdfsplitter/internal/logger"
)

var (
	envFile      string
	outputFormat string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdfsplitter",
	Short: "Split multi-document PDF packets into one file per document",
	Long: `pdfsplitter turns scanned PDF packets into one file per logical document.

Two ways to decide where documents start and end:
  - process: a vision classifier labels every page of each PDF in a folder
  - cut:     the caller supplies page ranges and names, replacing older splits

Files are written next to their source, atomically, and a JSON report
describes every produced or unchanged file.`,
	Version:       Version,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "dotenv file read before the environment",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Config and logging are set up before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if outputFormat != "json" && outputFormat != "yaml" {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
		if envFile != "" {
			cfg = config.Load(envFile)
		} else {
			cfg = config.FromEnv()
		}
		opts := logger.OptionsFrom(cfg)
		// stdout carries command output; logs go to stderr
		opts.Console = os.Stderr
		return logger.Init(opts)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		logger.Close()
	}

	rootCmd.AddCommand(versionCmd)
}
