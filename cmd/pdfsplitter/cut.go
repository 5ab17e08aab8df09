package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/local/pdfsplitter/internal/orchestrator"
	"github.com/local/pdfsplitter/internal/split"
)

var cutCmd = &cobra.Command{
	Use:   "cut <request.json|request.yaml|->",
	Short: "Apply caller supplied cuts",
	Long: `Write the page ranges named in a cut request, then delete the older
split files it lists. The request holds either "groups" or a flat
"final_paths" list, the same body POST /cut_pdf accepts.

Examples:
  pdfsplitter cut recut.json
  pdfsplitter cut recut.yaml
  cat recut.json | pdfsplitter cut -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readCutRequest(args[0], cmd.InOrStdin())
		if err != nil {
			return finish(cmd, orchestrator.Job{}, err)
		}
		groups, err := req.ToGroups()
		if err != nil {
			return finish(cmd, orchestrator.Job{}, err)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.orch.CutPDF(cmd.Context(), groups)
		return finish(cmd, job, err)
	},
}

// readCutRequest decodes JSON, or YAML when the file name says so.
func readCutRequest(name string, stdin io.Reader) (orchestrator.CutRequest, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return orchestrator.CutRequest{}, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var req orchestrator.CutRequest
		if err := yaml.Unmarshal(b, &req); err != nil {
			return req, fmt.Errorf("%w: %v", split.ErrMalformedRequest, err)
		}
		return req, nil
	default:
		return orchestrator.DecodeCutRequest(b)
	}
}

func init() {
	addReportFlags(cutCmd)
	rootCmd.AddCommand(cutCmd)
}
