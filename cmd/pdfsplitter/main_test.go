package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/local/pdfsplitter/internal/ai"
	"github.com/local/pdfsplitter/internal/config"
	"github.com/local/pdfsplitter/internal/pdftest"
)

// execute runs the root command with a clean environment and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "test.log"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("S3_MIRROR_ENABLED", "false")

	reportDir, reportTimestamp, outputFormat = "", "", "yaml"
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOutputTo(t *testing.T) {
	data := struct {
		JobID string `json:"job_id"`
		Pages []int  `json:"pages"`
	}{"j1", []int{1, 2}}

	var js bytes.Buffer
	if err := outputTo(&js, "json", data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), "\n  \"job_id\": \"j1\"") {
		t.Errorf("json = %q", js.String())
	}

	var ym bytes.Buffer
	if err := outputTo(&ym, "yaml", data); err != nil {
		t.Fatal(err)
	}
	if got, want := ym.String(), "job_id: j1\npages:\n  - 1\n  - 2\n"; got != want {
		t.Errorf("yaml = %q, want %q", got, want)
	}

	if err := outputTo(&ym, "xml", data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestClassifierEngines(t *testing.T) {
	c := config.ClassifierConfig{
		PrimaryEngine:   "anthropic",
		SecondaryEngine: "openai",
		OpenAIKey:       "sk",
		OpenAIModel:     "gpt",
		AnthropicModel:  "claude",
	}
	engines := classifierEngines(c)
	if len(engines) != 1 || engines[0].Model != "gpt" {
		t.Fatalf("engines = %+v", engines)
	}

	c.AnthropicKey = "ak"
	engines = classifierEngines(c)
	if len(engines) != 2 || engines[0].Model != "claude" {
		t.Fatalf("engines = %+v", engines)
	}
	if _, ok := engines[0].Client.(*ai.AnthropicClient); !ok {
		t.Errorf("primary client = %T", engines[0].Client)
	}

	if got := classifierEngines(config.ClassifierConfig{PrimaryEngine: "gemini"}); len(got) != 0 {
		t.Errorf("unknown engine produced %+v", got)
	}
}

func TestReadCutRequest(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "recut.yaml")
	body := "groups:\n  - original_file_path: /in/a.pdf\n    cuts:\n      - {start_page: 1, end_page: \"2\", pdf_name: intro, is_modify: \"true\"}\n"
	if err := os.WriteFile(yml, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	req, err := readCutRequest(yml, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Groups) != 1 || len(req.Groups[0].Cuts) != 1 || !bool(req.Groups[0].Cuts[0].IsModify) {
		t.Fatalf("req = %+v", req)
	}

	stdin := strings.NewReader(`{"final_paths":[{"original_file_path":"/in/a.pdf","start_page":1,"end_page":1}]}`)
	req, err = readCutRequest("-", stdin)
	if err != nil || len(req.FinalPaths) != 1 {
		t.Fatalf("stdin req = %+v, err = %v", req, err)
	}

	if _, err := readCutRequest(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProcessCommand(t *testing.T) {
	dir := t.TempDir()
	single := pdftest.Write(t, dir, "single.pdf", 1)
	reports := t.TempDir()

	out, err := execute(t, "process", dir, "-o", "json", "--report-dir", reports, "--timestamp", "20240501_120405")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var rep struct {
		Status      string `json:"status"`
		OutputFiles []struct {
			Path string `json:"path"`
		} `json:"output_files"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("stdout is not JSON: %q", out)
	}
	if rep.Status != "success" || len(rep.OutputFiles) != 1 || rep.OutputFiles[0].Path != single || len(rep.Errors) != 0 {
		t.Errorf("report = %+v", rep)
	}
	if _, err := os.Stat(filepath.Join(reports, "file_20240501_120405.json")); err != nil {
		t.Errorf("report file: %v", err)
	}
}

func TestProcessCommandMissingFolder(t *testing.T) {
	reports := t.TempDir()
	out, err := execute(t, "process", filepath.Join(t.TempDir(), "nope"), "--report-dir", reports, "--timestamp", "20240501_000000")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "status_code: \"400\"") || !strings.Contains(out, "Folder path does not exist") {
		t.Errorf("stdout = %q", out)
	}
	if _, err := os.Stat(filepath.Join(reports, "file_20240501_000000.json")); err != nil {
		t.Errorf("error report file: %v", err)
	}
}

func TestCutCommand(t *testing.T) {
	dir := t.TempDir()
	src := pdftest.Write(t, dir, "packet.pdf", 6)
	stale := pdftest.Write(t, dir, "packet_old_1_6.pdf", 6)
	req := map[string]any{"groups": []map[string]any{{
		"original_file_path": src,
		"old_file_paths":     []string{stale},
		"cuts": []map[string]any{
			{"start_page": 1, "end_page": 2, "pdf_name": "intro"},
			{"start_page": "3", "end_page": "6", "pdf_name": "body", "is_modify": "true"},
		},
	}}}
	b, _ := json.Marshal(req)
	reqPath := filepath.Join(t.TempDir(), "recut.json")
	if err := os.WriteFile(reqPath, b, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "cut", reqPath, "--report-dir", t.TempDir()); err != nil {
		t.Fatalf("cut: %v", err)
	}
	for _, name := range []string{"packet_intro_1_2.pdf", "packet_body_3_6.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale output still present: %v", err)
	}
}

func TestCutCommandMalformed(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(reqPath, []byte(`{"groups":[{"original_file_path":"/x.pdf","cuts":[{"end_page":2}]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "cut", reqPath, "--report-dir", t.TempDir())
	if err == nil || !strings.Contains(out, "status: error") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "pdfsplitter dev\n") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}
