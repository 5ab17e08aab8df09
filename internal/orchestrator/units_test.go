package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/local/pdfsplitter/internal/ai"
	"github.com/local/pdfsplitter/internal/pdf"
	"github.com/local/pdfsplitter/internal/pdftest"
	"github.com/local/pdfsplitter/internal/split"
)

func TestScanFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.png", ".hidden", ".split-123.tmp", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	groups, err := ScanFolder(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, g := range groups {
		if g.Explicit {
			t.Errorf("%s: folder groups are classifier groups", g.SourcePath)
		}
		names = append(names, filepath.Base(g.SourcePath))
	}
	if want := []string{"a.png", "b.pdf", "c.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if _, err := ScanFolder(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestCutRequestFinalPathsGrouping(t *testing.T) {
	body := `{
	  "final_paths": [
	    {"original_file_path": "/in/a.pdf", "start_page": 1, "end_page": 2, "pdf_name": "x", "is_modify": "TRUE"},
	    {"original_file_path": "/in/b.pdf", "start_page": "3", "end_page": "4"},
	    {"original_file_path": "/in/a.pdf", "start_page": 3, "end_page": 5, "pdf_name": "y", "is_modify": false,
	     "old_file_paths": ["/in/a_y_3_4.pdf"]}
	  ],
	  "old_file_paths": ["/in/a_x_1_1.pdf", "/in/b_section_3_3.pdf"]
	}`
	req, err := DecodeCutRequest([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	groups, err := req.ToGroups()
	if err != nil {
		t.Fatal(err)
	}
	want := []split.Group{
		{SourcePath: "/in/a.pdf", Explicit: true,
			Cuts:         []split.Cut{{Start: 1, End: 2, PDFName: "x", Modify: true}, {Start: 3, End: 5, PDFName: "y"}},
			StaleOutputs: []string{"/in/a_y_3_4.pdf", "/in/a_x_1_1.pdf"}},
		{SourcePath: "/in/b.pdf", Explicit: true,
			Cuts:         []split.Cut{{Start: 3, End: 4, PDFName: "section"}},
			StaleOutputs: []string{"/in/b_section_3_3.pdf"}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("groups =\n%+v\nwant\n%+v", groups, want)
	}
}

func TestCutRequestOwnerPrefersLongestStem(t *testing.T) {
	req := CutRequest{
		FinalPaths: []FinalPath{
			{OriginalFilePath: "/in/doc.pdf", CutSpec: cutSpec(1, 1)},
			{OriginalFilePath: "/in/doc_v2.pdf", CutSpec: cutSpec(1, 1)},
		},
		OldFilePaths: []string{"/in/doc_v2_section_1_2.pdf"},
	}
	groups, err := req.ToGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups[0].StaleOutputs) != 0 || len(groups[1].StaleOutputs) != 1 {
		t.Errorf("stale = %v / %v", groups[0].StaleOutputs, groups[1].StaleOutputs)
	}

	req.OldFilePaths = []string{"/elsewhere/doc_section_1_1.pdf"}
	if _, err := req.ToGroups(); !errors.Is(err, split.ErrMalformedRequest) {
		t.Errorf("foreign old file: err = %v", err)
	}
}

func cutSpec(start, end int) CutSpec {
	s, e := PageNumber(start), PageNumber(end)
	return CutSpec{StartPage: &s, EndPage: &e}
}

func TestCutRequestMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"bad page":      `{"final_paths":[{"original_file_path":"/a.pdf","start_page":"one","end_page":2}]}`,
		"both forms":    `{"groups":[{"original_file_path":"/a.pdf","cuts":[{"start_page":1,"end_page":1}]}],"final_paths":[{"original_file_path":"/a.pdf","start_page":1,"end_page":1}]}`,
		"empty name":    `{"groups":[{"original_file_path":"/a.pdf","cuts":[{"start_page":1,"end_page":1,"pdf_name":" "}]}]}`,
		"stray old":     `{"groups":[{"original_file_path":"/a.pdf","cuts":[{"start_page":1,"end_page":1}]}],"old_file_paths":["/a_x_1_1.pdf"]}`,
		"null end page": `{"groups":[{"original_file_path":"/a.pdf","cuts":[{"start_page":1,"end_page":null}]}]}`,
	}
	for name, body := range cases {
		req, err := DecodeCutRequest([]byte(body))
		if err == nil {
			_, err = req.ToGroups()
		}
		if !errors.Is(err, split.ErrMalformedRequest) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestCutRequestYAML(t *testing.T) {
	src := `
groups:
  - original_file_path: /in/a.pdf
    cuts:
      - {start_page: "2", end_page: 4, pdf_name: labs, is_modify: "true"}
    old_file_paths: [/in/a_labs_2_3.pdf]
`
	var req CutRequest
	if err := yaml.Unmarshal([]byte(src), &req); err != nil {
		t.Fatal(err)
	}
	groups, err := req.ToGroups()
	if err != nil {
		t.Fatal(err)
	}
	want := split.Cut{Start: 2, End: 4, PDFName: "labs", Modify: true}
	if len(groups) != 1 || groups[0].Cuts[0] != want || groups[0].StaleOutputs[0] != "/in/a_labs_2_3.pdf" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestFlagValues(t *testing.T) {
	cases := map[string]bool{`true`: true, `false`: false, `"True"`: true, `"no"`: false, `1`: true, `null`: false}
	for in, want := range cases {
		var f Flag
		if err := json.Unmarshal([]byte(in), &f); err != nil || bool(f) != want {
			t.Errorf("%s: got %v err %v", in, f, err)
		}
	}
}

func TestSweepTemps(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)
	files := map[string]time.Time{
		".split-old.tmp":   old,
		".split-fresh.tmp": time.Now(),
		"keep.pdf":         old,
	}
	for name, mt := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
	}
	sub := filepath.Join(dir, "nested")
	_ = os.Mkdir(sub, 0o755)
	nested := filepath.Join(sub, ".split-deep.tmp")
	_ = os.WriteFile(nested, []byte("x"), 0o644)
	_ = os.Chtimes(nested, old, old)

	if n := SweepTemps(dir, time.Hour); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	for name, gone := range map[string]bool{".split-old.tmp": true, ".split-fresh.tmp": false, "keep.pdf": false} {
		_, err := os.Stat(filepath.Join(dir, name))
		if os.IsNotExist(err) != gone {
			t.Errorf("%s: gone=%v", name, os.IsNotExist(err))
		}
	}
	if _, err := os.Stat(nested); err != nil {
		t.Error("nested temp file should be left alone")
	}
	if SweepTemps(dir, 0) != 0 {
		t.Error("zero max age disables the sweep")
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	ts := ReportTimestamp(time.Date(2024, 5, 1, 13, 4, 5, 0, time.FixedZone("x", 3600)))
	if ts != "20240501_120405" {
		t.Fatalf("timestamp = %s", ts)
	}
	rep := NewReport(Job{ID: "j1", Result: split.JobResult{
		OutputFiles: []split.OutputFile{{Path: "/in/a.png", OriginalFilePath: "/in/a.png"}},
		Usage:       split.Usage{InputTokens: 3, OutputTokens: 1, TotalTokens: 4},
		Errors:      []string{},
	}})
	p, err := WriteReport(dir, ts, rep)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "file_20240501_120405.json" {
		t.Errorf("path = %s", p)
	}
	b, _ := os.ReadFile(p)
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"status", "status_code", "output_files", "input_tokens", "output_tokens", "total_tokens", "errors"} {
		if _, ok := got[key]; !ok {
			t.Errorf("report lacks %s: %s", key, b)
		}
	}
	if _, ok := got["Deleted"]; ok {
		t.Error("deleted list must not leak into the report")
	}

	p, err = WriteReport(dir, "x", NewErrorReport(500, errors.New("boom")))
	if err != nil {
		t.Fatal(err)
	}
	b, _ = os.ReadFile(p)
	if !strings.Contains(string(b), `"status_code": "500"`) || !strings.Contains(string(b), `"error": "boom"`) {
		t.Errorf("error report = %s", b)
	}
}

type stubRenderer struct {
	pages int
	err   error
}

func (s stubRenderer) Render(string) ([]pdf.PageImage, error) {
	out := make([]pdf.PageImage, s.pages)
	for i := range out {
		out[i] = pdf.PageImage{Number: i + 1, PNG: []byte{byte(i)}}
	}
	return out, s.err
}

func TestPageClassifier(t *testing.T) {
	client := &fakeAI{docs: packetDocs()}
	pc := NewPageClassifier(stubRenderer{pages: 6}, client)
	ctx := WithJobID(context.Background(), "job-7")
	cls, err := pc.Classify(ctx, split.SourceDocument{Path: "/in/p.pdf", TotalPages: 6, Kind: split.KindPDF})
	if err != nil {
		t.Fatal(err)
	}
	if len(cls.Labels) != 3 || cls.Labels[1].DocumentType != "Intake Form" || !reflect.DeepEqual(cls.Labels[1].Pages, []int{2, 3, 4, 5}) {
		t.Errorf("labels = %+v", cls.Labels)
	}
	if cls.Usage.TotalTokens != 1620 {
		t.Errorf("usage = %+v", cls.Usage)
	}
	req := client.calls[0]
	if req.JobID != "job-7" || req.Source != "/in/p.pdf" || len(req.Images) != 6 || req.Images[0].MIME != "image/png" || !strings.Contains(req.Prompt, "6") {
		t.Errorf("request = %+v", req)
	}

	client.err = &ai.HTTPError{StatusCode: 500, Provider: "fake"}
	cls, err = pc.Classify(ctx, split.SourceDocument{Path: "/in/p.pdf", TotalPages: 6})
	if err == nil || cls.Usage.InputTokens != 1500 {
		t.Errorf("failed call: usage %+v err %v", cls.Usage, err)
	}

	client.err = fmt.Errorf("fake/m: %w", &ai.ValidationError{Message: "documents is empty"})
	_, err = pc.Classify(ctx, split.SourceDocument{Path: "/in/p.pdf", TotalPages: 6})
	if !errors.Is(err, split.ErrMalformedClassification) {
		t.Errorf("schema failure = %v", err)
	}

	_, err = NewPageClassifier(stubRenderer{err: pdf.ErrTooManyPages}, client).Classify(ctx, split.SourceDocument{Path: "/in/p.pdf"})
	if !errors.Is(err, pdf.ErrTooManyPages) {
		t.Errorf("render error = %v", err)
	}
}

func TestInspector(t *testing.T) {
	dir := t.TempDir()
	p := pdftest.Write(t, dir, "six.pdf", 6)
	doc, err := NewInspector().Inspect(p)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != split.KindPDF || doc.TotalPages != 6 || len(doc.ContentHash) != 64 {
		t.Errorf("doc = %+v", doc)
	}

	broken := filepath.Join(dir, "broken.pdf")
	_ = os.WriteFile(broken, []byte("%PDF-1.7\ngarbage"), 0o644)
	doc, err = NewInspector().Inspect(broken)
	if err != nil || doc.Kind != split.KindPDF || doc.TotalPages != 0 {
		t.Errorf("broken doc = %+v err %v", doc, err)
	}

	if _, err := NewInspector().Inspect(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
