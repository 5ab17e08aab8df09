package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/local/pdfsplitter/internal/split"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		f.deletes = append(f.deletes, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func newTestMirror(t *testing.T, h http.Handler) *Mirror {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("key", "secret", ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
	return NewMirrorFromClient(client, "bucket", "/splits/")
}

func TestMirrorKey(t *testing.T) {
	m := NewMirrorFromClient(nil, "b", "splits")
	cases := map[string]string{
		"/data/in/doc_form_2-5.pdf": "splits/in/doc_form_2-5.pdf",
		"doc.pdf":                   "splits/doc.pdf",
		"/doc.pdf":                  "splits/doc.pdf",
		"/data/in/../out/a.pdf":     "splits/out/a.pdf",
	}
	for in, want := range cases {
		if got := m.Key(in); got != want {
			t.Errorf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMirrorSync(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	m := newTestMirror(t, fake)

	dir := filepath.Join(t.TempDir(), "batch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	seg := filepath.Join(dir, "doc_form_2-5.pdf")
	if err := os.WriteFile(seg, []byte("%PDF-segment"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := split.JobResult{
		OutputFiles: []split.OutputFile{
			{Path: filepath.Join(dir, "single.pdf"), OriginalFilePath: filepath.Join(dir, "single.pdf")},
			{Path: seg, OriginalFilePath: filepath.Join(dir, "doc.pdf"), IsMultipage: true, StartPage: 2, EndPage: 5},
		},
		Deleted: []string{filepath.Join(dir, "doc_old_1_3.pdf")},
	}
	if err := m.Sync(context.Background(), res); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var keys []string
	for k := range fake.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) != 1 || keys[0] != "/bucket/splits/batch/doc_form_2-5.pdf" {
		t.Fatalf("uploaded = %v", keys)
	}
	if len(fake.deletes) != 1 || fake.deletes[0] != "/bucket/splits/batch/doc_old_1_3.pdf" {
		t.Errorf("deletes = %v", fake.deletes)
	}
}

func TestMirrorSyncCollectsErrors(t *testing.T) {
	m := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	res := split.JobResult{
		OutputFiles: []split.OutputFile{{Path: filepath.Join(t.TempDir(), "missing.pdf"), StartPage: 1, EndPage: 1}},
		Deleted:     []string{"/x/old.pdf"},
	}
	err := m.Sync(context.Background(), res)
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := err.Error(); !strings.Contains(msg, "missing.pdf") || !strings.Contains(msg, "old.pdf") {
		t.Errorf("err = %v", err)
	}
}
