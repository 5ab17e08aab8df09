package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/rs/zerolog/log"
)

func TestInitWritesJSONToFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Init(Options{Level: "debug", File: file, MaxSizeMB: 1, Console: &console}); err != nil {
		t.Fatal(err)
	}
	defer Close()

	log.Info().Str("job_id", "j1").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &line); err != nil {
		t.Fatalf("console line is not JSON: %q", console.String())
	}
	if line["message"] != "hello" || line["service"] != serviceName || line["job_id"] != "j1" {
		t.Errorf("line = %v", line)
	}
	data, err := os.ReadFile(file)
	if err != nil || !bytes.Contains(data, []byte(`"hello"`)) {
		t.Errorf("file log = %q, err = %v", data, err)
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	if err := Init(Options{Level: "loud", Console: &console}); err != nil {
		t.Fatal(err)
	}
	log.Debug().Msg("hidden")
	if console.Len() != 0 {
		t.Errorf("debug line leaked at info level: %q", console.String())
	}
}

func TestToEvent(t *testing.T) {
	if ev := toEvent([]byte(`{"level":"debug","message":"x"}`)); ev != nil {
		t.Errorf("debug event forwarded: %v", ev)
	}
	ev := toEvent([]byte(`{"level":"warn","message":"x"}`))
	if ev == nil || ev["service"] != serviceName {
		t.Errorf("warn event = %v", ev)
	}
	if ev := toEvent([]byte("not json")); ev == nil || ev["message"] != "not json" {
		t.Errorf("raw event = %v", ev)
	}
}

func TestAxiomShipperQueue(t *testing.T) {
	s := &axiomShipper{queue: make(chan axiom.Event, 1)}
	lines := []string{
		`{"level":"debug","message":"noise"}`,
		`{"level":"info","message":"first"}`,
		`{"level":"error","message":"dropped, queue full"}`,
	}
	for _, l := range lines {
		if n, err := s.Write([]byte(l)); n != len(l) || err != nil {
			t.Fatalf("Write(%s) = %d, %v", l, n, err)
		}
	}
	if len(s.queue) != 1 {
		t.Fatalf("queued = %d", len(s.queue))
	}
	if ev := <-s.queue; ev["message"] != "first" {
		t.Errorf("queued event = %v", ev)
	}
}
