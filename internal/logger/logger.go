package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/pdfsplitter/internal/config"
)

const serviceName = "pdfsplitter"

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomFlush   time.Duration

	// Console overrides stdout; tests and the CLI pass stderr here.
	Console io.Writer
}

// OptionsFrom maps the logging and Axiom config sections.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send,
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	}
}

var (
	global  zerolog.Logger
	shipper *axiomShipper
)

// Init replaces the global zerolog logger. Every line goes to the console
// and, when File is set, to a rotated file; info and above are also shipped
// to Axiom when enabled.
func Init(opts Options) error {
	var writers []io.Writer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}
	writers = append(writers, consoleWriter(opts))

	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		s, err := newAxiomShipper(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			shipper = s
			writers = append(writers, s)
		}
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).
		With().Timestamp().Str("service", serviceName).Logger()
	log.Logger = global
	return nil
}

func consoleWriter(opts Options) io.Writer {
	out := opts.Console
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// Close ships whatever Axiom events are still buffered.
func Close() {
	if shipper != nil {
		shipper.Close()
		shipper = nil
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }

// toEvent converts one JSON log line into an Axiom event; nil means drop.
func toEvent(p []byte) axiom.Event {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	if lvl, _ := ev["level"].(string); lvl == "debug" || lvl == "trace" {
		return nil
	}
	ev["service"] = serviceName
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	return axiom.Event(ev)
}

const axiomBatch = 200

// axiomShipper is an io.Writer that queues log lines and ingests them in
// batches from one goroutine. Lines are dropped while the queue is full.
type axiomShipper struct {
	client  *axiom.Client
	dataset string
	queue   chan axiom.Event
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func newAxiomShipper(opts Options) (*axiomShipper, error) {
	clientOpts := []axiom.Option{axiom.SetToken(opts.AxiomAPIKey)}
	if opts.AxiomOrgID != "" {
		clientOpts = append(clientOpts, axiom.SetOrganizationID(opts.AxiomOrgID))
	}
	c, err := axiom.NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}
	dataset := opts.AxiomDataset
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	every := opts.AxiomFlush
	if every <= 0 {
		every = 10 * time.Second
	}
	s := &axiomShipper{
		client:  c,
		dataset: dataset,
		queue:   make(chan axiom.Event, 1000),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(every)
	return s, nil
}

func (s *axiomShipper) Write(p []byte) (int, error) {
	if ev := toEvent(p); ev != nil {
		select {
		case s.queue <- ev:
		default:
		}
	}
	return len(p), nil
}

func (s *axiomShipper) run(every time.Duration) {
	defer s.wg.Done()
	tick := time.NewTicker(every)
	defer tick.Stop()

	batch := make([]axiom.Event, 0, axiomBatch)
	ship := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if _, err := s.client.IngestEvents(ctx, s.dataset, batch); err != nil {
			fmt.Fprintf(os.Stderr, "axiom ingest: %v\n", err)
		}
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case ev := <-s.queue:
			if batch = append(batch, ev); len(batch) >= axiomBatch {
				ship()
			}
		case <-tick.C:
			ship()
		case <-s.done:
			for n := len(s.queue); n > 0; n-- {
				batch = append(batch, <-s.queue)
			}
			ship()
			return
		}
	}
}

func (s *axiomShipper) Close() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
