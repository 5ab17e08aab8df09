package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfsplitter/internal/ai"
	"github.com/local/pdfsplitter/internal/config"
	"github.com/local/pdfsplitter/internal/limiter"
	"github.com/local/pdfsplitter/internal/orchestrator"
	"github.com/local/pdfsplitter/internal/pdf"
	"github.com/local/pdfsplitter/internal/split"
	"github.com/local/pdfsplitter/internal/statuscheck"
	"github.com/local/pdfsplitter/internal/storage"
	"github.com/local/pdfsplitter/internal/store"
)

// usageKeep bounds the usage:records list.
const usageKeep = 10000

// app holds the wired orchestrator and whatever must be closed with it.
type app struct {
	orch  *orchestrator.Orchestrator
	ready *statuscheck.Checker
	rdb   *redis.Client
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// newApp builds the orchestrator from cfg. Redis and the S3 mirror are
// only contacted when enabled.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}
	deps := orchestrator.Dependencies{
		ReportDir:  cfg.Server.ReportDir,
		TempMaxAge: cfg.Split.TempMaxAge,
	}
	checks := statuscheck.Options{
		OpenAIKey:    cfg.Classifier.OpenAIKey,
		AnthropicKey: cfg.Classifier.AnthropicKey,
		ReportDir:    cfg.Server.ReportDir,
	}

	if cfg.Redis.Enabled {
		rdb, err := store.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = rdb
		rs := store.NewRedisStatus(rdb, cfg.Redis.ResultTTL)
		deps.Status = orchestrator.NewStatusAdapter(rs)
		deps.Usage = store.NewUsageLedger(rdb, usageKeep)
		checks.Redis = rs
	}

	if cfg.Mirror.Enabled {
		m, err := storage.NewMirror(ctx, cfg.Mirror)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init s3 mirror: %w", err)
		}
		deps.Mirror = m
		checks.Bucket = m
	}

	var classifier split.Classifier
	if engines := classifierEngines(cfg.Classifier); len(engines) > 0 {
		// the breaker is shared through Redis when it is enabled
		lim := limiter.New(limiter.Options{
			Redis:       a.rdb,
			MaxInflight: cfg.Classifier.MaxInflight,
			BaseBackoff: cfg.Classifier.Cooldown,
			MaxBackoff:  cfg.Classifier.MaxCooldown,
		})
		failover := ai.NewFailover(ai.FailoverOptions{
			Attempts: uint(cfg.Classifier.Attempts),
			Delay:    cfg.Classifier.RetryDelay,
			Timeout:  cfg.Classifier.Timeout,
			Limiter:  lim,
		}, engines...)
		renderer := pdf.NewRenderer(cfg.Classifier.RenderDPI, cfg.Classifier.MaxPages)
		classifier = orchestrator.NewPageClassifier(renderer, failover)
	} else {
		log.Warn().Msg("no classifier API key configured; folder processing will report every PDF as failed")
	}

	deps.Runner = split.NewCoordinator(orchestrator.NewInspector(), classifier, split.NewExecutor(pdf.NewExtractor()))
	a.ready = statuscheck.New(checks)
	deps.Ready = a.ready
	a.orch = orchestrator.New(deps)
	return a, nil
}

// classifierEngines returns the configured engines in failover order,
// skipping any without an API key.
func classifierEngines(c config.ClassifierConfig) []ai.Engine {
	var out []ai.Engine
	for _, name := range []string{c.PrimaryEngine, c.SecondaryEngine} {
		switch name {
		case "openai":
			if c.OpenAIKey == "" {
				log.Warn().Msg("OPENAI_API_KEY not set; openai engine disabled")
				continue
			}
			out = append(out, ai.Engine{Client: ai.NewOpenAIClient(c.OpenAIKey, c.OpenAIBaseURL), Model: c.OpenAIModel})
		case "anthropic":
			if c.AnthropicKey == "" {
				log.Warn().Msg("ANTHROPIC_API_KEY not set; anthropic engine disabled")
				continue
			}
			out = append(out, ai.Engine{Client: ai.NewAnthropicClient(c.AnthropicKey, c.AnthropicURL), Model: c.AnthropicModel})
		case "":
		default:
			log.Warn().Str("engine", name).Msg("unknown classifier engine ignored")
		}
	}
	return out
}
