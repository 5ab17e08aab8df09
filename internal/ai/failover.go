package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	mpkg "github.com/local/pdfsplitter/internal/metrics"
)

// Engine is a provider client paired with the model to ask.
type Engine struct {
	Client Client
	Model  string
}

// Limiter gates engines. *limiter.Adaptive satisfies it.
type Limiter interface {
	Acquire(ctx context.Context, provider, model string) (func(), error)
	IsOpen(ctx context.Context, provider, model string) bool
	Trip(ctx context.Context, provider, model string) time.Duration
	Reset(ctx context.Context, provider, model string)
}

// FailoverOptions tune per-engine attempts. Limiter is optional.
type FailoverOptions struct {
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
	Limiter  Limiter
}

// ErrEngineCoolingDown is returned for an engine whose breaker is open.
var ErrEngineCoolingDown = errors.New("engine cooling down after rate limit")

// Failover asks engines in order. Each engine gets Attempts tries for
// transient failures; any remaining failure moves on to the next engine.
type Failover struct {
	engines []Engine
	opts    FailoverOptions
}

func NewFailover(opts FailoverOptions, engines ...Engine) *Failover {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	var usable []Engine
	for _, e := range engines {
		if e.Client != nil {
			usable = append(usable, e)
		}
	}
	return &Failover{engines: usable, opts: opts}
}

func (f *Failover) Name() string { return "failover" }

// Classify returns the first successful answer. Usage is summed over every
// call that reported tokens, including failed ones.
func (f *Failover) Classify(ctx context.Context, req Request) (Response, error) {
	if len(f.engines) == 0 {
		return Response{}, errors.New("no classifier engines configured")
	}
	var (
		spent   Usage
		lastErr error
	)
	for i, e := range f.engines {
		r := req
		r.Model = e.Model
		if r.Timeout == 0 {
			r.Timeout = f.opts.Timeout
		}

		name := e.Client.Name()
		lim := f.opts.Limiter
		if lim != nil && lim.IsOpen(ctx, name, e.Model) {
			lastErr = fmt.Errorf("%s/%s: %w", name, e.Model, ErrEngineCoolingDown)
			log.Warn().Str("job_id", req.JobID).Str("provider", name).Str("model", e.Model).Msg("engine skipped, breaker open")
			continue
		}

		var resp Response
		err := retry.Do(
			func() error {
				if lim != nil {
					release, err := lim.Acquire(ctx, name, e.Model)
					if err != nil {
						return retry.Unrecoverable(err)
					}
					defer release()
				}
				start := time.Now()
				out, err := e.Client.Classify(ctx, r)
				mpkg.ObserveClassifier(name, e.Model, resultLabel(err), time.Since(start))
				spent.InputTokens += out.Usage.InputTokens
				spent.OutputTokens += out.Usage.OutputTokens
				spent.TotalTokens += out.Usage.TotalTokens
				if err != nil {
					return err
				}
				resp = out
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(f.opts.Attempts),
			retry.Delay(f.opts.Delay),
			retry.RetryIf(isTransientError),
			retry.LastErrorOnly(true),
		)
		if err == nil {
			if lim != nil {
				lim.Reset(ctx, name, e.Model)
			}
			resp.Usage = spent
			return resp, nil
		}
		if lim != nil && IsRateLimited(err) {
			d := lim.Trip(ctx, name, e.Model)
			log.Warn().Str("provider", name).Str("model", e.Model).Dur("cooldown", d).Msg("rate limited, breaker opened")
		}
		lastErr = fmt.Errorf("%s/%s: %w", name, e.Model, err)
		if ctx.Err() != nil {
			break
		}
		if i < len(f.engines)-1 {
			log.Warn().Err(err).Str("job_id", req.JobID).Str("provider", name).Str("model", e.Model).Msg("classifier failed, trying next engine")
		}
	}
	return Response{Usage: spent}, lastErr
}
