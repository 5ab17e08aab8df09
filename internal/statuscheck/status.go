package statuscheck

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker is satisfied by storage.Mirror.
type BucketChecker interface {
	HeadBucket(ctx context.Context) error
}

// Checker aggregates health checks for the external dependencies of a job.
type Checker struct {
	redis        RedisPinger
	bucket       BucketChecker
	openAIKey    string
	anthropicKey string
	reportDir    string
}

// Options configures the Checker. Nil Redis or Bucket means the feature
// is disabled, which is not a failure.
type Options struct {
	Redis        RedisPinger
	Bucket       BucketChecker
	OpenAIKey    string
	AnthropicKey string
	ReportDir    string
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Redis     Status `json:"redis"`
	S3        Status `json:"s3"`
	OpenAI    Status `json:"openai"`
	Anthropic Status `json:"anthropic"`
	ReportDir Status `json:"report_dir"`
}

// Ready is false when an enabled dependency is down. A missing classifier
// key only disables folder processing, so it does not count.
func (s Summary) Ready() bool {
	return s.Redis.OK && s.S3.OK && s.ReportDir.OK
}

func New(opts Options) *Checker {
	return &Checker{
		redis:        opts.Redis,
		bucket:       opts.Bucket,
		openAIKey:    strings.TrimSpace(opts.OpenAIKey),
		anthropicKey: strings.TrimSpace(opts.AnthropicKey),
		reportDir:    opts.ReportDir,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Redis:     c.checkRedis(ctx),
		S3:        c.checkS3(ctx),
		OpenAI:    keyStatus(c.openAIKey),
		Anthropic: keyStatus(c.anthropicKey),
		ReportDir: c.checkReportDir(),
	}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: true, Message: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.bucket == nil {
		return Status{OK: true, Message: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.bucket.HeadBucket(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkReportDir() Status {
	if c.reportDir == "" {
		return Status{OK: true, Message: "disabled"}
	}
	if err := os.MkdirAll(c.reportDir, 0o755); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	f, err := os.CreateTemp(c.reportDir, ".ready-*")
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Status{OK: true, Message: "Writable"}
}

func keyStatus(key string) Status {
	if key == "" {
		return Status{OK: false, Message: "API key missing"}
	}
	return Status{OK: true, Message: "Configured"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
