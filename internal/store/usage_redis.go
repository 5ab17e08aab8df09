package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdfsplitter/internal/split"
)

// UsageRecord is one classifier bill, written once per job.
type UsageRecord struct {
	JobID string    `json:"job_id"`
	Mode  string    `json:"mode"`
	Files int       `json:"files"`
	At    time.Time `json:"at"`
	split.Usage
}

// UsageLedger appends usage records and keeps running totals in Redis.
type UsageLedger struct {
	client *redis.Client
	keyNS  string
	keep   int64
}

// NewUsageLedger keeps at most keep records in the list; totals are
// unbounded.
func NewUsageLedger(c *redis.Client, keep int64) *UsageLedger {
	if keep <= 0 {
		keep = 10000
	}
	return &UsageLedger{client: c, keyNS: "usage", keep: keep}
}

func (l *UsageLedger) recordsKey() string { return l.keyNS + ":records" }
func (l *UsageLedger) totalsKey() string  { return l.keyNS + ":totals" }
func (l *UsageLedger) jobKey(jobID string) string {
	return fmt.Sprintf("%s:job:%s", l.keyNS, jobID)
}

func (l *UsageLedger) Record(ctx context.Context, rec UsageRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.recordsKey(), b)
	pipe.LTrim(ctx, l.recordsKey(), 0, l.keep-1)
	pipe.HIncrBy(ctx, l.totalsKey(), "input_tokens", rec.InputTokens)
	pipe.HIncrBy(ctx, l.totalsKey(), "output_tokens", rec.OutputTokens)
	pipe.HIncrBy(ctx, l.totalsKey(), "total_tokens", rec.TotalTokens)
	pipe.HIncrBy(ctx, l.totalsKey(), "jobs", 1)
	pipe.Set(ctx, l.jobKey(rec.JobID), b, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Totals returns the token sums and number of recorded jobs.
func (l *UsageLedger) Totals(ctx context.Context) (split.Usage, int64, error) {
	res, err := l.client.HGetAll(ctx, l.totalsKey()).Result()
	if err != nil {
		return split.Usage{}, 0, err
	}
	return totalsFromHash(res)
}

// Job returns the record written for jobID.
func (l *UsageLedger) Job(ctx context.Context, jobID string) (UsageRecord, bool, error) {
	b, err := l.client.Get(ctx, l.jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return UsageRecord{}, false, nil
	}
	if err != nil {
		return UsageRecord{}, false, err
	}
	var rec UsageRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return UsageRecord{}, false, err
	}
	return rec, true, nil
}

func totalsFromHash(res map[string]string) (split.Usage, int64, error) {
	var (
		u    split.Usage
		jobs int64
	)
	for field, dst := range map[string]*int64{
		"input_tokens":  &u.InputTokens,
		"output_tokens": &u.OutputTokens,
		"total_tokens":  &u.TotalTokens,
		"jobs":          &jobs,
	} {
		v, ok := res[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return split.Usage{}, 0, fmt.Errorf("usage totals field %s: %w", field, err)
		}
		*dst = n
	}
	return u, jobs, nil
}
