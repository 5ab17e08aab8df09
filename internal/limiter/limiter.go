package limiter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Adaptive bounds in-flight classifier calls per provider/model and keeps a
// cooldown breaker for engines that were rate limited. The breaker lives in
// Redis when a client is given, so every process sharing that Redis backs
// off together; otherwise it is kept in memory.
type Adaptive struct {
	rdb         *redis.Client
	maxInflight int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sem      map[string]chan struct{}
	until    map[string]time.Time
	attempts map[string]int64
}

type Options struct {
	Redis       *redis.Client
	MaxInflight int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) *Adaptive {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	return &Adaptive{
		rdb:         opts.Redis,
		maxInflight: opts.MaxInflight,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		now:         time.Now,
		sem:         map[string]chan struct{}{},
		until:       map[string]time.Time{},
		attempts:    map[string]int64{},
	}
}

func (a *Adaptive) key(provider, model string) string {
	return fmt.Sprintf("cb:%s:%s", strings.ToLower(provider), strings.ToLower(model))
}

// backoff doubles per consecutive trip up to maxBackoff.
func (a *Adaptive) backoff(attempts int64) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := a.baseBackoff
	for i := int64(1); i < attempts && d < a.maxBackoff; i++ {
		d *= 2
	}
	if d > a.maxBackoff {
		d = a.maxBackoff
	}
	return d
}

// IsOpen returns true while the cooldown for provider/model is active.
func (a *Adaptive) IsOpen(ctx context.Context, provider, model string) bool {
	k := a.key(provider, model)
	if a.rdb != nil {
		ts, err := a.rdb.Get(ctx, k).Int64()
		if err != nil {
			return false
		}
		return a.now().Unix() < ts
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.now().Before(a.until[k])
}

// Trip opens or extends the cooldown and returns its length.
func (a *Adaptive) Trip(ctx context.Context, provider, model string) time.Duration {
	k := a.key(provider, model)
	if a.rdb != nil {
		attempts, _ := a.rdb.Incr(ctx, k+":attempts").Result()
		d := a.backoff(attempts)
		_ = a.rdb.Set(ctx, k, a.now().Add(d).Unix(), d).Err()
		// attempts outlive the cooldown so repeated trips keep growing
		_ = a.rdb.Expire(ctx, k+":attempts", 2*a.maxBackoff).Err()
		return d
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts[k]++
	d := a.backoff(a.attempts[k])
	a.until[k] = a.now().Add(d)
	return d
}

// Reset closes the breaker for provider/model.
func (a *Adaptive) Reset(ctx context.Context, provider, model string) {
	k := a.key(provider, model)
	if a.rdb != nil {
		_ = a.rdb.Del(ctx, k, k+":attempts").Err()
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.until, k)
	delete(a.attempts, k)
}

// Acquire waits for an in-process slot for provider/model. The returned
// release func must be called once the call is done.
func (a *Adaptive) Acquire(ctx context.Context, provider, model string) (func(), error) {
	key := strings.ToLower(provider) + ":" + strings.ToLower(model)
	a.mu.Lock()
	ch, ok := a.sem[key]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
