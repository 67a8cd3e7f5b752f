// Package ratelimit is a per client token bucket limiter for the router.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-router"
	"golang.org/x/time/rate"
)

const TextCodeRateLimited = "RATE_LIMITED"

// DefaultIdleTTL is how long an untouched bucket is kept
const DefaultIdleTTL = 10 * time.Minute

// ErrRateLimited is returned when a client runs out of tokens
var ErrRateLimited = errors.New("too many requests", errors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

type Config struct {
	// Name labels the limiter in decisions, "default" when empty
	Name string
	// RPS is the refill rate in requests per second
	RPS float64
	// Burst is the bucket size
	Burst int
	// IdleTTL drops buckets not used for this long, DefaultIdleTTL when zero
	IdleTTL time.Duration
	// KeyFunc picks the bucket, defaults to the client IP
	KeyFunc func(router.Context) string
	// OnDecision observes every allow or reject
	OnDecision func(limiter string, allowed bool)
	// ErrorHandler writes the rejection, defaults to auth.WriteError
	ErrorHandler router.ErrorHandler
	// Now is the clock, time.Now when nil
	Now func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// Limiter keeps one rate.Limiter per key. Buckets idle for longer than
// IdleTTL are swept on access, at most once per IdleTTL.
type Limiter struct {
	cfg       Config
	buckets   sync.Map // map[string]*bucket
	lastSweep atomic.Int64
}

// New creates a Limiter, zero RPS or Burst fall back to 1
func New(cfg Config) *Limiter {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = auth.WriteError
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Limiter{cfg: cfg}
	l.lastSweep.Store(cfg.Now().UnixNano())
	return l
}

func clientIP(ctx router.Context) string {
	ip := ctx.IP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	v, ok := l.buckets.Load(key)
	if !ok {
		v, _ = l.buckets.LoadOrStore(key, &bucket{
			limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst),
		})
	}
	b := v.(*bucket)
	b.lastSeen.Store(now.UnixNano())
	return b.limiter
}

func (l *Limiter) sweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.cfg.IdleTTL) {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.cfg.IdleTTL).UnixNano()
	l.buckets.Range(func(key, value any) bool {
		if value.(*bucket).lastSeen.Load() < cutoff {
			l.buckets.Delete(key)
		}
		return true
	})
}

// Allow takes a token for key
func (l *Limiter) Allow(key string) bool {
	now := l.cfg.Now()
	l.sweep(now)

	allowed := l.get(key, now).AllowN(now, 1)
	if l.cfg.OnDecision != nil {
		l.cfg.OnDecision(l.cfg.Name, allowed)
	}
	return allowed
}

// Len reports how many buckets are held
func (l *Limiter) Len() int {
	n := 0
	l.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Middleware rejects requests whose bucket is empty
func (l *Limiter) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !l.Allow(l.cfg.KeyFunc(ctx)) {
				ctx.SetHeader("Retry-After", "1")
				return l.cfg.ErrorHandler(ctx, ErrRateLimited)
			}
			return next(ctx)
		}
	}
}
