package ratelimit_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-member-auth/middleware/ratelimit"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newClientContext(ip string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("IP").Return(ip)
	return ctx
}

func TestLimiter_Middleware(t *testing.T) {
	var allowed, rejected int
	limiter := ratelimit.New(ratelimit.Config{
		Name:  "login",
		RPS:   0.001,
		Burst: 2,
		OnDecision: func(name string, ok bool) {
			assert.Equal(t, "login", name)
			if ok {
				allowed++
			} else {
				rejected++
			}
		},
	})

	var served int
	handler := limiter.Middleware()(func(ctx router.Context) error {
		served++
		return nil
	})

	for i := 0; i < 2; i++ {
		require.NoError(t, handler(newClientContext("10.0.0.1")))
	}

	ctx := newClientContext("10.0.0.1")
	ctx.On("SetHeader", "Retry-After", "1").Return(ctx)

	var body auth.ErrorBody
	ctx.On("JSON", http.StatusTooManyRequests, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(auth.ErrorBody)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)

	assert.Equal(t, 2, served)
	assert.Equal(t, ratelimit.TextCodeRateLimited, body.Error.TextCode)
	assert.Equal(t, 2, allowed)
	assert.Equal(t, 1, rejected)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 0.001, Burst: 1})

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	assert.False(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("b"))
}

func TestLimiter_CustomKeyAndErrorHandler(t *testing.T) {
	var rejectedWith error
	limiter := ratelimit.New(ratelimit.Config{
		RPS:   0.001,
		Burst: 1,
		KeyFunc: func(ctx router.Context) string {
			return ctx.Param("account")
		},
		ErrorHandler: func(ctx router.Context, err error) error {
			rejectedWith = err
			return err
		},
	})

	handler := limiter.Middleware()(func(router.Context) error { return nil })

	ctx := router.NewMockContext()
	ctx.ParamsM["account"] = "acct-1"
	ctx.On("SetHeader", "Retry-After", "1").Return(ctx).Maybe()

	require.NoError(t, handler(ctx))
	assert.ErrorIs(t, handler(ctx), ratelimit.ErrRateLimited)
	assert.ErrorIs(t, rejectedWith, ratelimit.ErrRateLimited)
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))
	assert.Equal(t, http.StatusTooManyRequests, auth.HTTPStatus(ratelimit.ErrRateLimited))
}

func TestLimiter_EvictsIdleBuckets(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	limiter := ratelimit.New(ratelimit.Config{
		RPS:     0.001,
		Burst:   1,
		IdleTTL: time.Minute,
		Now:     clock,
	})

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
	assert.Equal(t, 2, limiter.Len())

	advance(30 * time.Second)
	assert.False(t, limiter.Allow("b"), "bucket b is still active")
	assert.Equal(t, 2, limiter.Len(), "no sweep before the ttl elapses")

	advance(45 * time.Second)
	// a has been idle for 75s, b for 45s
	assert.True(t, limiter.Allow("c"))
	assert.Equal(t, 2, limiter.Len())

	advance(2 * time.Minute)
	// the refill over 195s is well under one token, only eviction resets a
	assert.True(t, limiter.Allow("a"))
	assert.Equal(t, 1, limiter.Len())
}

func TestLimiter_ConcurrentKeys(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 0.001, Burst: 1, IdleTTL: time.Nanosecond})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiter.Allow(string(rune('a' + i%8)))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, limiter.Len(), 8)
}
