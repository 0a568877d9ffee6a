package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"revi-backend/internal/metrics"
)

// RateLimiter allows each client Limit requests per Window. With a Redis
// client the budget is a fixed window shared by every instance; without
// one, or while Redis is failing, an in-process token bucket is used.
type RateLimiter struct {
	name    string
	limit   int
	window  time.Duration
	redis   *redis.Client
	metrics metrics.Recorder
	logger  *slog.Logger

	mu     sync.Mutex
	local  map[string]*clientLimiter
	stopCh chan struct{}
	once   sync.Once
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewRateLimiter(name string, limit int, window time.Duration, rdb *redis.Client, rec metrics.Recorder, logger *slog.Logger) *RateLimiter {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	rl := &RateLimiter{
		name:    name,
		limit:   max(limit, 1),
		window:  window,
		redis:   rdb,
		metrics: rec,
		logger:  logger,
		local:   make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop(window * 5)
	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		allowed, retryAfter := rl.allow(r.Context(), key)
		if !allowed {
			rl.metrics.RecordRateLimited(rl.name)
			rl.logger.Warn("rate limit exceeded",
				slog.String("limit", rl.name),
				slog.String("client", key),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow reports whether key may proceed and, if not, how many seconds to wait.
func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int) {
	if rl.redis != nil {
		ok, retry, err := rl.allowRedis(ctx, key)
		if err == nil {
			return ok, retry
		}
		rl.logger.Warn("rate limit store unavailable; using local limiter",
			slog.String("limit", rl.name),
			slog.String("error", err.Error()),
		)
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, int, error) {
	redisKey := fmt.Sprintf("revi:ratelimit:%s:%s", rl.name, key)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(rl.limit) {
		return true, 0, nil
	}
	return false, ceilSeconds(ttl.Val()), nil
}

func (rl *RateLimiter) allowLocal(key string) (bool, int) {
	rl.mu.Lock()
	cl, ok := rl.local[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)}
		rl.local[key] = cl
	}
	cl.lastAccess = time.Now()
	rl.mu.Unlock()

	if cl.limiter.Allow() {
		return true, 0
	}
	return false, ceilSeconds(rl.window / time.Duration(rl.limit))
}

func (rl *RateLimiter) cleanupLoop(ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(ttl time.Duration) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.local {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.local, key)
		}
	}
}

// clientKey prefers the authenticated user and falls back to the remote IP.
func clientKey(r *http.Request) string {
	if id := GetIdentity(r.Context()); id != nil {
		return "user:" + id.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func ceilSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
