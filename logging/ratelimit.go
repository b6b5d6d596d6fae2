package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited wraps a logger so that at most one record per interval
// (with the given burst) reaches it. Dropped records are counted and
// the count is attached to the next record that gets through.
//
// It is meant for warnings raised on the packet path, which could
// otherwise be emitted once per packet.
type RateLimited struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	dropped atomic.Uint64
}

// NewRateLimited returns a RateLimited logger.
func NewRateLimited(logger *slog.Logger, every time.Duration, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// Warn logs at warn level if the limiter allows it.
func (r *RateLimited) Warn(msg string, args ...any) {
	r.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Debug logs at debug level if the limiter allows it.
func (r *RateLimited) Debug(msg string, args ...any) {
	r.log(context.Background(), slog.LevelDebug, msg, args...)
}

func (r *RateLimited) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !r.logger.Enabled(ctx, level) {
		return
	}
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return
	}
	if n := r.dropped.Swap(0); n > 0 {
		args = slices.Concat(args, []any{"suppressed", n})
	}
	r.logger.Log(ctx, level, msg, args...)
}

// Suppressed returns the number of records dropped since the last
// record that was logged.
func (r *RateLimited) Suppressed() uint64 {
	return r.dropped.Load()
}
