package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/store/sqlite"
)

// recorder samples the counters of every active group into the
// statistics store at a fixed interval.
type recorder struct {
	groups    *group.Manager
	store     *sqlite.Store
	runID     uuid.UUID
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func newRecorder(groups *group.Manager, store *sqlite.Store, runID uuid.UUID, interval, retention time.Duration, logger *slog.Logger) *recorder {
	return &recorder{
		groups:    groups,
		store:     store,
		runID:     runID,
		interval:  interval,
		retention: retention,
		logger:    logger.With("component", "recorder"),
		now:       time.Now,
	}
}

// record stores one sample per active group.
func (r *recorder) record(ctx context.Context) error {
	at := r.now()
	snap := r.groups.Snapshot()
	samples := make([]sqlite.Sample, 0, len(snap))
	for _, info := range snap {
		samples = append(samples, sqlite.Sample{
			RunID:   r.runID,
			GID:     info.GID,
			At:      at,
			Stats:   info.Stats,
			Sockets: info.Sockets,
		})
	}
	if err := r.store.Save(ctx, samples); err != nil {
		return err
	}
	if r.retention > 0 {
		n, err := r.store.Prune(ctx, at.Add(-r.retention))
		if err != nil {
			return err
		}
		if n > 0 {
			r.logger.Debug("pruned samples", "count", n)
		}
	}
	return nil
}

// run records until ctx is done. A failed recording is logged and the
// next tick tries again.
func (r *recorder) run(ctx context.Context) error {
	r.logger.Info("recording group statistics", "interval", r.interval, "retention", r.retention, "run_id", r.runID)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.record(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("recording failed", "error", err)
			}
		}
	}
}
