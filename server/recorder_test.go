package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pfq"
	"github.com/frobware/go-pfq/group"
	"github.com/frobware/go-pfq/store/sqlite"
)

func TestRecorderSamplesActiveGroups(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewInMemory(ctx, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	run := uuid.New()
	start := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, st.BeginRun(ctx, run, start))

	groups := group.New(nil, nil, logger)
	require.NoError(t, groups.Join(4, 1, pfq.ClassDefault, pfq.PolicyShared, 1))
	groups.Counters(4).IncRecv()
	groups.Counters(4).IncRecv()

	rec := newRecorder(groups, st, run, time.Second, time.Hour, logger)
	now := start
	rec.now = func() time.Time { return now }

	require.NoError(t, rec.record(ctx))
	now = now.Add(2 * time.Hour)
	groups.Counters(4).IncLost()
	require.NoError(t, rec.record(ctx))

	samples, err := st.History(ctx, 4, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1, "the first sample is past retention")
	assert.Equal(t, group.Stats{Recv: 2, Lost: 1}, samples[0].Stats)
	assert.Equal(t, pfq.SocketMask(1<<1), samples[0].Sockets)
	assert.Equal(t, run, samples[0].RunID)

	none, err := st.History(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none, "unused groups are not sampled")
}

func TestRecorderRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewInMemory(ctx, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	rec := newRecorder(group.New(nil, nil, logger), st, uuid.New(), time.Millisecond, 0, logger)
	done := make(chan error, 1)
	go func() { done <- rec.run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop")
	}
}
