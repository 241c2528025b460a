package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwestlin/pi-home-info/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

func TestScheduler(t *testing.T) {
	t.Run("Runs Immediately", func(t *testing.T) {
		s := New()
		defer s.Stop()

		var runs atomic.Int32
		require.NoError(t, s.Start(time.Hour, func(context.Context) {
			runs.Add(1)
		}))
		require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Repeats", func(t *testing.T) {
		s := New()
		defer s.Stop()

		var runs atomic.Int32
		require.NoError(t, s.Start(50*time.Millisecond, func(context.Context) {
			runs.Add(1)
		}))
		require.Eventually(t, func() bool { return runs.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("Never Overlaps", func(t *testing.T) {
		s := New()
		defer s.Stop()

		var inFlight, overlaps, runs atomic.Int32
		require.NoError(t, s.Start(20*time.Millisecond, func(context.Context) {
			if inFlight.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(70 * time.Millisecond)
			inFlight.Add(-1)
			runs.Add(1)
		}))
		require.Eventually(t, func() bool { return runs.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(0), overlaps.Load())
	})

	t.Run("Stop Cancels Running Job", func(t *testing.T) {
		s := New()

		started := make(chan struct{})
		var canceled atomic.Bool
		require.NoError(t, s.Start(time.Hour, func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			canceled.Store(true)
		}))
		<-started
		s.Stop()
		assert.True(t, canceled.Load(), "Stop waits for the job to see the cancellation")
	})

	t.Run("Invalid Period", func(t *testing.T) {
		s := New()
		defer s.Stop()
		assert.Error(t, s.Start(0, func(context.Context) {}))
		assert.Error(t, s.Start(-time.Second, func(context.Context) {}))
	})

	t.Run("Nil Job", func(t *testing.T) {
		s := New()
		defer s.Stop()
		assert.Error(t, s.Start(time.Second, nil))
	})

	t.Run("Second Start", func(t *testing.T) {
		s := New()
		defer s.Stop()
		require.NoError(t, s.Start(time.Hour, func(context.Context) {}))
		assert.Error(t, s.Start(time.Hour, func(context.Context) {}))
	})

	t.Run("Start After Stop", func(t *testing.T) {
		s := New()
		s.Stop()
		assert.Error(t, s.Start(time.Hour, func(context.Context) {}))
	})
}
