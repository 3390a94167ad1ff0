package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitor(t *testing.T) {
	ctx := context.Background()

	t.Run("AutoRefreshesExpiringSession", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		now := time.Now()
		user := NewUser("jane@example.org", now)
		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: now.Add(2 * time.Minute)}))

		monitorCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		monitor := NewMonitor(svc, 10*time.Millisecond, zap.NewNop())
		monitor.Start(monitorCtx)

		require.Eventually(t, func() bool {
			session, err := store.Read(ctx)
			if err != nil || session == nil {
				return false
			}
			return session.ExpiresAt.After(now.Add(23 * time.Hour))
		}, time.Second, 10*time.Millisecond, "monitor should extend an expiring session")
	})

	t.Run("ExpiredSessionIsClearedOnTick", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		now := time.Now()
		user := NewUser("jane@example.org", now)
		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: now.Add(-time.Minute)}))

		monitorCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		monitor := NewMonitor(svc, 10*time.Millisecond, zap.NewNop())
		monitor.Start(monitorCtx)

		require.Eventually(t, func() bool {
			session, err := store.Read(ctx)
			return err == nil && session == nil
		}, time.Second, 10*time.Millisecond, "monitor tick should evaluate lazy expiry")
	})

	t.Run("StopsWhenContextCancelled", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		monitorCtx, cancel := context.WithCancel(ctx)
		monitor := NewMonitor(svc, 10*time.Millisecond, zap.NewNop())

		stopped := make(chan struct{})
		go func() {
			monitor.Run(monitorCtx)
			close(stopped)
		}()

		cancel()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("monitor did not stop after cancellation")
		}
	})

	t.Run("HealthySessionLeftAlone", func(t *testing.T) {
		store := NewInMemoryStore()
		svc := newTestService(store)

		now := time.Now()
		user := NewUser("jane@example.org", now)
		expiry := now.Add(12 * time.Hour)
		require.NoError(t, store.Write(ctx, &Session{User: user, ExpiresAt: expiry}))

		monitorCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		monitor := NewMonitor(svc, 10*time.Millisecond, zap.NewNop())
		monitor.Start(monitorCtx)

		time.Sleep(50 * time.Millisecond)

		session, err := store.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.True(t, session.ExpiresAt.Equal(expiry), "a session outside the expiry window must not be rewritten")
	})
}
