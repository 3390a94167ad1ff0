package sessions

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Monitor periodically re-derives the authentication state and proactively
// refreshes a session that is about to lapse. It is the only autonomous
// source of state transitions; everything else is caller-triggered.
type Monitor struct {
	manager  SessionManager
	interval time.Duration
	logger   *zap.Logger
}

// NewMonitor creates a new session monitor
func NewMonitor(manager SessionManager, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Run ticks until the context is cancelled. The ticker is released when the
// owning scope cancels the context, never leaked.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug("Session monitor started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Session monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// Start launches Run on its own goroutine
func (m *Monitor) Start(ctx context.Context) {
	go m.Run(ctx)
}

func (m *Monitor) tick(ctx context.Context) {
	// deriving the state evaluates lazy expiry as a side effect
	state := m.manager.AuthState(ctx)
	if !state.IsAuthenticated {
		return
	}

	if m.manager.ExpiringSoon(ctx) {
		result := m.manager.RefreshSession(ctx)
		if result.Success {
			m.logger.Info("Session auto-refreshed before expiry",
				zap.String("user_id", state.User.ID))
		} else {
			m.logger.Warn("Session auto-refresh failed", zap.String("message", result.Message))
		}
	}
}
