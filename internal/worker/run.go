package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"argus/internal/logging"
	"argus/internal/records"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker already running")
	}
	if m.handler == nil {
		m.mu.Unlock()
		return errors.New("analysis stage not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	logger := logging.WithComponent(m.logger, "worker")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
			logger.Warn("reclaim stale records failed; stuck records may remain",
				logging.Error(err),
			)
		}

		rec, err := m.store.NextForStatuses(ctx, records.StatusPending)
		if err != nil {
			m.handleNextRecordError(ctx, logger, err)
			continue
		}
		if rec == nil {
			m.waitForRecordOrShutdown(ctx)
			continue
		}

		if err := m.processRecord(ctx, logger, rec); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleNextRecordError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next pending record",
		logging.Error(err),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForRecordOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
