package worker

import (
	"context"
	"errors"
	"time"

	"argus/internal/logging"
	"argus/internal/notifications"
	"argus/internal/records"
)

// markQueueActive records the moment the queue transitioned from idle to
// busy so the drain notification can report batch duration.
func (m *Manager) markQueueActive() {
	m.mu.Lock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
	}
	m.mu.Unlock()
}

func (m *Manager) notifyCompleted(ctx context.Context, rec *records.Record) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Publish(ctx, notifications.EventAnalysisCompleted, notifications.Payload{
		"contentHash": rec.ContentHash,
		"verdict":     string(rec.Verdict),
		"score":       rec.OverallScore,
	})
	m.logNotifyFailure(ctx, "analysis completion", err)
}

func (m *Manager) notifyFailed(ctx context.Context, rec *records.Record, stageErr error) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	err := m.notifier.Publish(ctx, notifications.EventAnalysisFailed, notifications.Payload{
		"contentHash": rec.ContentHash,
		"error":       stageErr,
	})
	m.logNotifyFailure(ctx, "analysis failure", err)
}

func (m *Manager) checkQueueDrained(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue drain")
		} else {
			m.logger.Warn("record stats unavailable; drain notification skipped",
				logging.Error(err),
			)
		}
		return
	}
	if active := stats[records.StatusPending] + stats[records.StatusInProgress]; active > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	pubErr := m.notifier.Publish(ctx, notifications.EventQueueDrained, notifications.Payload{
		"processed": stats[records.StatusCompleted],
		"failed":    stats[records.StatusFailed],
		"duration":  duration,
	})
	m.logNotifyFailure(ctx, "queue drain", pubErr)
}

// logNotifyFailure downgrades notification errors to debug logs. Delivery is
// best effort and must never affect record processing.
func (m *Manager) logNotifyFailure(ctx context.Context, label string, err error) {
	if err == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.WithComponent(m.logger, "worker"))
	if errors.Is(err, context.Canceled) {
		logger.Debug("daemon shutting down, could not send notification")
		return
	}
	logger.Debug(label+" notification failed", logging.Error(err))
}
