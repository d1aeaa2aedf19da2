package worker

import (
	"context"

	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/stage"
)

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRecord  *records.Record
	RecordStats map[records.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest worker information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastRecord := m.lastRecord
	handler := m.handler
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read record stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, 1)
	if handler != nil {
		h := handler.HealthCheck(ctx)
		health[h.Name] = h
	}

	summary := StatusSummary{Running: running, RecordStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastRecord != nil {
		copy := *lastRecord
		summary.LastRecord = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastRecord(rec *records.Record) {
	m.mu.Lock()
	if rec != nil {
		copy := *rec
		m.lastRecord = &copy
	} else {
		m.lastRecord = nil
	}
	m.mu.Unlock()
}
