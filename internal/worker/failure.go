package worker

import (
	"context"
	"errors"
	"strings"

	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/services"
)

func (m *Manager) handleFailure(ctx context.Context, rec *records.Record, stageErr error) {
	logger := logging.WithContext(ctx, logging.WithComponent(m.logger, "worker"))

	message := failureMessage(stageErr)
	rec.SetFailed(message)
	if reason := records.ReviewReason(stageErr); reason != "" {
		rec.NeedsReview = true
		rec.ReviewReason = reason
	}

	logger.Error("analysis failed",
		logging.String("error_kind", services.Kind(stageErr)),
		logging.String("error_message", message),
		logging.Bool("needs_review", rec.NeedsReview),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, rec); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist analysis failure")
		} else {
			logger.Error("failed to persist analysis failure", logging.Error(err))
		}
	}

	m.setLastRecord(rec)
	m.notifyFailed(ctx, rec, stageErr)
	m.checkQueueDrained(ctx)
}

func failureMessage(err error) string {
	if err == nil {
		return "analysis failed without error detail"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "analysis failed"
	}
	return message
}
