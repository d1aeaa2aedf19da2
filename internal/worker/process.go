package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"argus/internal/logging"
	"argus/internal/records"
)

// loggerAware lets stage handlers receive the per-record logger so their
// output carries record, hash, and request identifiers.
type loggerAware interface {
	SetLogger(*slog.Logger)
}

func (m *Manager) processRecord(ctx context.Context, baseLogger *slog.Logger, rec *records.Record) error {
	requestID := uuid.NewString()
	taskCtx := logging.WithRecordID(ctx, rec.ID)
	taskCtx = logging.WithContentHash(taskCtx, rec.ContentHash)
	taskCtx = logging.WithRequestID(taskCtx, requestID)
	taskLogger := logging.WithContext(taskCtx, baseLogger)

	if aware, ok := m.handler.(loggerAware); ok {
		aware.SetLogger(taskLogger)
	}

	if err := m.transitionToProcessing(taskCtx, rec); err != nil {
		taskLogger.Error("failed to transition record to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(taskCtx, taskLogger, rec)
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, rec *records.Record) error {
	start := time.Now()
	logger.Info("analysis started",
		logging.String("source_path", rec.SourcePath),
		logging.String("detector_subset", rec.DetectorSubset),
	)

	if err := m.handler.Prepare(ctx, rec); err != nil {
		m.handleFailure(ctx, rec, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, rec); err != nil {
		wrapped := fmt.Errorf("persist analysis preparation: %w", err)
		logger.Error("failed to persist analysis preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, rec)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("analysis interrupted by shutdown")
			return execErr
		}
		m.handleFailure(ctx, rec, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if rec.Status == records.StatusInProgress || rec.Status == "" {
		rec.Status = records.StatusCompleted
	}
	rec.LastHeartbeat = nil
	if err := m.store.Update(ctx, rec); err != nil {
		wrapped := fmt.Errorf("persist analysis result: %w", err)
		logger.Error("failed to persist analysis result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	logger.Info("analysis finished",
		logging.String("verdict", string(rec.Verdict)),
		logging.Float64("overall_score", rec.OverallScore),
		logging.Duration("stage_duration", time.Since(start)),
	)
	m.setLastRecord(rec)
	m.notifyCompleted(ctx, rec)
	m.checkQueueDrained(ctx)
	return nil
}

// executeWithHeartbeat runs the handler while a background loop refreshes
// the record's heartbeat so a stalled run can be reclaimed.
func (m *Manager) executeWithHeartbeat(ctx context.Context, rec *records.Record) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, rec.ID)

	execErr := m.handler.Execute(ctx, rec)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, rec *records.Record) error {
	now := time.Now().UTC()
	rec.Status = records.StatusInProgress
	rec.ErrorMessage = ""
	rec.LastHeartbeat = &now

	if err := m.store.Update(ctx, rec); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastRecord(rec)
	m.markQueueActive()
	return nil
}
