package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"argus/internal/blobstore"
	"argus/internal/detect"
	"argus/internal/logging"
	"argus/internal/records"
)

// Retention sweeps run shortly after startup and then on a fixed cadence
// while the daemon is up.
const (
	maintenanceStartDelay = time.Minute
	maintenanceInterval   = 6 * time.Hour
)

func (d *Daemon) maintenanceLoop(ctx context.Context) {
	timer := time.NewTimer(maintenanceStartDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		d.runMaintenance(ctx)
		timer.Reset(maintenanceInterval)
	}
}

func (d *Daemon) runMaintenance(ctx context.Context) {
	logger := d.logger.With(logging.String(logging.FieldComponent, "maintenance"))
	if days := d.cfg.Analysis.RetentionDays; days > 0 {
		d.pruneRecords(ctx, logger, days)
	}
	logging.CleanupOldLogs(logger, d.cfg.Logging.RetentionDays, d.cfg.Paths.LogDir, "*.log",
		filepath.Join(d.cfg.Paths.LogDir, "argus.log"))
}

// pruneRecords deletes terminal records older than the retention window
// along with their stored blobs. Blob removal runs first so a crash between
// the two passes leaves records that a later sweep retries, never orphaned
// artifacts.
func (d *Daemon) pruneRecords(ctx context.Context, logger *slog.Logger, days int) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	terminal, err := d.store.List(ctx, records.StatusCompleted, records.StatusFailed)
	if err != nil {
		logger.Warn("retention sweep list failed", logging.Error(err))
		return
	}
	for _, rec := range terminal {
		if !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		d.removeRecordBlobs(ctx, logger, rec)
	}

	pruned, err := d.store.PruneTerminal(ctx, cutoff)
	if err != nil {
		logger.Warn("retention sweep failed", logging.Error(err))
		return
	}
	if pruned > 0 {
		logger.Info("terminal records pruned",
			logging.Int64("records", pruned),
			logging.String("cutoff", cutoff.Format(time.RFC3339)))
	}
}

func (d *Daemon) removeRecordBlobs(ctx context.Context, logger *slog.Logger, rec *records.Record) {
	keys := []string{blobstore.ImageKey(rec.ContentHash)}
	if rec.ThumbnailKey != "" {
		keys = append(keys, rec.ThumbnailKey)
	}
	for _, kind := range detect.Kinds() {
		if outcome := rec.Outcome(string(kind)); outcome != nil && outcome.ArtifactKey != "" {
			keys = append(keys, outcome.ArtifactKey)
		}
	}
	for _, key := range keys {
		if err := d.blobs.Remove(ctx, key); err != nil {
			logger.Warn("blob removal failed",
				logging.String(logging.FieldContentHash, rec.ContentHash),
				logging.String("key", key),
				logging.Error(err))
		}
	}
}
