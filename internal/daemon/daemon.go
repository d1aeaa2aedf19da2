package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"argus/internal/blobstore"
	"argus/internal/config"
	"argus/internal/logging"
	"argus/internal/notifications"
	"argus/internal/preflight"
	"argus/internal/records"
	"argus/internal/worker"
)

// Daemon coordinates the analysis worker, record store, blob storage, and
// the local HTTP API, and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *records.Store
	worker *worker.Manager
	blobs  blobstore.Store
	intake *Intake

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	RecordsDBPath string
	LockFilePath  string
	Worker        worker.StatusSummary
	Preflight     []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *records.Store, blobs blobstore.Store, logger *slog.Logger, mgr *worker.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || blobs == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, blob store, logger, and worker manager")
	}

	intake, err := NewIntake(store, blobs, logger)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "argusd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		worker:   mgr,
		blobs:    blobs,
		intake:   intake,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the worker, the API server,
// and the maintenance loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another argus daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	abort := func(err error) error {
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	if err := d.worker.Start(d.ctx); err != nil {
		return abort(fmt.Errorf("start worker: %w", err))
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.worker.Stop()
		return abort(fmt.Errorf("configure api server: %w", err))
	}
	if srv != nil {
		if err := srv.start(d.ctx); err != nil {
			d.worker.Stop()
			return abort(fmt.Errorf("start api server: %w", err))
		}
	}
	d.api = srv

	go d.maintenanceLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("argus daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("argus daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the address the API server is listening on, or the
// empty string when the API is disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// LogPath returns the daemon log file location, or the empty string when
// no log directory is configured.
func (d *Daemon) LogPath() string {
	if d.cfg == nil {
		return ""
	}
	dir := strings.TrimSpace(d.cfg.Paths.LogDir)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "argus.log")
}

// TestNotification publishes a test event using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		RecordsDBPath: filepath.Join(d.cfg.Paths.LogDir, "records.db"),
		LockFilePath:  d.lockPath,
		Worker:        d.worker.Status(ctx),
		Preflight:     preflight.RunAll(ctx, d.cfg),
	}
}
