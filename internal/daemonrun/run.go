// Package daemonrun wires the full daemon runtime for a single process.
// Both the standalone argusd binary and the hidden `argus daemon` CLI
// subcommand delegate here so the two entry points stay identical.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"argus/internal/analysis"
	"argus/internal/blobstore"
	"argus/internal/config"
	"argus/internal/daemon"
	"argus/internal/logging"
	"argus/internal/notifications"
	"argus/internal/records"
	"argus/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured logging level when set.
	LogLevel string
}

// PIDFilePath returns the location of the daemon pid file for cfg.
func PIDFilePath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "argusd.pid")
}

// Run starts the argus daemon runtime loop and blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logPath := filepath.Join(cfg.Paths.LogDir, "argus.log")
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log", logPath)

	pidPath := PIDFilePath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := records.Open(cfg)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return err
	}
	defer store.Close()

	blobs, err := blobstore.FromConfig(signalCtx, cfg)
	if err != nil {
		logger.Error("init blob storage", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	engine := analysis.New(cfg, blobs, logger)
	manager := worker.NewManagerWithNotifier(cfg, store, engine, logger, notifier)

	d, err := daemon.New(cfg, store, blobs, logger, manager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("argus daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
