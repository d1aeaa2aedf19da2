package worker

import (
	"log/slog"
	"sync"
	"time"

	"argus/internal/config"
	"argus/internal/notifications"
	"argus/internal/records"
	"argus/internal/stage"
)

// Manager drains pending analysis records through the configured stage
// handler.
type Manager struct {
	cfg          *config.Config
	store        *records.Store
	handler      stage.Handler
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	mu         sync.RWMutex
	running    bool
	cancel     func()
	wg         sync.WaitGroup
	lastErr    error
	lastRecord *records.Record

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs a worker manager with the default notifier.
func NewManager(cfg *config.Config, store *records.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, handler, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a worker manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *records.Store, handler stage.Handler, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		handler:      handler,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}
