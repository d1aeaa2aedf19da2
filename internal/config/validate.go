package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendFilesystem:
		if strings.TrimSpace(c.Storage.FilesystemRoot) == "" {
			return errors.New("storage.filesystem_root must be set when storage.backend is \"filesystem\"")
		}
	case StorageBackendMinio:
		if strings.TrimSpace(c.Storage.MinioEndpoint) == "" {
			return errors.New("storage.minio_endpoint must be set when storage.backend is \"minio\"")
		}
		if strings.TrimSpace(c.Storage.MinioAccessKey) == "" || strings.TrimSpace(c.Storage.MinioSecretKey) == "" {
			return errors.New("storage.minio_access_key and storage.minio_secret_key must be set (or MINIO_ACCESS_KEY / MINIO_SECRET_KEY env vars)")
		}
		if strings.TrimSpace(c.Storage.MinioBucket) == "" {
			return errors.New("storage.minio_bucket must be set when storage.backend is \"minio\"")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			StorageBackendFilesystem, StorageBackendMinio, c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if err := ensurePositiveMap(map[string]int{
		"analysis.detector_workers":     c.Analysis.DetectorWorkers,
		"analysis.ela_quality":          c.Analysis.ELAQuality,
		"analysis.ela_scale":            c.Analysis.ELAScale,
		"analysis.copy_move_block_size": c.Analysis.CopyMoveBlockSize,
		"analysis.noise_kernel_size":    c.Analysis.NoiseKernelSize,
		"analysis.noise_scale":          c.Analysis.NoiseScale,
	}); err != nil {
		return err
	}
	if c.Analysis.ELAQuality > 100 {
		return errors.New("analysis.ela_quality must be between 1 and 100")
	}
	if c.Analysis.CFAMethod != CFAMethodLaplacian && c.Analysis.CFAMethod != CFAMethodGradient {
		return fmt.Errorf("analysis.cfa_method must be %q or %q, got %q",
			CFAMethodLaplacian, CFAMethodGradient, c.Analysis.CFAMethod)
	}
	if c.Analysis.CopyMoveThreshold <= 0 {
		return errors.New("analysis.copy_move_threshold must be positive")
	}
	if c.Analysis.LightingSensitivity < 1 || c.Analysis.LightingSensitivity > 10 {
		return errors.New("analysis.lighting_sensitivity must be between 1 and 10")
	}
	if c.Analysis.NoiseKernelSize%2 == 0 {
		return errors.New("analysis.noise_kernel_size must be odd")
	}
	if c.Analysis.RetentionDays < 0 {
		return errors.New("analysis.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
