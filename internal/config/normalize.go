package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendFilesystem
	}
	var err error
	if c.Storage.FilesystemRoot, err = expandPath(c.Storage.FilesystemRoot); err != nil {
		return fmt.Errorf("storage.filesystem_root: %w", err)
	}
	c.Storage.MinioEndpoint = strings.TrimSpace(c.Storage.MinioEndpoint)
	if c.Storage.MinioAccessKey == "" {
		if value, ok := os.LookupEnv("MINIO_ACCESS_KEY"); ok {
			c.Storage.MinioAccessKey = strings.TrimSpace(value)
		}
	}
	if c.Storage.MinioSecretKey == "" {
		if value, ok := os.LookupEnv("MINIO_SECRET_KEY"); ok {
			c.Storage.MinioSecretKey = strings.TrimSpace(value)
		}
	}
	c.Storage.MinioBucket = strings.TrimSpace(c.Storage.MinioBucket)
	if c.Storage.MinioBucket == "" {
		c.Storage.MinioBucket = defaultMinioBucket
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.CFAMethod = strings.ToUpper(strings.TrimSpace(c.Analysis.CFAMethod))
	if c.Analysis.CFAMethod == "" {
		c.Analysis.CFAMethod = CFAMethodLaplacian
	}
	if c.Analysis.DetectorWorkers == 0 {
		c.Analysis.DetectorWorkers = defaultDetectorWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
