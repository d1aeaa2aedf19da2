package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"argus/internal/analysis"
	"argus/internal/blobstore"
	"argus/internal/config"
	"argus/internal/daemon"
	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/testsupport"
	"argus/internal/worker"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *records.Store
	configPath string
	baseDir    string
}

// setupCLITestEnv prepares a config file, record store, and redirected HOME
// for CLI runs. No daemon is started; commands take their direct-store
// paths unless the test starts one with startTestDaemon.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(homeDir, ".config", "argus", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}
}

// startTestDaemon runs a full daemon against the env's store and returns the
// API address it is listening on.
func startTestDaemon(t *testing.T, env *cliTestEnv) string {
	t.Helper()

	logger := logging.NewNop()
	blobs, err := blobstore.FromConfig(context.Background(), env.cfg)
	if err != nil {
		t.Fatalf("blobstore.FromConfig: %v", err)
	}
	engine := analysis.New(env.cfg, blobs, logger)
	mgr := worker.NewManager(env.cfg, env.store, engine, logger)

	d, err := daemon.New(env.cfg, env.store, blobs, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Close()
	})

	return d.APIAddr()
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--api", apiAddr}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[storage]\nbackend = %q\nfilesystem_root = %q\n",
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Storage.Backend,
		cfg.Storage.FilesystemRoot,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
