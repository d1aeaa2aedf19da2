// Package daemonctl orchestrates the daemon process from the CLI: launching
// a detached daemon, waiting for its API, stopping it, and assembling status
// snapshots with offline fallbacks when no daemon is reachable.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"argus/internal/api"
	"argus/internal/config"
	"argus/internal/daemonrun"
	"argus/internal/preflight"
	"argus/internal/records"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// ErrDaemonNotRunning indicates no daemon process answers on the API bind.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached argus daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI waits for the daemon API to answer and returns a connected client.
func WaitForAPI(addr string, timeout time.Duration) (*api.Client, error) {
	client := api.NewClient(addr)
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Ping(pingCtx)
		cancel()
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon when its API is unreachable and reports
// the resulting state.
func EnsureStarted(addr, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if reachable(addr) {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if _, err := WaitForAPI(addr, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown waits for the daemon API to stop answering.
func WaitForShutdown(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !reachable(addr) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop: still answering on %s", addr)
}

// ProcessInfo reports whether a daemon answers on addr and its PID when known.
// When the API is unreachable it falls back to the pid file.
func ProcessInfo(addr string, cfg *config.Config) (bool, int, error) {
	client := api.NewClient(addr)
	statusCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if status, err := client.Status(statusCtx); err == nil {
		return true, status.PID, nil
	}
	pid, err := readPIDFile(pidFilePath(cfg))
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			return false, 0, nil
		}
		return false, 0, err
	}
	if !processAlive(pid) {
		return false, 0, nil
	}
	return true, pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// StopAndTerminate signals the daemon process to shut down and force-kills it
// if still alive after gracePeriod.
func StopAndTerminate(addr string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pidPath := pidFilePath(cfg)
	lockPath := lockFilePath(cfg)

	pid := 0
	client := api.NewClient(addr)
	statusCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	status, statusErr := client.Status(statusCtx)
	cancel()
	if statusErr == nil {
		pid = status.PID
		if status.LockFilePath != "" {
			lockPath = status.LockFilePath
			pidPath = filepath.Join(filepath.Dir(status.LockFilePath), "argusd.pid")
		}
	} else {
		filePID, err := readPIDFile(pidPath)
		if err != nil {
			return StopResult{}, err
		}
		pid = filePID
	}

	if pid <= 0 {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to stop current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		removeStateFiles(pidPath, "")
		return StopResult{}, ErrDaemonNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if waitErr := WaitForShutdown(addr, gracePeriod); waitErr == nil && !processAlive(pid) {
		return result, nil
	}
	if !processAlive(pid) {
		return result, nil
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	removeStateFiles(pidPath, lockPath)
	result.ForcedKill = true
	return result, nil
}

// StatusSnapshot retrieves daemon status over the API, falling back to a
// locally composed snapshot (record stats plus preflight checks) when no
// daemon answers.
func StatusSnapshot(ctx context.Context, addr string, cfg *config.Config) (*api.DaemonStatus, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}

	client := api.NewClient(addr)
	statusCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if status, err := client.Status(statusCtx); err == nil {
		return status, nil
	}

	status := &api.DaemonStatus{
		Running:       false,
		RecordsDBPath: filepath.Join(cfg.Paths.LogDir, "records.db"),
		LockFilePath:  lockFilePath(cfg),
	}

	queryCtx, queryCancel := context.WithTimeout(ctx, 2*time.Second)
	defer queryCancel()
	if store, err := records.Open(cfg); err == nil {
		if stats, statsErr := store.Stats(queryCtx); statsErr == nil {
			counts := make(map[string]int, len(stats))
			for recordStatus, count := range stats {
				counts[string(recordStatus)] = count
			}
			status.Worker.RecordStats = counts
		}
		_ = store.Close()
	}

	checks := preflight.RunAll(queryCtx, cfg)
	checks = append(checks, preflight.CheckNotificationsFromConfig(cfg))
	status.Preflight = make([]api.PreflightResult, 0, len(checks))
	for _, check := range checks {
		status.Preflight = append(status.Preflight, api.PreflightResult{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		})
	}
	return status, nil
}

func reachable(addr string) bool {
	client := api.NewClient(addr)
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return client.Ping(pingCtx) == nil
}

func pidFilePath(cfg *config.Config) string {
	return daemonrun.PIDFilePath(cfg)
}

func lockFilePath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "argusd.lock")
}

func readPIDFile(path string) (int, error) {
	if path == "" {
		return 0, ErrDaemonNotRunning
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDaemonNotRunning
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	pid, parseErr := strconv.Atoi(value)
	if parseErr != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q holds invalid pid %q", path, value)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func removeStateFiles(pidPath, lockPath string) {
	if pidPath != "" {
		_ = os.Remove(pidPath)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
}
