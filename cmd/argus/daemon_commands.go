package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"argus/internal/api"
	"argus/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the argus daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.apiAddr(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the argus daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.apiAddr(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and analysis queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := daemonctl.StatusSnapshot(cmd.Context(), ctx.apiAddr(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snapshot)
			}

			stdout := cmd.OutOrStdout()
			renderDaemonStatus(stdout, snapshot, shouldColorize(stdout))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderDaemonStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Argus", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		workerKind, workerDetail := statusWarn, "Stopped"
		if status.Worker.Running {
			workerKind, workerDetail = statusOK, "Processing queue"
		}
		fmt.Fprintln(out, renderStatusLine("Worker", workerKind, workerDetail, colorize))
		if status.Worker.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("Last Error", statusError, status.Worker.LastError, colorize))
		}
		if last := status.Worker.LastRecord; last != nil {
			detail := fmt.Sprintf("#%d %s (%s)", last.ID, formatHash(last.ContentHash), formatStatusLabel(last.Status))
			fmt.Fprintln(out, renderStatusLine("Last Record", statusInfo, detail, colorize))
		}
		for _, health := range status.Worker.StageHealth {
			kind, detail := statusOK, "Ready"
			if !health.Ready {
				kind = statusError
				detail = health.Detail
				if detail == "" {
					detail = "not ready"
				}
			}
			fmt.Fprintln(out, renderStatusLine(formatStatusLabel(health.Name), kind, detail, colorize))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("Argus", statusWarn, "Not running (run `argus start`)", colorize))
	}

	if len(status.Preflight) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Checks", colorize) {
			fmt.Fprintln(out, line)
		}
		for _, check := range status.Preflight {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Analysis Records", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildRecordStatsRows(status.Worker.RecordStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No analysis records")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate argus executable: %w", err)
	}
	return exe, nil
}
