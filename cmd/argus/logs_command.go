package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"argus/internal/api"
	"argus/internal/logs"
)

const followWaitMillis = 2000

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		Long: `Show recent lines from the daemon log file.

With --follow the command keeps polling for new lines until interrupted.
When a daemon is running the log is read through its API, so logs works
from any process that can reach the daemon; otherwise the file under the
configured log directory is read directly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the daemon API if a daemon is running
			if client := ctx.dialClient(); client != nil {
				return tailViaClient(cmd, client, lines, follow)
			}

			// Read the log file directly
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(cfg.Paths.LogDir)
			if dir == "" {
				return fmt.Errorf("log directory not configured")
			}
			return tailViaFile(cmd, filepath.Join(dir, "argus.log"), lines, follow)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new log lines")
	return cmd
}

func tailViaClient(cmd *cobra.Command, client *api.Client, lines int, follow bool) error {
	out := cmd.OutOrStdout()

	resp, err := client.LogTail(cmd.Context(), -1, lines, 0)
	if err != nil {
		return err
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}

	offset := resp.Offset
	for {
		resp, err := client.LogTail(cmd.Context(), offset, 0, followWaitMillis)
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(out, line)
		}
		offset = resp.Offset

		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}

func tailViaFile(cmd *cobra.Command, path string, lines int, follow bool) error {
	out := cmd.OutOrStdout()

	result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	for _, line := range result.Lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}

	offset := result.Offset
	for {
		result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
			Offset: offset,
			Follow: true,
			Wait:   followWaitMillis * time.Millisecond,
		})
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		for _, line := range result.Lines {
			fmt.Fprintln(out, line)
		}
		offset = result.Offset

		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}
