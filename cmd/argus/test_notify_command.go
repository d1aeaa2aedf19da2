package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"argus/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			// Route through the daemon when one is running so the test
			// exercises the same process that sends workflow notifications.
			if client := ctx.dialClient(); client != nil {
				resp, err := client.TestNotification(cmd.Context())
				if err != nil {
					return err
				}
				switch {
				case resp.Detail != "":
					fmt.Fprintln(stdout, resp.Detail)
				case resp.Sent:
					fmt.Fprintln(stdout, "Test notification sent")
				default:
					fmt.Fprintln(stdout, "Notification not sent")
				}
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(stdout, "ntfy topic not configured")
				return nil
			}
			notifier := notifications.NewService(cfg)
			if err := notifier.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Test notification sent")
			return nil
		},
	}
}
