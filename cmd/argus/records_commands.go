package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"argus/internal/api"
	"argus/internal/fileutil"
	"argus/internal/records"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and manage analysis records",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsClearCommand(ctx))
	recordsCmd.AddCommand(newRecordsRetryCommand(ctx))
	recordsCmd.AddCommand(newRecordsResetCommand(ctx))
	recordsCmd.AddCommand(newRecordsHealthCommand(ctx))

	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var listJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(client *api.Client, store *records.Store) error {
				var recs []api.AnalysisRecord
				if client != nil {
					// Use the daemon API if a daemon is running
					var err error
					recs, err = client.Records(cmd.Context(), listStatuses)
					if err != nil {
						return err
					}
				} else {
					// Use direct store access
					var statuses []records.Status
					for _, statusStr := range listStatuses {
						statuses = append(statuses, records.Status(statusStr))
					}
					stored, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					recs = api.FromRecords(stored)
				}

				if listJSON {
					return writeJSON(cmd, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No analysis records")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Hash", "Status", "Verdict", "Score", "Created"},
					buildRecordListRows(recs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by record status (repeatable)")
	cmd.Flags().BoolVar(&listJSON, "json", false, "Emit records as JSON")
	return cmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var showJSON bool

	cmd := &cobra.Command{
		Use:   "show <content-hash>",
		Short: "Show one analysis record in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentHash := strings.ToLower(strings.TrimSpace(args[0]))
			if !fileutil.ValidHash(contentHash) {
				return fmt.Errorf("invalid content hash %q", args[0])
			}

			return ctx.withStore(func(client *api.Client, store *records.Store) error {
				var rec *api.AnalysisRecord
				if client != nil {
					// Use the daemon API if a daemon is running
					var err error
					rec, err = client.Record(cmd.Context(), contentHash)
					if err != nil {
						return err
					}
				} else {
					// Use direct store access
					stored, err := store.GetByHash(cmd.Context(), contentHash)
					if err != nil {
						return err
					}
					if stored != nil {
						converted := api.FromRecord(stored)
						rec = &converted
					}
				}
				if rec == nil {
					return fmt.Errorf("no record found for %s", contentHash)
				}

				if showJSON {
					return writeJSON(cmd, rec)
				}
				stdout := cmd.OutOrStdout()
				renderRecordDetail(stdout, rec, shouldColorize(stdout))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showJSON, "json", false, "Emit the record as JSON")
	return cmd
}

func renderRecordDetail(out io.Writer, rec *api.AnalysisRecord, colorize bool) {
	for _, line := range renderSectionHeader(fmt.Sprintf("Record #%d", rec.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	writeDetailLine(out, "Hash", rec.ContentHash)
	writeDetailLine(out, "Status", formatStatusLabel(rec.Status))
	writeDetailLine(out, "Verdict", formatVerdict(rec.Verdict))
	if rec.Verdict != "" {
		writeDetailLine(out, "Score", fmt.Sprintf("%.1f", rec.OverallScore))
	}
	if rec.SourcePath != "" {
		writeDetailLine(out, "Source", rec.SourcePath)
	}
	if rec.ImageWidth > 0 && rec.ImageHeight > 0 {
		writeDetailLine(out, "Dimensions", fmt.Sprintf("%dx%d", rec.ImageWidth, rec.ImageHeight))
	}
	if rec.FileSizeBytes > 0 {
		writeDetailLine(out, "File Size", formatByteSize(rec.FileSizeBytes))
	}
	if rec.ProcessingMillis > 0 {
		writeDetailLine(out, "Processing", fmt.Sprintf("%dms", rec.ProcessingMillis))
	}
	if rec.DetectorSubset != "" {
		writeDetailLine(out, "Detectors", rec.DetectorSubset)
	}
	writeDetailLine(out, "Created", formatDisplayTime(rec.CreatedAt))
	writeDetailLine(out, "Updated", formatDisplayTime(rec.UpdatedAt))
	if rec.NeedsReview {
		reason := rec.ReviewReason
		if reason == "" {
			reason = "flagged for review"
		}
		writeDetailLine(out, "Needs Review", reason)
	}
	if rec.ErrorMessage != "" {
		writeDetailLine(out, "Error", rec.ErrorMessage)
	}
	if rec.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, rec.Summary)
	}

	if rec.Verdict != "" && len(rec.Detectors) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Detectors", colorize) {
			fmt.Fprintln(out, line)
		}
		table := renderTable(
			[]string{"Detector", "Confidence", "Findings", "Artifact"},
			buildDetectorRows(rec.Detectors),
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
		)
		fmt.Fprint(out, table)
	}

	if rec.DetailedFindings != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, rec.DetailedFindings)
	}
}

func writeDetailLine(out io.Writer, label, value string) {
	fmt.Fprintf(out, "%-14s %s\n", label, value)
}

func newRecordsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove analysis records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withLocalStore(func(store *records.Store) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = store.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed records\n", removed)
				case clearFailed:
					removed, err = store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed records\n", removed)
				default:
					removed, err = store.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d analysis records\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed records")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed records")
	return cmd
}

func newRecordsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id|content-hash ...]",
		Short: "Retry failed analysis records",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocalStore(func(store *records.Store) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed records\n", updated)
					return nil
				}

				for _, arg := range args {
					rec, err := resolveRecordArg(cmd, store, arg)
					if err != nil {
						return err
					}
					if rec == nil {
						fmt.Fprintf(out, "Record %s not found\n", arg)
						continue
					}
					if rec.Status != records.StatusFailed {
						fmt.Fprintf(out, "Record #%d is not in failed state\n", rec.ID)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), rec.ID)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Record #%d reset for retry\n", rec.ID)
					} else {
						fmt.Fprintf(out, "Record #%d is not in failed state\n", rec.ID)
					}
				}
				return nil
			})
		},
	}
}

// resolveRecordArg looks a record up by numeric ID or content hash. A nil
// record with nil error means no match.
func resolveRecordArg(cmd *cobra.Command, store *records.Store, arg string) (*records.Record, error) {
	trimmed := strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return store.GetByID(cmd.Context(), id)
	}
	lowered := strings.ToLower(trimmed)
	if fileutil.ValidHash(lowered) {
		return store.GetByHash(cmd.Context(), lowered)
	}
	return nil, fmt.Errorf("invalid record id or content hash %q", arg)
}

func newRecordsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight records to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocalStore(func(store *records.Store) error {
				updated, err := store.ResetStuckProcessing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d records\n", updated)
				return nil
			})
		},
	}
}

func newRecordsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check record database health (schema, integrity, counts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocalStore(func(store *records.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Completed,
				)

				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database path: %s\n", db.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(db.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(db.DatabaseReadable))
				fmt.Fprintf(out, "analysis_records table present: %s\n", yesNo(db.TableExists))
				if len(db.MissingColumns) > 0 {
					missing := append([]string(nil), db.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(db.IntegrityCheck))
				if db.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", db.Error)
				}
				return nil
			})
		},
	}
}
