package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"argus/internal/api"
	"argus/internal/blobstore"
	"argus/internal/daemon"
	"argus/internal/fileutil"
	"argus/internal/logging"
	"argus/internal/records"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		force     bool
		detectors []string
	)

	cmd := &cobra.Command{
		Use:   "analyze <image|content-hash>",
		Short: "Queue an image for forensic analysis",
		Long: `Queue an image for forensic analysis.

The argument is either a path to an image file, which is stored and queued,
or the content hash of a previously stored image to reanalyze.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := strings.TrimSpace(args[0])
			if fileutil.ValidHash(strings.ToLower(arg)) {
				return runAnalyzeHash(cmd, ctx, strings.ToLower(arg), force, detectors)
			}
			return runAnalyzeFile(cmd, ctx, arg, force, detectors)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reanalyze even when a record for the image already exists")
	cmd.Flags().StringSliceVar(&detectors, "detectors", nil, "Restrict analysis to the named detectors (e.g. ela,noise)")
	return cmd
}

func runAnalyzeHash(cmd *cobra.Command, ctx *commandContext, contentHash string, force bool, detectors []string) error {
	return ctx.withStore(func(client *api.Client, store *records.Store) error {
		if client != nil {
			resp, err := client.Submit(cmd.Context(), api.SubmitRequest{
				ContentHash: contentHash,
				Force:       force,
				Detectors:   detectors,
			})
			if err != nil {
				return err
			}
			printAnalyzeResult(cmd, resp.Record.ID, formatHash(contentHash), resp.Record.Status, resp.Created)
			return nil
		}

		blobs, intake, err := offlineIntake(cmd, ctx, store)
		if err != nil {
			return err
		}
		if _, err := blobs.Get(cmd.Context(), blobstore.ImageKey(contentHash)); err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return fmt.Errorf("no stored image for hash %s", contentHash)
			}
			return err
		}
		record, created, err := intake.Submit(cmd.Context(), contentHash, force, detectors)
		if err != nil {
			return err
		}
		printAnalyzeResult(cmd, record.ID, formatHash(contentHash), string(record.Status), created)
		return nil
	})
}

func runAnalyzeFile(cmd *cobra.Command, ctx *commandContext, path string, force bool, detectors []string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist: %s", absPath)
		}
		return fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	return ctx.withStore(func(client *api.Client, store *records.Store) error {
		if client != nil {
			resp, err := client.Upload(cmd.Context(), filepath.Base(absPath), data, force, detectors)
			if err != nil {
				return err
			}
			printAnalyzeResult(cmd, resp.Record.ID, filepath.Base(absPath), resp.Record.Status, resp.Created)
			return nil
		}

		_, intake, err := offlineIntake(cmd, ctx, store)
		if err != nil {
			return err
		}
		record, created, err := intake.AddImage(cmd.Context(), filepath.Base(absPath), data, force, detectors)
		if err != nil {
			return err
		}
		printAnalyzeResult(cmd, record.ID, filepath.Base(absPath), string(record.Status), created)
		return nil
	})
}

// offlineIntake builds the same submission pipeline the daemon uses, backed
// by the local record store, for use when no daemon is running.
func offlineIntake(cmd *cobra.Command, ctx *commandContext, store *records.Store) (blobstore.Store, *daemon.Intake, error) {
	blobs, err := blobstore.FromConfig(cmd.Context(), ctx.configValue())
	if err != nil {
		return nil, nil, err
	}
	intake, err := daemon.NewIntake(store, blobs, logging.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return blobs, intake, nil
}

func printAnalyzeResult(cmd *cobra.Command, recordID int64, label, status string, created bool) {
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Queued analysis #%d (%s)\n", recordID, label)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Already analyzed as record #%d (status %s); use --force to reanalyze\n", recordID, status)
}
