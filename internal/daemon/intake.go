package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"argus/internal/blobstore"
	"argus/internal/detect"
	"argus/internal/fileutil"
	"argus/internal/logging"
	"argus/internal/records"
	"argus/internal/services"
)

// Extensions accepted at intake. The decoder is the authority once analysis
// starts; this only rejects obvious non-images before bytes hit the store.
var imageFileExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Intake validates submissions and turns them into queued analysis records.
// It is shared between the daemon (API uploads) and the CLI (direct
// submission when no daemon is running).
type Intake struct {
	store  *records.Store
	blobs  blobstore.Store
	logger *slog.Logger
}

// NewIntake builds an Intake over the given stores.
func NewIntake(store *records.Store, blobs blobstore.Store, logger *slog.Logger) (*Intake, error) {
	if store == nil || blobs == nil {
		return nil, errors.New("intake requires record store and blob store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Intake{store: store, blobs: blobs, logger: logger}, nil
}

// Submit registers an analysis task for an image blob already present in
// storage. An existing record for the hash is returned unchanged unless
// force is set, in which case the record is removed and recreated. The
// returned bool reports whether a new record was created.
func (in *Intake) Submit(ctx context.Context, contentHash string, force bool, detectors []string) (*records.Record, bool, error) {
	hash := strings.ToLower(strings.TrimSpace(contentHash))
	if !fileutil.ValidHash(hash) {
		return nil, false, services.Wrap(services.ErrValidation, "daemon", "submit",
			fmt.Sprintf("invalid content hash %q", contentHash), nil)
	}
	return in.submit(ctx, hash, "", 0, force, detectors)
}

// AddImage stores image bytes in the blob store and submits an analysis
// task for the resulting content hash. The filename supplies the source
// path on the record and the blob content type.
func (in *Intake) AddImage(ctx context.Context, filename string, data []byte, force bool, detectors []string) (*records.Record, bool, error) {
	if len(data) == 0 {
		return nil, false, services.Wrap(services.ErrValidation, "daemon", "add image", "image data is empty", nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageFileExtensions[ext]
	if !ok {
		return nil, false, services.Wrap(services.ErrValidation, "daemon", "add image",
			fmt.Sprintf("unsupported file extension %q", ext), nil)
	}

	hash := fileutil.HashBytes(data)
	if err := in.blobs.Put(ctx, blobstore.ImageKey(hash), data, contentType); err != nil {
		return nil, false, fmt.Errorf("store image blob: %w", err)
	}
	return in.submit(ctx, hash, filename, int64(len(data)), force, detectors)
}

func (in *Intake) submit(ctx context.Context, hash, sourcePath string, fileSize int64, force bool, detectors []string) (*records.Record, bool, error) {
	subset, err := normalizeDetectorSubset(detectors)
	if err != nil {
		return nil, false, err
	}

	existing, err := in.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && !force {
		return existing, false, nil
	}
	if existing != nil {
		if _, err := in.store.RemoveByHash(ctx, hash); err != nil {
			return nil, false, fmt.Errorf("remove existing record: %w", err)
		}
	}

	rec, err := in.store.NewAnalysis(ctx, hash, sourcePath, fileSize)
	if err != nil {
		return nil, false, fmt.Errorf("create analysis record: %w", err)
	}
	if subset != "" {
		rec.DetectorSubset = subset
		if err := in.store.Update(ctx, rec); err != nil {
			return nil, false, fmt.Errorf("persist detector subset: %w", err)
		}
	}

	in.logger.Info("analysis task queued",
		logging.Int64(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldContentHash, rec.ContentHash),
		logging.Bool("force", force))
	return rec, true, nil
}

// Submit registers an analysis task for an already-stored image blob.
func (d *Daemon) Submit(ctx context.Context, contentHash string, force bool, detectors []string) (*records.Record, bool, error) {
	if d.intake == nil {
		return nil, false, errors.New("intake unavailable")
	}
	return d.intake.Submit(ctx, contentHash, force, detectors)
}

// AddImage stores image bytes and queues analysis for them.
func (d *Daemon) AddImage(ctx context.Context, filename string, data []byte, force bool, detectors []string) (*records.Record, bool, error) {
	if d.intake == nil {
		return nil, false, errors.New("intake unavailable")
	}
	return d.intake.AddImage(ctx, filename, data, force, detectors)
}

// normalizeDetectorSubset validates and canonicalizes a requested detector
// list into the comma-separated form stored on the record. An empty list
// selects the full bank.
func normalizeDetectorSubset(kinds []string) (string, error) {
	if len(kinds) == 0 {
		return "", nil
	}
	known := make(map[string]struct{})
	for _, kind := range detect.Kinds() {
		known[string(kind)] = struct{}{}
	}

	out := make([]string, 0, len(kinds))
	seen := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		cleaned := strings.ToLower(strings.TrimSpace(kind))
		if cleaned == "" {
			continue
		}
		if _, ok := known[cleaned]; !ok {
			return "", services.Wrap(services.ErrValidation, "daemon", "submit",
				fmt.Sprintf("unknown detector %q", kind), nil)
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return strings.Join(out, ","), nil
}
