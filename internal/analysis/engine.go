package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"argus/internal/blobstore"
	"argus/internal/config"
	"argus/internal/detect"
	"argus/internal/logging"
	"argus/internal/metadata"
	"argus/internal/raster"
	"argus/internal/records"
	"argus/internal/services"
	"argus/internal/stage"
)

const thumbnailMaxDim = 256

// Engine runs the detector bank over one record at a time. The image blob
// is fetched and decoded once; detectors share the decoded raster
// read-only.
type Engine struct {
	cfg       *config.Config
	blobs     blobstore.Store
	logger    *slog.Logger
	detectors []detect.Detector
	workers   int
}

// New builds the engine with the full detector bank tuned from config.
func New(cfg *config.Config, blobs blobstore.Store, logger *slog.Logger) *Engine {
	return NewWithDetectors(cfg, blobs, logger, DetectorBank(cfg)...)
}

// NewWithDetectors allows injecting custom detectors (used for tests).
func NewWithDetectors(cfg *config.Config, blobs blobstore.Store, logger *slog.Logger, detectors ...detect.Detector) *Engine {
	workers := 0
	if cfg != nil {
		workers = cfg.Analysis.DetectorWorkers
	}
	if workers <= 0 {
		workers = len(detectors)
	}
	if workers <= 0 {
		workers = 1
	}
	eng := &Engine{
		cfg:       cfg,
		blobs:     blobs,
		detectors: detectors,
		workers:   workers,
	}
	eng.SetLogger(logger)
	return eng
}

// DetectorBank constructs the five standard detectors from analysis
// config. Out-of-range tuning values fall back to each detector's default.
func DetectorBank(cfg *config.Config) []detect.Detector {
	var tuning config.Analysis
	if cfg != nil {
		tuning = cfg.Analysis
	}
	return []detect.Detector{
		detect.NewELA(tuning.ELAQuality, tuning.ELAScale),
		detect.NewCFA(tuning.CFAMethod),
		detect.NewCopyMove(tuning.CopyMoveBlockSize, tuning.CopyMoveThreshold),
		detect.NewLighting(tuning.LightingSensitivity),
		detect.NewNoise(tuning.NoiseKernelSize, tuning.NoiseScale),
	}
}

// SetLogger updates the engine's logging destination while preserving
// component labeling.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.logger = logging.WithComponent(logger, "analysis")
}

func (e *Engine) Prepare(ctx context.Context, rec *records.Record) error {
	logger := logging.WithContext(ctx, e.logger)
	if err := stage.RequireContentHash(rec); err != nil {
		return err
	}

	// Clear anything left over from a reclaimed or retried run.
	rec.ELA = records.DetectorOutcome{}
	rec.CFA = records.DetectorOutcome{}
	rec.CopyMove = records.DetectorOutcome{}
	rec.Lighting = records.DetectorOutcome{}
	rec.Noise = records.DetectorOutcome{}
	rec.OverallScore = 0
	rec.Verdict = ""
	rec.Summary = ""
	rec.DetailedFindings = ""
	rec.ErrorMessage = ""

	logger.Debug("analysis inputs validated")
	return nil
}

func (e *Engine) Execute(ctx context.Context, rec *records.Record) error {
	logger := logging.WithContext(ctx, e.logger)
	start := time.Now()

	data, err := e.blobs.Get(ctx, blobstore.ImageKey(rec.ContentHash))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return services.Wrap(
				services.ErrNotFound, "analysis", "fetch image",
				"Media file not found; upload the image and resubmit", err)
		}
		return services.Wrap(
			services.ErrTransient, "analysis", "fetch image",
			"Image blob could not be read from storage", err)
	}
	rec.FileSizeBytes = int64(len(data))

	img, err := raster.DecodeBytes(data)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "analysis", "decode image",
			"Image data is not decodable; only JPEG, PNG, and GIF are supported", err)
	}
	rec.ImageWidth = img.Width
	rec.ImageHeight = img.Height

	bank, err := e.selectDetectors(rec)
	if err != nil {
		return err
	}

	e.attachMetadata(rec, data, img, logger)
	e.storeThumbnail(ctx, rec, img, logger)

	logger.Info("starting forensic analysis",
		logging.Int("detectors", len(bank)),
		logging.Int("workers", e.workers),
		logging.Int("width", img.Width),
		logging.Int("height", img.Height),
	)

	results := e.runDetectors(ctx, bank, img, logger)
	if err := ctx.Err(); err != nil {
		return services.Wrap(
			services.ErrTransient, "analysis", "run detectors",
			"Analysis interrupted before all detectors finished", err)
	}

	scores := make(map[detect.Kind]float64, len(results))
	now := time.Now().UTC()
	for _, res := range results {
		if res == nil {
			continue
		}
		scores[res.Kind] = res.Confidence
		out := rec.Outcome(string(res.Kind))
		if out == nil {
			continue
		}
		out.Confidence = res.Confidence
		out.Count = res.Count
		out.ArtifactKey = e.storeArtifact(ctx, rec.ContentHash, res, now, logger)
	}

	rec.OverallScore = Aggregate(scores)
	rec.Verdict = VerdictFor(rec.OverallScore)
	rec.Summary = summaryText(rec)
	rec.DetailedFindings = findingsText(rec)
	rec.ProcessingMillis = time.Since(start).Milliseconds()

	logger.Info("analysis complete",
		logging.Float64("overall_score", rec.OverallScore),
		logging.String("verdict", string(rec.Verdict)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (e *Engine) HealthCheck(ctx context.Context) stage.Health {
	const name = "analysis"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if e.blobs == nil {
		return stage.Unhealthy(name, "blob store unavailable")
	}
	if len(e.detectors) == 0 {
		return stage.Unhealthy(name, "no detectors configured")
	}
	return stage.Healthy(name)
}

// selectDetectors resolves the record's requested subset against the
// bank. An empty subset selects every detector; duplicates collapse.
func (e *Engine) selectDetectors(rec *records.Record) ([]detect.Detector, error) {
	requested := rec.Detectors()
	if len(requested) == 0 {
		return e.detectors, nil
	}

	byKind := make(map[detect.Kind]detect.Detector, len(e.detectors))
	for _, det := range e.detectors {
		byKind[det.Kind()] = det
	}

	seen := make(map[detect.Kind]struct{}, len(requested))
	bank := make([]detect.Detector, 0, len(requested))
	for _, name := range requested {
		kind := detect.Kind(strings.ToLower(name))
		det, ok := byKind[kind]
		if !ok {
			return nil, services.Wrap(
				services.ErrValidation, "analysis", "select detectors",
				fmt.Sprintf("Unknown detector %q requested; valid kinds are ela, cfa, copy_move, lighting, noise", name), nil)
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		bank = append(bank, det)
	}
	return bank, nil
}

// runDetectors fans the bank out over a bounded group. Results are indexed
// by bank position; a failed or panicked detector yields a zero-confidence
// result rather than aborting the group.
func (e *Engine) runDetectors(ctx context.Context, bank []detect.Detector, img *raster.Image, logger *slog.Logger) []*detect.Result {
	results := make([]*detect.Result, len(bank))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, det := range bank {
		g.Go(func() error {
			results[i] = e.runOne(ctx, det, img, logger)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) runOne(ctx context.Context, det detect.Detector, img *raster.Image, logger *slog.Logger) (res *detect.Result) {
	kind := det.Kind()
	detLogger := logger.With(logging.String(logging.FieldDetector, string(kind)))
	defer func() {
		if r := recover(); r != nil {
			detLogger.Error("detector panicked", logging.Any("panic", r))
			res = &detect.Result{Kind: kind}
		}
	}()

	start := time.Now()
	out, err := det.Analyze(ctx, img)
	if err != nil {
		detLogger.Warn("detector failed; scoring zero", logging.Error(err))
		return &detect.Result{Kind: kind}
	}
	if out == nil {
		out = &detect.Result{Kind: kind}
	}
	detLogger.Debug("detector finished",
		logging.Float64("confidence", out.Confidence),
		logging.Int("count", out.Count),
		logging.String("summary", out.Summary),
		logging.Duration("elapsed", time.Since(start)),
	)
	return out
}

// attachMetadata stores the advisory EXIF inspection as JSON. It never
// fails the pass.
func (e *Engine) attachMetadata(rec *records.Record, data []byte, img *raster.Image, logger *slog.Logger) {
	insp := metadata.Inspect(data, img.Width, img.Height)
	raw, err := json.Marshal(insp)
	if err != nil {
		logger.Warn("failed to encode metadata inspection", logging.Error(err))
		return
	}
	rec.MetadataJSON = string(raw)
	if insp.RiskScore > 0 {
		logger.Debug("metadata inspection flagged indicators",
			logging.Int("risk_score", insp.RiskScore),
			logging.Int("indicators", len(insp.Indicators)),
		)
	}
}

// storeThumbnail renders and stores a preview image. Failure is logged and
// leaves the record without a thumbnail key.
func (e *Engine) storeThumbnail(ctx context.Context, rec *records.Record, img *raster.Image, logger *slog.Logger) {
	thumb := imaging.Fit(img.NRGBA(), thumbnailMaxDim, thumbnailMaxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		logger.Warn("failed to encode thumbnail", logging.Error(err))
		return
	}
	key := blobstore.ArtifactKey(rec.ContentHash, "thumbnail", time.Now().UTC())
	if err := e.blobs.Put(ctx, key, buf.Bytes(), "image/png"); err != nil {
		logger.Warn("failed to store thumbnail", logging.Error(err))
		return
	}
	rec.ThumbnailKey = key
}

// storeArtifact uploads a detector visualization. A missing artifact or a
// failed upload yields an empty key; the confidence still counts.
func (e *Engine) storeArtifact(ctx context.Context, hash string, res *detect.Result, at time.Time, logger *slog.Logger) string {
	if len(res.Artifact) == 0 {
		return ""
	}
	key := blobstore.ArtifactKey(hash, string(res.Kind), at)
	if err := e.blobs.Put(ctx, key, res.Artifact, "image/png"); err != nil {
		logger.Warn("failed to store detector artifact",
			logging.String(logging.FieldDetector, string(res.Kind)),
			logging.Error(err),
		)
		return ""
	}
	return key
}
