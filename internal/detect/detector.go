package detect

import (
	"context"

	"argus/internal/raster"
)

// Kind identifies one of the traditional forensic detectors.
type Kind string

const (
	KindELA      Kind = "ela"
	KindCFA      Kind = "cfa"
	KindCopyMove Kind = "copy_move"
	KindLighting Kind = "lighting"
	KindNoise    Kind = "noise"
)

// Kinds lists every detector in aggregation order.
func Kinds() []Kind {
	return []Kind{KindELA, KindCFA, KindCopyMove, KindLighting, KindNoise}
}

// Result is the outcome of a single detector pass over one image.
type Result struct {
	Kind       Kind
	Confidence float64 // 0-100
	Count      int     // regions, block pairs, or inconsistencies, depending on the detector
	Summary    string
	Notes      []string
	Artifact   []byte // PNG visualization
}

// Detector analyzes a decoded image for one class of manipulation. The
// image is shared read-only between concurrently running detectors and
// must not be written.
type Detector interface {
	Kind() Kind
	Analyze(ctx context.Context, img *raster.Image) (*Result, error)
}
