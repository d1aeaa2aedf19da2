package detect

import (
	"context"
	"fmt"
	"math"
	"strings"

	"argus/internal/raster"
)

// Lighting inconsistency types.
const (
	InconsistencyBrightness = "BRIGHTNESS"
	InconsistencyContrast   = "CONTRAST"
	InconsistencyColorTemp  = "COLOR_TEMPERATURE"
)

// Lighting checks whether illumination statistics stay coherent across the
// image. Overlapping regions are profiled for brightness, contrast, color
// balance, and gradient direction; region pairs whose statistics diverge
// beyond sensitivity-scaled thresholds are flagged, with spatially close
// pairs held to a stricter standard.
type Lighting struct {
	sensitivity int
}

// NewLighting returns a lighting consistency detector. Sensitivity runs
// from 1 (lenient) to 10 (strict); out-of-range values fall back to 3.
func NewLighting(sensitivity int) *Lighting {
	if sensitivity < 1 || sensitivity > 10 {
		sensitivity = 3
	}
	return &Lighting{sensitivity: sensitivity}
}

// Kind implements Detector.
func (d *Lighting) Kind() Kind { return KindLighting }

// Analyze implements Detector.
func (d *Lighting) Analyze(ctx context.Context, img *raster.Image) (*Result, error) {
	regions := d.collectRegions(img)
	incs := d.findInconsistencies(regions)

	viz := d.visualize(img, regions, incs)
	artifact, err := raster.EncodePNG(viz)
	if err != nil {
		return nil, fmt.Errorf("encode lighting image: %w", err)
	}

	confidence := lightingConfidence(len(incs), len(regions))
	notes := make([]string, 0, len(incs))
	for _, inc := range incs {
		notes = append(notes, inc.description)
	}

	return &Result{
		Kind:       KindLighting,
		Confidence: confidence,
		Count:      len(incs),
		Summary:    lightingSummary(len(incs), len(regions), confidence),
		Notes:      notes,
		Artifact:   artifact,
	}, nil
}

type lightRegion struct {
	centerX, centerY int
	brightness       float64
	contrast         float64
	color            [3]float64
	gradX, gradY     int
}

type lightInconsistency struct {
	kind        string
	a, b        int // indices into the region slice
	severity    float64
	description string
}

// collectRegions profiles an overlapping grid. The region size adapts to
// the image so large photos are not drowned in tiny samples.
func (d *Lighting) collectRegions(img *raster.Image) []lightRegion {
	size := min(img.Width, img.Height) / 8
	if size < 64 {
		size = 64
	}
	step := size / 2

	var regions []lightRegion
	for y := 0; y < img.Height-size; y += step {
		for x := 0; x < img.Width-size; x += step {
			regions = append(regions, d.profileRegion(img, x, y, size))
		}
	}
	return regions
}

func (d *Lighting) profileRegion(img *raster.Image, startX, startY, size int) lightRegion {
	var sumB float64
	var sumC [3]float64
	n := size * size

	for y := startY; y < startY+size; y++ {
		i := img.PixOffset(startX, y)
		for x := 0; x < size; x++ {
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			b := float64(img.Pix[i+2])
			sumB += 0.299*r + 0.587*g + 0.114*b
			sumC[0] += r
			sumC[1] += g
			sumC[2] += b
			i += 3
		}
	}
	mean := sumB / float64(n)

	var variance float64
	for y := startY; y < startY+size; y++ {
		for x := startX; x < startX+size; x++ {
			diff := img.Luminance(x, y) - mean
			variance += diff * diff
		}
	}
	variance /= float64(n)

	gradX, gradY := lightingDirection(img, startX, startY, size)

	return lightRegion{
		centerX:    startX + size/2,
		centerY:    startY + size/2,
		brightness: mean,
		contrast:   math.Sqrt(variance),
		color:      [3]float64{sumC[0] / float64(n), sumC[1] / float64(n), sumC[2] / float64(n)},
		gradX:      gradX,
		gradY:      gradY,
	}
}

// lightingDirection averages central-difference brightness gradients over
// the region interior to estimate where the light falls from.
func lightingDirection(img *raster.Image, startX, startY, size int) (int, int) {
	var gx, gy float64
	count := 0
	for y := startY + 1; y < startY+size-1 && y < img.Height-1; y++ {
		for x := startX + 1; x < startX+size-1 && x < img.Width-1; x++ {
			gx += img.Luminance(x+1, y) - img.Luminance(x-1, y)
			gy += img.Luminance(x, y+1) - img.Luminance(x, y-1)
			count++
		}
	}
	if count > 0 {
		gx /= float64(count)
		gy /= float64(count)
	}
	return int(gx), int(gy)
}

func (d *Lighting) findInconsistencies(regions []lightRegion) []lightInconsistency {
	if len(regions) < 2 {
		return nil
	}

	s := float64(d.sensitivity)
	brightnessThreshold := math.Max(30, 80-s*5)
	contrastThreshold := math.Max(20, 50-s*3)
	colorThreshold := math.Max(25, 60-s*3.5)

	var incs []lightInconsistency
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]

			distance := math.Hypot(float64(a.centerX-b.centerX), float64(a.centerY-b.centerY))
			// Nearby regions should agree; distant ones get slack.
			factor := math.Max(0.5, math.Min(2.0, distance/200))

			if diff := math.Abs(a.brightness - b.brightness); diff > brightnessThreshold*factor {
				incs = append(incs, lightInconsistency{
					kind: InconsistencyBrightness, a: i, b: j, severity: diff,
					description: fmt.Sprintf("Significant brightness difference: %.2f (threshold: %.2f)",
						diff, brightnessThreshold*factor),
				})
			}
			if diff := math.Abs(a.contrast - b.contrast); diff > contrastThreshold*factor {
				incs = append(incs, lightInconsistency{
					kind: InconsistencyContrast, a: i, b: j, severity: diff,
					description: fmt.Sprintf("Significant contrast difference: %.2f (threshold: %.2f)",
						diff, contrastThreshold*factor),
				})
			}
			if diff := colorDifference(a.color, b.color); diff > colorThreshold*factor {
				incs = append(incs, lightInconsistency{
					kind: InconsistencyColorTemp, a: i, b: j, severity: diff,
					description: fmt.Sprintf("Significant color temperature difference: %.2f (threshold: %.2f)",
						diff, colorThreshold*factor),
				})
			}
		}
	}
	return incs
}

func colorDifference(a, b [3]float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func lightingConfidence(inconsistencies, totalRegions int) float64 {
	if totalRegions == 0 {
		return 0
	}
	ratio := float64(inconsistencies) / float64(totalRegions)
	switch {
	case ratio > 0.5:
		return math.Min(100, 50+(ratio-0.5)*100)
	case ratio > 0.2:
		return ratio * 125
	default:
		return ratio * 50
	}
}

// visualize dims the original and overlays brightness-coded region markers
// plus a line per inconsistent pair, colored by inconsistency type.
func (d *Lighting) visualize(img *raster.Image, regions []lightRegion, incs []lightInconsistency) *raster.Image {
	out := raster.NewImage(img.Width, img.Height)
	for i, v := range img.Pix {
		out.Pix[i] = uint8(float64(v) * 0.7)
	}

	for _, r := range regions {
		brightness := int(math.Min(255, r.brightness))
		c := raster.RGB{R: uint8(255 - brightness), G: uint8(brightness), B: 128}
		raster.FillCircle(out, r.centerX, r.centerY, 10, c, 100.0/255.0)
	}

	for _, inc := range incs {
		var c raster.RGB
		switch inc.kind {
		case InconsistencyBrightness:
			c = raster.Red
		case InconsistencyContrast:
			c = raster.Orange
		case InconsistencyColorTemp:
			c = raster.Yellow
		default:
			c = raster.Magenta
		}
		a := regions[inc.a]
		b := regions[inc.b]
		raster.DrawLine(out, a.centerX, a.centerY, b.centerX, b.centerY, 3, c)
	}
	return out
}

func lightingSummary(inconsistencies, totalRegions int, confidence float64) string {
	var b strings.Builder
	b.WriteString("Lighting Analysis Results:\n")
	fmt.Fprintf(&b, "- Analyzed regions: %d\n", totalRegions)
	fmt.Fprintf(&b, "- Lighting inconsistencies found: %d\n", inconsistencies)
	fmt.Fprintf(&b, "- Confidence score: %.1f/100\n", confidence)

	ratio := 0.0
	if totalRegions > 0 {
		ratio = float64(inconsistencies) / float64(totalRegions)
	}
	switch {
	case inconsistencies == 0:
		b.WriteString("- Assessment: No lighting inconsistencies detected - image appears authentic")
	case ratio < 0.1:
		b.WriteString("- Assessment: Very few lighting inconsistencies - likely natural lighting variation")
	case ratio < 0.3:
		b.WriteString("- Assessment: Some lighting inconsistencies detected - requires further investigation")
	case ratio < 0.6:
		b.WriteString("- Assessment: Significant lighting inconsistencies suggest possible manipulation")
	default:
		b.WriteString("- Assessment: Extensive lighting inconsistencies indicate likely manipulation")
	}
	return b.String()
}
