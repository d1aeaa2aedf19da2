// Package metadata inspects EXIF metadata as a supplemental forensic
// signal. The resulting risk score is advisory context stored alongside
// the pixel-level results; it never feeds the weighted detector
// aggregate.
package metadata

import (
	"fmt"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
)

// Risk point classes. Individual indicators contribute one class each;
// the total is capped at 100.
const (
	riskTamper = 40
	riskAI     = 35
	riskMedium = 15
	riskLow    = 8
	riskMinor  = 3

	maxRiskScore = 100
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Inspection summarizes the EXIF surface of an image together with a
// heuristic tamper-risk read.
type Inspection struct {
	CameraMake  string   `json:"cameraMake,omitempty"`
	CameraModel string   `json:"cameraModel,omitempty"`
	Software    string   `json:"software,omitempty"`
	CaptureTime string   `json:"captureTime,omitempty"`
	HasGPS      bool     `json:"hasGps"`
	TagCount    int      `json:"tagCount"`
	Indicators  []string `json:"indicators,omitempty"`
	RiskScore   int      `json:"riskScore"`
	Conclusion  string   `json:"conclusion"`
}

// Inspect parses whatever EXIF the payload carries and scores heuristic
// tamper indicators against the decoded pixel dimensions. It never
// fails: absent or unreadable EXIF is itself a signal and feeds the
// score.
func Inspect(data []byte, width, height int) *Inspection {
	insp := &Inspection{}
	rawText := insp.extractTags(data)
	insp.assess(width, height, rawText, time.Now())
	return insp
}

// extractTags pulls the fields the heuristics care about and returns
// the lowercased concatenation of every formatted tag value for
// signature scanning.
func (insp *Inspection) extractTags(data []byte) string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return ""
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return ""
	}

	insp.TagCount = len(entries)
	var raw strings.Builder
	for _, entry := range entries {
		raw.WriteString(strings.ToLower(entry.Formatted))
		raw.WriteByte(' ')

		switch entry.TagName {
		case "Make":
			insp.CameraMake = entry.Formatted
		case "Model":
			insp.CameraModel = entry.Formatted
		case "Software", "ProcessingSoftware":
			if insp.Software == "" {
				insp.Software = entry.Formatted
			}
		case "DateTimeOriginal":
			insp.CaptureTime = entry.Formatted
		case "DateTime", "DateTimeDigitized":
			if insp.CaptureTime == "" {
				insp.CaptureTime = entry.Formatted
			}
		case "GPSLatitude", "GPSLongitude":
			insp.HasGPS = true
		}
	}
	return raw.String()
}

func (insp *Inspection) assess(width, height int, rawText string, now time.Time) {
	score := 0
	add := func(points int, note string) {
		insp.Indicators = append(insp.Indicators, note)
		score += points
	}

	if containsAny(rawText, aiSignatures) {
		add(riskAI, "AI generation tool identifier detected in metadata")
	}
	if software := strings.ToLower(insp.Software); software != "" && containsAny(software, editingSoftware) {
		add(riskMedium, fmt.Sprintf("Editing software recorded in EXIF: %s", insp.Software))
	}

	missingCamera := insp.CameraMake == "" && insp.CameraModel == ""
	if missingCamera {
		add(riskMedium, "Missing camera make and model: possible screenshot, export, or generated content")
	}
	if missingCamera && insp.CaptureTime == "" && !insp.HasGPS {
		if isGeneratorResolution(width, height) {
			add(riskAI, fmt.Sprintf("No capture metadata and %dx%d matches common generator output sizes", width, height))
		} else {
			add(riskMinor, "No capture metadata present")
		}
	}

	if isGeneratorResolution(width, height) {
		add(riskMedium, fmt.Sprintf("Dimensions %dx%d match common generator presets", width, height))
	}
	if width == height && width >= 256 && width <= 2048 {
		add(riskMinor, fmt.Sprintf("Perfect square aspect ratio at %d px", width))
	}
	if (width > 4000 || height > 4000) && insp.CameraMake == "" {
		add(riskMinor, "High resolution without camera information: possible upscaling")
	}

	if taken, err := time.Parse(exifTimeLayout, insp.CaptureTime); err == nil {
		if taken.After(now) {
			add(riskTamper, fmt.Sprintf("Capture time %s is in the future: EXIF may be rewritten", insp.CaptureTime))
		} else if taken.Year() < 1990 {
			add(riskLow, fmt.Sprintf("Capture time %s predates digital photography: default or corrupted timestamp", insp.CaptureTime))
		}
	}

	if insp.TagCount > 0 && insp.TagCount < 5 {
		add(riskLow, fmt.Sprintf("Sparse EXIF block (%d tags): may have been stripped by processing", insp.TagCount))
	}
	if make := strings.ToLower(insp.CameraMake); make != "" && containsAny(make, smartphoneMakes) && !insp.HasGPS {
		add(riskMinor, fmt.Sprintf("Smartphone make %q without GPS tags: location stripped or disabled", insp.CameraMake))
	}

	insp.RiskScore = min(score, maxRiskScore)
	insp.Conclusion = conclusionFor(insp.RiskScore)
}

func conclusionFor(score int) string {
	switch {
	case score >= 70:
		return fmt.Sprintf("This image has high suspicion of tampering or AI generation (confidence: %d%%)", score)
	case score >= 40:
		return fmt.Sprintf("This image may have been edited or is AI-generated content (confidence: %d%%)", score)
	case score >= 20:
		return fmt.Sprintf("This image has minor anomalies, further verification recommended (confidence: %d%%)", score)
	case score >= 10:
		return fmt.Sprintf("This image is basically normal, only minor suspicious indicators found (confidence: %d%%)", score)
	default:
		return fmt.Sprintf("This image shows no obvious anomalies, likely original content (confidence: %d%%)", max(100-score, 85))
	}
}

var aiSignatures = []string{
	"stable diffusion",
	"midjourney",
	"dall-e",
	"dalle",
	"generated",
	"synthetic",
}

var editingSoftware = []string{
	"photoshop",
	"lightroom",
	"gimp",
	"snapseed",
	"picsart",
	"affinity",
}

var smartphoneMakes = []string{
	"apple",
	"iphone",
	"samsung",
	"google",
	"huawei",
	"xiaomi",
}

// generatorResolutions are output sizes common to diffusion-model
// presets; orientation is ignored when matching.
var generatorResolutions = [][2]int{
	{256, 256}, {512, 512}, {768, 768}, {1024, 1024},
	{512, 768}, {1024, 768}, {512, 256}, {2048, 2048},
}

func isGeneratorResolution(width, height int) bool {
	for _, res := range generatorResolutions {
		if (width == res[0] && height == res[1]) || (width == res[1] && height == res[0]) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
