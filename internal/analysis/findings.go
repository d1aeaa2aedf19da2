package analysis

import (
	"fmt"
	"strings"

	"argus/internal/records"
)

// summaryText renders the fixed-format report stored on every completed
// record. Detectors that did not run report 0.00.
func summaryText(rec *records.Record) string {
	var b strings.Builder
	b.WriteString("Traditional Forensic Analysis Summary:\n")
	fmt.Fprintf(&b, "Overall Confidence Score: %.2f/100\n", rec.OverallScore)
	fmt.Fprintf(&b, "Authenticity Assessment: %s\n\n", rec.Verdict)
	b.WriteString("Individual Analysis Scores:\n")
	fmt.Fprintf(&b, "- Error Level Analysis: %.2f/100\n", rec.ELA.Confidence)
	fmt.Fprintf(&b, "- CFA Pattern Analysis: %.2f/100\n", rec.CFA.Confidence)
	fmt.Fprintf(&b, "- Copy-Move Detection: %.2f/100\n", rec.CopyMove.Confidence)
	fmt.Fprintf(&b, "- Lighting Consistency: %.2f/100\n", rec.Lighting.Confidence)
	fmt.Fprintf(&b, "- Noise Residual Analysis: %.2f/100\n", rec.Noise.Confidence)
	return b.String()
}

// findingsText renders the per-detector findings block. Detectors that
// flagged nothing contribute no line.
func findingsText(rec *records.Record) string {
	var b strings.Builder
	b.WriteString("Detailed Analysis Findings:\n\n")
	if rec.ELA.Count > 0 {
		fmt.Fprintf(&b, "ELA: %d suspicious regions detected with compression artifacts\n", rec.ELA.Count)
	}
	if rec.CFA.Count > 0 {
		fmt.Fprintf(&b, "CFA: %d interpolation anomalies detected\n", rec.CFA.Count)
	}
	if rec.CopyMove.Count > 0 {
		fmt.Fprintf(&b, "Copy-Move: %d suspicious duplicate regions detected\n", rec.CopyMove.Count)
	}
	if rec.Lighting.Count > 0 {
		fmt.Fprintf(&b, "Lighting: %d lighting inconsistencies detected\n", rec.Lighting.Count)
	}
	if rec.Noise.Count > 0 {
		fmt.Fprintf(&b, "Noise Residual: %d suspicious regions detected\n", rec.Noise.Count)
	}
	return b.String()
}
