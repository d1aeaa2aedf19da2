package analysis

import (
	"argus/internal/detect"
	"argus/internal/records"
)

// Aggregation weights. ELA, copy-move, and noise carry more weight because
// they respond most directly to splicing and cloning.
var weights = map[detect.Kind]float64{
	detect.KindELA:      0.30,
	detect.KindCFA:      0.20,
	detect.KindCopyMove: 0.25,
	detect.KindLighting: 0.10,
	detect.KindNoise:    0.15,
}

// Weight returns the aggregation weight of a detector kind. Unknown kinds
// weigh zero.
func Weight(kind detect.Kind) float64 {
	return weights[kind]
}

// Aggregate folds per-detector confidences into the overall manipulation
// score. Only the detectors present in scores contribute; weights are
// fixed, so a partial run tops out below 100 instead of renormalizing.
func Aggregate(scores map[detect.Kind]float64) float64 {
	total := 0.0
	for kind, score := range scores {
		total += score * weights[kind]
	}
	return total
}

// VerdictFor maps an overall score to the five-level assessment. Bounds
// are exclusive: a score of exactly 15 is already LIKELY_AUTHENTIC.
func VerdictFor(score float64) records.Verdict {
	switch {
	case score < 15:
		return records.VerdictAuthentic
	case score < 30:
		return records.VerdictLikelyAuthentic
	case score < 50:
		return records.VerdictSuspicious
	case score < 75:
		return records.VerdictLikelyManipulated
	default:
		return records.VerdictManipulated
	}
}
