package api

import (
	"encoding/json"
	"slices"
	"time"

	"argus/internal/detect"
	"argus/internal/records"
	"argus/internal/stage"
	"argus/internal/worker"
)

// FromRecord converts an analysis record to its API representation.
func FromRecord(rec *records.Record) AnalysisRecord {
	if rec == nil {
		return AnalysisRecord{}
	}

	dto := AnalysisRecord{
		ID:               rec.ID,
		ContentHash:      rec.ContentHash,
		SourcePath:       rec.SourcePath,
		Status:           string(rec.Status),
		DetectorSubset:   rec.DetectorSubset,
		Detectors:        detectorResults(rec),
		OverallScore:     rec.OverallScore,
		Verdict:          string(rec.Verdict),
		Summary:          rec.Summary,
		DetailedFindings: rec.DetailedFindings,
		ErrorMessage:     rec.ErrorMessage,
		ProcessingMillis: rec.ProcessingMillis,
		ImageWidth:       rec.ImageWidth,
		ImageHeight:      rec.ImageHeight,
		FileSizeBytes:    rec.FileSizeBytes,
		ThumbnailKey:     rec.ThumbnailKey,
		NeedsReview:      rec.NeedsReview,
		ReviewReason:     rec.ReviewReason,
	}

	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := rec.MetadataJSON; raw != "" {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromRecords converts a slice of analysis records into API DTOs.
func FromRecords(recs []*records.Record) []AnalysisRecord {
	if len(recs) == 0 {
		return nil
	}
	out := make([]AnalysisRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}

// detectorResults flattens the per-detector outcome slots in bank order.
func detectorResults(rec *records.Record) []DetectorResult {
	kinds := detect.Kinds()
	out := make([]DetectorResult, 0, len(kinds))
	for _, kind := range kinds {
		outcome := rec.Outcome(string(kind))
		if outcome == nil {
			continue
		}
		out = append(out, DetectorResult{
			Kind:        string(kind),
			Confidence:  outcome.Confidence,
			Count:       outcome.Count,
			ArtifactKey: outcome.ArtifactKey,
		})
	}
	return out
}

// FromStatusSummary converts a worker status summary to its API payload.
func FromStatusSummary(summary worker.StatusSummary) WorkerStatus {
	ws := WorkerStatus{
		Running:     summary.Running,
		RecordStats: MergeRecordStats(summary.RecordStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		ws.LastError = summary.LastError
	}
	if summary.LastRecord != nil {
		last := FromRecord(summary.LastRecord)
		ws.LastRecord = &last
	}
	return ws
}

// MergeRecordStats produces a string-keyed representation of record stats.
func MergeRecordStats(stats map[records.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
