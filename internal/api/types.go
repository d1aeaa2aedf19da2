package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AnalysisRecord describes an analysis record in a transport-friendly format.
type AnalysisRecord struct {
	ID               int64            `json:"id"`
	ContentHash      string           `json:"contentHash"`
	SourcePath       string           `json:"sourcePath,omitempty"`
	Status           string           `json:"status"`
	DetectorSubset   string           `json:"detectorSubset,omitempty"`
	Detectors        []DetectorResult `json:"detectors"`
	OverallScore     float64          `json:"overallScore"`
	Verdict          string           `json:"verdict,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	DetailedFindings string           `json:"detailedFindings,omitempty"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	ProcessingMillis int64            `json:"processingMillis"`
	ImageWidth       int              `json:"imageWidth,omitempty"`
	ImageHeight      int              `json:"imageHeight,omitempty"`
	FileSizeBytes    int64            `json:"fileSizeBytes,omitempty"`
	Metadata         json.RawMessage  `json:"metadata,omitempty"`
	ThumbnailKey     string           `json:"thumbnailKey,omitempty"`
	CreatedAt        string           `json:"createdAt,omitempty"`
	UpdatedAt        string           `json:"updatedAt,omitempty"`
	NeedsReview      bool             `json:"needsReview"`
	ReviewReason     string           `json:"reviewReason,omitempty"`
}

// DetectorResult captures one detector's persisted outcome on a record.
type DetectorResult struct {
	Kind        string  `json:"kind"`
	Confidence  float64 `json:"confidence"`
	Count       int     `json:"count"`
	ArtifactKey string  `json:"artifactKey,omitempty"`
}

// WorkerStatus summarizes worker execution state.
type WorkerStatus struct {
	Running     bool            `json:"running"`
	RecordStats map[string]int  `json:"recordStats"`
	LastError   string          `json:"lastError,omitempty"`
	LastRecord  *AnalysisRecord `json:"lastRecord,omitempty"`
	StageHealth []StageHealth   `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for the analysis stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// PreflightResult captures the outcome of one readiness check.
type PreflightResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool              `json:"running"`
	PID           int               `json:"pid"`
	RecordsDBPath string            `json:"recordsDbPath"`
	LockFilePath  string            `json:"lockFilePath"`
	Worker        WorkerStatus      `json:"worker"`
	Preflight     []PreflightResult `json:"preflight,omitempty"`
}

// RecordStatsResponse provides a normalized record stats payload.
type RecordStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// RecordListResponse wraps a collection of records for API responses.
type RecordListResponse struct {
	Records []AnalysisRecord `json:"records"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record AnalysisRecord `json:"record"`
}

// SubmitRequest asks the daemon to queue an analysis of a stored image blob.
type SubmitRequest struct {
	ContentHash string   `json:"contentHash"`
	Force       bool     `json:"force,omitempty"`
	Detectors   []string `json:"detectors,omitempty"`
}

// SubmitResponse reports the record backing a submission. Created is false
// when the submission deduplicated against an existing record.
type SubmitResponse struct {
	Record  AnalysisRecord `json:"record"`
	Created bool           `json:"created"`
}

// UploadResponse reports a stored image upload and the queued record.
type UploadResponse struct {
	ContentHash string         `json:"contentHash"`
	Size        int64          `json:"size"`
	Record      AnalysisRecord `json:"record"`
	Created     bool           `json:"created"`
}

// TestNotificationResponse reports the outcome of a notification test.
type TestNotificationResponse struct {
	Sent   bool   `json:"sent"`
	Detail string `json:"detail,omitempty"`
}

// LogTailResponse returns daemon log lines plus the byte offset a follow-up
// request should resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
