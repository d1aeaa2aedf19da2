package records

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an analysis record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when in-flight records are
// failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Verdict is the five-level authenticity assessment assigned when detector
// confidences are aggregated.
type Verdict string

const (
	VerdictAuthentic         Verdict = "AUTHENTIC"
	VerdictLikelyAuthentic   Verdict = "LIKELY_AUTHENTIC"
	VerdictSuspicious        Verdict = "SUSPICIOUS"
	VerdictLikelyManipulated Verdict = "LIKELY_MANIPULATED"
	VerdictManipulated       Verdict = "MANIPULATED"
)

// AllVerdicts returns the verdicts ordered from most to least authentic.
func AllVerdicts() []Verdict {
	return []Verdict{
		VerdictAuthentic,
		VerdictLikelyAuthentic,
		VerdictSuspicious,
		VerdictLikelyManipulated,
		VerdictManipulated,
	}
}

// DetectorOutcome captures one detector's persisted result on a record.
// Count carries the detector's region/block/inconsistency tally.
type DetectorOutcome struct {
	Confidence  float64
	Count       int
	ArtifactKey string
}

// DatabaseHealth captures diagnostic information about the records database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRecords     int
	Error            string
}

// HealthSummary describes aggregated record counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Record represents one image analysis persisted in SQLite.
type Record struct {
	ID          int64
	ContentHash string
	SourcePath  string
	Status      Status

	// DetectorSubset restricts which detectors run, as a comma-separated
	// list of detector kinds. Empty means all detectors.
	DetectorSubset string

	ELA      DetectorOutcome
	CFA      DetectorOutcome
	CopyMove DetectorOutcome
	Lighting DetectorOutcome
	Noise    DetectorOutcome

	OverallScore     float64
	Verdict          Verdict
	Summary          string
	DetailedFindings string
	ErrorMessage     string

	ProcessingMillis int64
	ImageWidth       int
	ImageHeight      int
	FileSizeBytes    int64
	MetadataJSON     string
	ThumbnailKey     string

	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
	NeedsReview   bool
	ReviewReason  string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the record is being analyzed right now.
func (r Record) IsProcessing() bool {
	return r.Status == StatusInProgress
}

// IsTerminal returns true when the record will not change without operator
// intervention.
func (r Record) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// SetFailed marks the record as failed with the given error message and
// clears the heartbeat.
func (r *Record) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.LastHeartbeat = nil
}

// Detectors returns the requested detector kinds, or nil when the record
// asks for the full bank.
func (r *Record) Detectors() []string {
	trimmed := strings.TrimSpace(r.DetectorSubset)
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	kinds := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, part)
		}
	}
	return kinds
}

// Outcome returns the persisted outcome slot for a detector kind string as
// stored in artifact keys ("ela", "cfa", "copy_move", "lighting", "noise").
// Unknown kinds return nil.
func (r *Record) Outcome(kind string) *DetectorOutcome {
	switch kind {
	case "ela":
		return &r.ELA
	case "cfa":
		return &r.CFA
	case "copy_move":
		return &r.CopyMove
	case "lighting":
		return &r.Lighting
	case "noise":
		return &r.Noise
	default:
		return nil
	}
}
