// Package api defines wire-format types and converters for the daemon's
// HTTP layer. It translates internal record models into transport-friendly
// DTOs so CLI and other consumers never couple to storage types.
//
// # Key Types
//
// AnalysisRecord: transport representation of one analysis with flattened
// per-detector results, verdict, findings text, and metadata passthrough.
//
// WorkerStatus: worker running state, record stats, stage health, and the
// last record touched.
//
// DaemonStatus: aggregated runtime information including preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (records.Status,
// records.Verdict) are exposed as strings. Timestamps use RFC3339 with
// milliseconds. Metadata is passed through as json.RawMessage to avoid
// double-encoding the stored EXIF report.
package api
