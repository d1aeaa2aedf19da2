// Package records persists analysis records in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-record recovery, and the status
// transitions the worker relies on. A record captures the full outcome of
// one image analysis: per-detector confidences, region counts and artifact
// keys, the weighted overall score and verdict, findings text, metadata
// inspection results, and failure details.
//
// Records are keyed by content hash; re-submitting a hash that already has
// a record is a no-op unless the caller removes the old record first. The
// database is the source of truth for work claiming, so all mutating
// queries retry on SQLITE_BUSY.
//
// Schema changes bump the version in schema.go; users clear the database
// to adopt the new schema.
package records
