// Package logs implements offset-based tailing of the daemon log file.
//
// The daemon's HTTP API and the `argus logs` command both read the log
// through Tail, so interactive viewing and remote viewing share one set of
// semantics: a negative offset means "last N lines", a non-negative offset
// resumes reading where a previous call stopped, and follow mode polls
// within a bounded wait instead of blocking forever.
package logs
