// Package services defines the failure classification shared by the
// analysis worker and the intake surfaces.
//
// Errors wrapped here carry a marker that decides how a failed record is
// treated downstream: validation, configuration, and not-found failures
// flag the record for operator review since retrying would fail
// identically, while transient failures stay eligible for manual retry.
package services
