// Package preflight provides readiness checks for the directories and
// blob storage that Argus depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and reports the results through
//     its status endpoint, so a misconfigured store surfaces before the
//     first analysis fails.
//   - The CLI "argus daemon status" command renders the same results
//     alongside worker state.
//
// Checks never mutate state; a missing MinIO bucket still passes because
// the blob store creates it when it first connects.
package preflight
