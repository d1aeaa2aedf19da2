// Package daemon coordinates the long-running Argus process.
//
// It wires configuration, the records store, blob storage, the analysis
// worker, and the local HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon owns image intake and
// task submission, record maintenance helpers, retention sweeps, and the
// test notification hook.
//
// Keep orchestration logic here: detector execution lives in
// internal/analysis while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
