// Package main hosts the Argus CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into daemon
// API calls, record maintenance operations, analysis submissions, and
// configuration scaffolding. Commands that read or mutate records go through
// the daemon when one is running and fall back to the record store directly
// when none is, so the CLI works the same whether or not argusd is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
