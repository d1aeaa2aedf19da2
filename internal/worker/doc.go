// Package worker advances pending analysis records through the forensic
// engine.
//
// The Manager polls the records store, reclaims stale work via heartbeats,
// and feeds each pending record into the stage handler while capturing
// failure metadata. It also aggregates record stats, calls the stage health
// check, and emits notifications when an analysis finishes or the queue
// drains.
//
// A single processing loop claims the oldest pending record at a time;
// within a record the engine fans out across detectors. A record whose
// heartbeat goes stale past the configured timeout is returned to pending
// so a crashed run never wedges the queue.
package worker
