// Package notifications delivers analysis lifecycle events via pluggable
// notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Enumerated event types cover analysis completion, analysis failure, and
// queue drain so the worker can emit consistent, user-friendly messages
// without duplicating HTTP glue. Per-event enable flags and a dedup window
// keep at-least-once redeliveries from spamming the topic.
//
// Extend this package if you need alternative transports; all worker code
// depends only on the simple Service interface.
package notifications
