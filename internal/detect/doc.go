// Package detect implements the five traditional forensic detectors: error
// level analysis, color filter array analysis, copy-move detection,
// lighting consistency analysis, and noise analysis.
//
// Each detector consumes a read-only decoded raster and produces an
// independent Result with a 0-100 confidence, a kind-specific count, a
// findings summary, and a PNG visualization. Detectors never share mutable
// state, so any subset can run concurrently over the same image.
package detect
