// Package raster provides the in-memory RGB image representation shared by
// the forensic detectors.
//
// Images decode into a flat 3-byte-per-pixel plane with any transparency
// composited over opaque white, so every detector sees identical fully
// opaque pixels regardless of the source format. The package also carries
// the bounded region counter that groups flagged pixels into 8-connected
// components without recursion, and the small drawing primitives the
// detector visualizations are built from.
package raster
