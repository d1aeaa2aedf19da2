// Package analysis orchestrates one forensic pass over an image record.
//
// The Engine fetches the image blob once, decodes it, fans the detector
// bank out across a bounded worker group, and folds the detector
// confidences into an overall manipulation score and verdict using a
// fixed weighting. A detector failure or panic zeroes that detector's
// contribution without aborting the pass; only missing or undecodable
// media fails the record.
package analysis
