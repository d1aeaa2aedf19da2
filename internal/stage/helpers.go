package stage

import (
	"argus/internal/fileutil"
	"argus/internal/records"
	"argus/internal/services"
)

// RequireContentHash verifies that a record carries a well-formed SHA256
// content hash. On failure it returns a services.ErrValidation suitable
// for stage Prepare and Execute methods.
func RequireContentHash(rec *records.Record) error {
	if rec == nil || !fileutil.ValidHash(rec.ContentHash) {
		return services.Wrap(
			services.ErrValidation, "stage", "validate content hash",
			"Record is missing a valid SHA256 content hash; resubmit the image", nil)
	}
	return nil
}
