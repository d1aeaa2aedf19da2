package records

import "errors"

// ErrorClassifier allows errors to declare their classification for failure
// handling. Errors that implement this interface can influence whether a
// failed record is flagged for operator review instead of plain retry.
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds that flag review: "validation", "configuration", "not_found"
	ErrorKind() string
}

// ReviewReason maps a failure to the review annotation the worker should
// persist alongside StatusFailed. Validation, configuration, and not-found
// failures would fail identically on retry, so they are flagged for manual
// intervention; all other failures return an empty reason.
func ReviewReason(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch kind := classifier.ErrorKind(); kind {
		case "validation", "configuration", "not_found":
			return kind + " failure, retry will not succeed"
		}
	}
	return ""
}
