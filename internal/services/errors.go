package services

import (
	"errors"
	"fmt"
	"strings"
)

// kindError is the concrete marker type. It carries the classification
// bucket so review flagging can recover the kind from a wrapped chain.
type kindError struct {
	msg  string
	kind string
}

func (e *kindError) Error() string { return e.msg }

// ErrorKind returns the classification bucket for failure handling.
func (e *kindError) ErrorKind() string { return e.kind }

// Classification markers. Wrap failures with one of these so the worker can
// decide between a plain failure and one flagged for operator review.
var (
	ErrValidation    error = &kindError{msg: "validation error", kind: "validation"}
	ErrConfiguration error = &kindError{msg: "configuration error", kind: "configuration"}
	ErrNotFound      error = &kindError{msg: "not found", kind: "not_found"}
	ErrTransient     error = &kindError{msg: "transient failure", kind: "transient"}
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later failure classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind extracts the classification of err. Unclassified errors report as
// transient.
func Kind(err error) string {
	var classifier interface{ ErrorKind() string }
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "transient"
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
