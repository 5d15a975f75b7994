package models

import (
	"errors"
	"fmt"
)

// FailureKind is the machine-readable class of a failure
type FailureKind string

const (
	FailureNetwork        FailureKind = "network"
	FailureProtocol       FailureKind = "protocol"
	FailureMalformedFeed  FailureKind = "malformed_feed"
	FailureExtract        FailureKind = "extract"
	FailureRender         FailureKind = "render"
	FailureInvalidRequest FailureKind = "invalid_request"
)

// Failure is a classified error. Every failure the core produces carries
// a kind plus a human-readable detail; single-feed and single-article
// failures are recorded, never propagated as run-level faults.
type Failure struct {
	Kind   FailureKind
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Detail, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure creates a failure with the given kind and detail
func NewFailure(kind FailureKind, detail string) *Failure {
	return &Failure{Kind: kind, Detail: detail}
}

// Failuref creates a failure with a formatted detail string
func Failuref(kind FailureKind, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapFailure attaches an underlying error to a new failure
func WrapFailure(kind FailureKind, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the failure kind from an error chain. Unclassified
// errors report FailureNetwork, the safest assumption for outbound work.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return FailureNetwork
}

// DetailOf returns the human-readable detail from an error chain,
// falling back to the error string itself.
func DetailOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
