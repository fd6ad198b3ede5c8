// Package txfail holds the typed failure reasons reported by the transaction pipeline.
package txfail

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reason classifies why a pipeline attempt failed
type Reason string

const (
	ReasonNetworkUnavailable    Reason = "NETWORK_UNAVAILABLE"
	ReasonEstimationRejected    Reason = "ESTIMATION_REJECTED"
	ReasonSignerUnavailable     Reason = "SIGNER_UNAVAILABLE"
	ReasonSignerRejected        Reason = "SIGNER_REJECTED"
	ReasonSignerTimeout         Reason = "SIGNER_TIMEOUT"
	ReasonBroadcastFailed       Reason = "BROADCAST_FAILED"
	ReasonStaleAttemptDiscarded Reason = "STALE_ATTEMPT_DISCARDED"
	ReasonInvalidDraft          Reason = "INVALID_DRAFT"
	ReasonUnknown               Reason = "UNKNOWN"
)

// Reasons lists every reason in a stable order
func Reasons() []Reason {
	return []Reason{
		ReasonNetworkUnavailable,
		ReasonEstimationRejected,
		ReasonSignerUnavailable,
		ReasonSignerRejected,
		ReasonSignerTimeout,
		ReasonBroadcastFailed,
		ReasonStaleAttemptDiscarded,
		ReasonInvalidDraft,
		ReasonUnknown,
	}
}

// Retryable reports whether re-submitting the same draft after a reset is safe.
// SignerRejected is an explicit user refusal and needs a fresh user action.
func Retryable(reason Reason) bool {
	switch reason {
	case ReasonNetworkUnavailable, ReasonSignerTimeout, ReasonBroadcastFailed, ReasonSignerUnavailable:
		return true
	case ReasonEstimationRejected, ReasonSignerRejected, ReasonStaleAttemptDiscarded, ReasonInvalidDraft, ReasonUnknown:
		return false
	}

	return false
}

// UserFacing reports whether the reason may be shown to an end user
func UserFacing(reason Reason) bool {
	return reason != ReasonInvalidDraft && reason != ReasonStaleAttemptDiscarded
}

// Error is a failure with a typed reason and a short human readable summary
type Error struct {
	Reason  Reason `json:"reason"`
	Summary string `json:"summary"`
	cause   error
}

// New creates a failure without an underlying cause
func New(reason Reason, summary string) *Error {
	return &Error{Reason: reason, Summary: summary}
}

// Newf is New with a formatted summary
func Newf(reason Reason, format string, args ...any) *Error {
	return New(reason, fmt.Sprintf(format, args...))
}

// Wrap attaches a reason to err. A nil err yields nil.
func Wrap(err error, reason Reason, summary string) *Error {
	if err == nil {
		return nil
	}

	return &Error{Reason: reason, Summary: summary, cause: err}
}

// Wrapf is Wrap with a formatted summary
func Wrapf(err error, reason Reason, format string, args ...any) *Error {
	return Wrap(err, reason, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Summary)
	}

	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Summary, e.cause)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause satisfies github.com/pkg/errors causer
func (e *Error) Cause() error {
	return e.cause
}

// WithSummary returns a copy carrying a different summary
func (e *Error) WithSummary(summary string) *Error {
	cp := *e
	cp.Summary = summary

	return &cp
}

// As returns the first *Error in err's chain
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}

	return nil, false
}

// ReasonOf extracts the reason from err, ReasonUnknown if err carries none
func ReasonOf(err error) Reason {
	if fail, ok := As(err); ok {
		return fail.Reason
	}

	return ReasonUnknown
}

// Is reports whether err carries the given reason
func Is(err error, reason Reason) bool {
	return err != nil && ReasonOf(err) == reason
}
