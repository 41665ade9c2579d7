package raw

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Kind categorizes a synthesis failure into one of the five kinds the
// driver reports to the user.
type Kind int

const (
	// KindConfig marks an invalid configuration option value.
	KindConfig Kind = iota

	// KindDonorFormat marks a missing or invalid EXIF/TIFF field, wrong
	// compression type, or wrong bit depth in the donor.
	KindDonorFormat

	// KindSourceFormat marks an unreadable source image, unsupported
	// Bayer-array shape, or an out-of-range Bayer-source sample.
	KindSourceFormat

	// KindEncoderOverflow marks the predictor codec's output buffer
	// being exhausted.
	KindEncoderOverflow

	// KindIO marks a read/write/rename failure.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindDonorFormat:
		return "DonorFormatError"
	case KindSourceFormat:
		return "SourceFormatError"
	case KindEncoderOverflow:
		return "EncoderOverflow"
	case KindIO:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Error is a categorized, field-aware synthesis error. Its Error method
// renders Kind, Field (when set) and the wrapped cause on one line,
// which is the line the driver prints.
type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Field + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error of the given kind, identifying the offending
// field or path, wrapping cause with msg via github.com/pkg/errors so
// callers retain a stack trace.
func Wrap(kind Kind, field string, cause error, msg string) *Error {
	return &Error{Kind: kind, Field: field, Err: errors.Wrap(cause, msg)}
}

// New builds an *Error of the given kind from a plain message, with no
// underlying cause.
func New(kind Kind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Err: errors.New(msg)}
}

// KindOf reports the Kind of err if it is (or wraps) a *Error, and
// false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
