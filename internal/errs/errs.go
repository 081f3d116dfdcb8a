// Package errs defines the error taxonomy shared across the cache-and-sync
// core. Updaters and the URL validator tag their failures with one of
// these sentinels wrapped around the underlying cause, and the
// repositories tag most of theirs; the store package's helpers return
// the driver's error as-is.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which bucket of the taxonomy an error belongs to,
// independent of the wrapped cause.
type Kind int

const (
	// KindUnknown is the zero value; never returned deliberately.
	KindUnknown Kind = iota
	// KindValidation is bad user input (malformed URL, unknown project).
	KindValidation
	// KindDataStoreInaccessible is a local DB unavailable.
	KindDataStoreInaccessible
	// KindRemote is a network / auth / 4xx-5xx failure from the remote service.
	KindRemote
	// KindCancelled is a cooperative cancellation observed mid-sync.
	KindCancelled
	// KindUnsupported is e.g. a temporary or unrecognized query kind.
	KindUnsupported
	// KindInternalInvariant should be unreachable; an assertion failure.
	KindInternalInvariant
	// KindNotFound is returned by repository Remove when the definition is absent.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindDataStoreInaccessible:
		return "DataStoreInaccessible"
	case KindRemote:
		return "RemoteError"
	case KindCancelled:
		return "Cancelled"
	case KindUnsupported:
		return "Unsupported"
	case KindInternalInvariant:
		return "InternalInvariant"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error. Kind is what callers should switch on;
// Cause (if present) is the underlying error for %w-unwrapping and logging.
type Error struct {
	Kind       Kind
	Message    string
	Cause      error
	HTTPStatus int // only meaningful for KindRemote; 0 if not an HTTP failure
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errs.ErrNotFound) etc. match by Kind alone,
// ignoring Message/Cause/HTTPStatus.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newKind(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation wraps a bad-input error.
func Validation(message string, cause error) error { return newKind(KindValidation, message, cause) }

// DataStoreInaccessible wraps a local-DB-unavailable error.
func DataStoreInaccessible(message string, cause error) error {
	return newKind(KindDataStoreInaccessible, message, cause)
}

// Remote wraps a failure from the remote collaboration service.
func Remote(message string, httpStatus int, cause error) error {
	return &Error{Kind: KindRemote, Message: message, Cause: cause, HTTPStatus: httpStatus}
}

// Cancelled wraps a cooperative-cancellation observation.
func Cancelled(message string) error { return newKind(KindCancelled, message, nil) }

// Unsupported wraps an unsupported-operation error.
func Unsupported(message string) error { return newKind(KindUnsupported, message, nil) }

// InternalInvariant wraps a should-be-unreachable assertion failure.
func InternalInvariant(message string, cause error) error {
	return newKind(KindInternalInvariant, message, cause)
}

// NotFound wraps a definition-not-found error.
func NotFound(message string) error { return newKind(KindNotFound, message, nil) }

// Sentinels for errors.Is comparisons where callers don't need a message.
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrDataStoreInaccessible = &Error{Kind: KindDataStoreInaccessible}
	ErrRemote                = &Error{Kind: KindRemote}
	ErrCancelled             = &Error{Kind: KindCancelled}
	ErrUnsupported           = &Error{Kind: KindUnsupported}
	ErrInternalInvariant     = &Error{Kind: KindInternalInvariant}
	ErrNotFound              = &Error{Kind: KindNotFound}
)

// KindOf extracts the Kind of err, or KindUnknown if err isn't (or doesn't
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
