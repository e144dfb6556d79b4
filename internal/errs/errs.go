// Package errs defines the closed error taxonomy shared by the request
// pipeline. Every failure a caller can see carries a stable machine-readable
// kind plus a human-readable remediation hint.
package errs

import "fmt"

// Kind identifies a class of error for programmatic handling.
type Kind string

const (
	// KindValidation marks malformed or unsafe input. Recoverable: the
	// caller should correct the request and retry.
	KindValidation Kind = "validation"

	// KindSecurity marks a sandbox violation. Not recoverable without
	// changing the request's paths.
	KindSecurity Kind = "security"

	// KindResource marks an exceeded file-count or size ceiling.
	// Recoverable by narrowing scope.
	KindResource Kind = "resource"

	// KindBinary marks an engine that could not be spawned. Not
	// recoverable without external remediation (install or fetch).
	KindBinary Kind = "binary"

	// KindTimeout marks an engine run that exceeded its deadline.
	// Recoverable by narrowing scope or raising the timeout.
	KindTimeout Kind = "timeout"

	// KindExecution marks an engine that ran but reported failure.
	// Recoverable: the message is translated from stderr.
	KindExecution Kind = "execution"
)

// Error wraps an underlying error with a kind, message, and remediation hint.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new kinded error with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new kinded error that wraps an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithHint returns a copy of the error carrying a remediation hint.
func (e *Error) WithHint(hint string) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.Hint = hint
	return &out
}

// KindOf extracts the kind from an error, or KindExecution when the error
// is not an *Error. A nil error has no kind and returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok { //nolint:errorlint // top-level kind only
		return e.Kind
	}
	return KindExecution
}
