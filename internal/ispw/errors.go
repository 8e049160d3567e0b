package ispw

import "fmt"

// ErrorKind tags the failure class of a generate run.
type ErrorKind string

const (
	// ErrKindValidation means one or more required build parameters are missing.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindParse means an input that should be JSON did not parse.
	ErrKindParse ErrorKind = "parse"
	// ErrKindMalformedURL means the composed request URL is not a valid URL.
	ErrKindMalformedURL ErrorKind = "malformed_url"
	// ErrKindNetwork means a transport failure or a non-JSON response body.
	ErrKindNetwork ErrorKind = "network"
	// ErrKindGenerateFailure means CES reported no result, an incomplete
	// result, or one or more task failures.
	ErrKindGenerateFailure ErrorKind = "generate_failure"
)

// Error is the tagged failure value every component of the generate flow
// returns. All kinds are fatal to the invocation; nothing is retried.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the ErrorKind of err if it is an *Error, or "" otherwise.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
