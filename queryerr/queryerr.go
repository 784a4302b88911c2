// Package queryerr defines the error-kind taxonomy shared across the
// query core: parser, generator, planner, evaluator and executor all
// raise one of these kinds rather than an ad-hoc error, so that callers
// at the boundary can type-switch on a small, closed set.
package queryerr

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrParse is fatal for the compile; carries a source position.
	ErrParse = errors.NewKind("parse error at position %d: %s")

	// ErrInvalidRequest is raised when the planner or generator is
	// handed a construct it cannot express at all (missing FROM, a
	// join whose ON clause isn't two column references, a non-SELECT
	// node passed to the generator).
	ErrInvalidRequest = errors.NewKind("invalid request: %s")

	// ErrTypeMismatch is raised by the evaluator when operand types
	// can't be reconciled for an operator or function.
	ErrTypeMismatch = errors.NewKind("type mismatch: %s")

	// ErrExecutionFailed covers variable-scope misuse, malformed
	// partition state, and remote-client responses that don't match
	// what was requested.
	ErrExecutionFailed = errors.NewKind("execution failed: %s")

	// ErrNotFound covers missing entities or traces.
	ErrNotFound = errors.NewKind("not found: %s")

	// ErrCancelled and ErrTimeout are cooperative termination signals,
	// never logged as internal errors by callers.
	ErrCancelled = errors.NewKind("cancelled")
	ErrTimeout   = errors.NewKind("timeout after %s")

	// ErrRemote wraps any error surfaced by the connection pool or the
	// remote client itself.
	ErrRemote = errors.NewKind("remote error: %s")
)

// ParseError carries the source byte offset of the failure, in addition
// to satisfying the normal error interface via ErrParse.
type ParseError struct {
	Message  string
	Position int
}

func (e *ParseError) Error() string {
	return ErrParse.New(e.Position, e.Message).Error()
}

// NewParseError builds a ParseError at the given byte offset.
func NewParseError(position int, message string) error {
	return &ParseError{Message: message, Position: position}
}

// Position extracts the byte offset from an error, if it carries one.
func Position(err error) (int, bool) {
	if pe, ok := err.(*ParseError); ok {
		return pe.Position, true
	}
	return 0, false
}
