package loom

import (
	"fmt"

	"github.com/loomkit/loom/syntax"
)

// ErrorKind describes the type of an engine error.
type ErrorKind int

const (
	// ErrTemplateNotFound means the loader could not supply a template.
	ErrTemplateNotFound ErrorKind = iota
	// ErrCyclicExtends means a template name repeated in an extends chain.
	ErrCyclicExtends
	// ErrNoSuperDefinition means super was rendered in a block definition
	// that has no less-derived definition to fall back to.
	ErrNoSuperDefinition
	// ErrMaxDepthExceeded means include/super nesting exceeded the
	// configured depth bound.
	ErrMaxDepthExceeded
	// ErrUndefinedVar means a variable lookup failed under strict behavior.
	ErrUndefinedVar
	// ErrOutOfFuel means the render consumed its fuel allotment.
	ErrOutOfFuel
	// ErrInvalidOperation covers internal misuse, e.g. rendering an
	// unknown node type.
	ErrInvalidOperation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTemplateNotFound:
		return "template not found"
	case ErrCyclicExtends:
		return "cyclic extends"
	case ErrNoSuperDefinition:
		return "no super definition"
	case ErrMaxDepthExceeded:
		return "max depth exceeded"
	case ErrUndefinedVar:
		return "undefined variable"
	case ErrOutOfFuel:
		return "out of fuel"
	case ErrInvalidOperation:
		return "invalid operation"
	default:
		return "error"
	}
}

// Error represents an error that occurred while resolving or rendering a
// template. Parse errors surface separately as *parser.Error.
type Error struct {
	Kind    ErrorKind
	Message string
	Name    string // template name
	Span    *syntax.Span
	Err     error // wrapped cause, e.g. a loader failure
}

func (e *Error) Error() string {
	if e.Name != "" && e.Span != nil {
		return fmt.Sprintf("%s: %s (in %s, %s)", e.Kind, e.Message, e.Name, e.Span)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// WithName adds the template name to an error.
func (e *Error) WithName(name string) *Error {
	e.Name = name
	return e
}

// WithSpan adds span information to an error.
func (e *Error) WithSpan(span syntax.Span) *Error {
	e.Span = &span
	return e
}

// WithCause attaches a wrapped cause to an error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}
