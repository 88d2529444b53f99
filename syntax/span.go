// Package syntax holds the source location types shared by the lexer, the
// parser, and engine errors.
package syntax

import "fmt"

// Span represents a location range in source code. Lines are 1-indexed,
// columns are 0-indexed, and offsets are byte positions into the source.
type Span struct {
	StartLine   uint16
	StartCol    uint16
	StartOffset uint32
	EndLine     uint16
	EndCol      uint16
	EndOffset   uint32
}

// String formats the span's start position for error messages.
func (s Span) String() string {
	return fmt.Sprintf("line %d, col %d", s.StartLine, s.StartCol)
}
