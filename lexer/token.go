// Package lexer tokenizes template source code.
//
// Template source is split into raw template data and tags of two delimiter
// families: expression tags ({{ ... }}) for variable interpolation and
// statement tags ({% ... %}) for structural directives. Comment tags
// ({# ... #}) are consumed and never surface as tokens.
package lexer

import (
	"fmt"

	"github.com/loomkit/loom/syntax"
)

// TokenType represents the type of a token.
type TokenType int

const (
	// Template data (raw text between tags)
	TokenTemplateData TokenType = iota

	// Delimiters
	TokenVariableStart // {{
	TokenVariableEnd   // }}
	TokenBlockStart    // {%
	TokenBlockEnd      // %}

	// Literals
	TokenIdent   // identifier
	TokenString  // "string" or 'string'
	TokenInteger // 123 (index segment in a dotted path)

	// Punctuation
	TokenDot // .
)

// Token represents a single token from the lexer.
type Token struct {
	Type  TokenType
	Value string // token value (for idents, strings, integers, template data)
	Span  Span   // source location
}

// Span represents a location range in source code.
type Span = syntax.Span

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Value)
}

var tokenTypeNames = map[TokenType]string{
	TokenTemplateData:  "TemplateData",
	TokenVariableStart: "VariableStart",
	TokenVariableEnd:   "VariableEnd",
	TokenBlockStart:    "BlockStart",
	TokenBlockEnd:      "BlockEnd",
	TokenIdent:         "Ident",
	TokenString:        "String",
	TokenInteger:       "Integer",
	TokenDot:           "Dot",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}
