package lexer

import (
	"fmt"
	"strings"
)

// Lexer tokenizes template source code.
type Lexer struct {
	source     string // original source (possibly with trailing newline stripped)
	pos        int    // current position in source
	start      int    // start position of current token
	line       uint16 // current line (1-indexed)
	col        uint16 // current column (0-indexed at line start)
	startLine  uint16
	startCol   uint16
	syntax     SyntaxConfig
	whitespace WhitespaceConfig

	// State tracking
	stack                 []lexerState
	trimLeadingWhitespace bool
	pendingStartMarker    *pendingMarker
}

type lexerState int

const (
	stateTemplate lexerState = iota
	stateVariable
	stateBlock
)

type pendingMarker struct {
	marker startMarker
	length int
}

type startMarker int

const (
	markerVariable startMarker = iota
	markerBlock
	markerComment
)

type whitespaceMode int

const (
	wsDefault whitespaceMode = iota
	wsPreserve // +
	wsRemove   // -
)

func whitespaceFromByte(b byte) whitespaceMode {
	switch b {
	case '-':
		return wsRemove
	case '+':
		return wsPreserve
	default:
		return wsDefault
	}
}

// Error is a tokenization error with a source position.
type Error struct {
	Detail string
	Line   uint16
	Col    uint16
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at line %d, col %d: %s", e.Line, e.Col, e.Detail)
}

// New creates a new Lexer for the given input.
func New(input string, syntax SyntaxConfig, whitespace WhitespaceConfig) *Lexer {
	source := input
	if !whitespace.KeepTrailingNewline {
		if strings.HasSuffix(source, "\n") {
			source = source[:len(source)-1]
		}
		if strings.HasSuffix(source, "\r") {
			source = source[:len(source)-1]
		}
	}

	return &Lexer{
		source:     source,
		line:       1,
		col:        0,
		syntax:     syntax,
		whitespace: whitespace,
		stack:      []lexerState{stateTemplate},
	}
}

// Tokenize returns all tokens from the input.
func Tokenize(input string, syntax SyntaxConfig, whitespace WhitespaceConfig) ([]Token, error) {
	l := New(input, syntax, whitespace)
	return l.All()
}

// All collects all tokens into a slice.
func (l *Lexer) All() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			break
		}
		tokens = append(tokens, *tok)
	}
	return tokens, nil
}

// Next returns the next token, or nil at end of input.
func (l *Lexer) Next() (*Token, error) {
	for {
		if l.atEnd() {
			if l.currentState() != stateTemplate {
				return nil, l.syntaxError("unexpected end of input inside tag")
			}
			return nil, nil
		}

		var tok *Token
		var err error
		var cont bool

		switch l.currentState() {
		case stateTemplate:
			tok, cont, err = l.tokenizeRoot()
		case stateVariable:
			tok, cont, err = l.tokenizeTag(sentinelVariable)
		case stateBlock:
			tok, cont, err = l.tokenizeTag(sentinelBlock)
		}

		if err != nil {
			return nil, err
		}
		if cont {
			continue
		}
		if tok != nil {
			return tok, nil
		}
	}
}

func (l *Lexer) currentState() lexerState {
	if len(l.stack) == 0 {
		return stateTemplate
	}
	return l.stack[len(l.stack)-1]
}

func (l *Lexer) pushState(s lexerState) {
	l.stack = append(l.stack, s)
}

func (l *Lexer) popState() {
	if len(l.stack) > 0 {
		l.stack = l.stack[:len(l.stack)-1]
	}
}

type tagSentinel int

const (
	sentinelVariable tagSentinel = iota
	sentinelBlock
)

// tokenizeRoot handles the template data state.
func (l *Lexer) tokenizeRoot() (*Token, bool, error) {
	if l.pendingStartMarker != nil {
		pm := l.pendingStartMarker
		l.pendingStartMarker = nil
		return l.handleStartMarker(pm.marker, pm.length)
	}

	// Handle trim leading whitespace from previous tag
	if l.trimLeadingWhitespace {
		l.trimLeadingWhitespace = false
		l.skipWhitespace()
	}

	l.markStart()

	match := l.findStartMarker()
	if match == nil {
		// No marker found, rest is template data
		if l.pos < len(l.source) {
			text := l.advance(len(l.source) - l.pos)
			tok := l.makeToken(TokenTemplateData, text)
			return &tok, false, nil
		}
		return nil, false, nil
	}

	marker, offset, length, ws := match.marker, match.offset, match.length, match.ws
	l.pendingStartMarker = &pendingMarker{marker: marker, length: length}

	// Determine how much template data to emit before the marker
	var lead string
	var span Span
	switch ws {
	case wsDefault:
		if l.shouldLstripBlock(marker, l.source[:l.pos+offset]) {
			peeked := l.rest()[:offset]
			trimmed := lstripBlock(peeked)
			lead = l.advance(len(trimmed))
			span = l.span()
			l.advance(len(peeked) - len(trimmed))
		} else {
			lead = l.advance(offset)
			span = l.span()
		}
	case wsPreserve:
		lead = l.advance(offset)
		span = l.span()
	case wsRemove:
		peeked := l.rest()[:offset]
		trimmed := strings.TrimRight(peeked, " \t\n\r")
		lead = l.advance(len(trimmed))
		span = l.span()
		l.advance(len(peeked) - len(trimmed))
	}

	if lead == "" {
		return nil, true, nil // continue to handle start marker
	}

	tok := Token{Type: TokenTemplateData, Value: lead, Span: span}
	return &tok, false, nil
}

type markerMatch struct {
	offset int
	marker startMarker
	length int
	ws     whitespaceMode
}

func (l *Lexer) findStartMarker() *markerMatch {
	rest := l.rest()

	candidates := [3]struct {
		delim  string
		marker startMarker
	}{
		{l.syntax.VarStart, markerVariable},
		{l.syntax.BlockStart, markerBlock},
		{l.syntax.CommentStart, markerComment},
	}

	best := -1
	var marker startMarker
	var length int
	for _, c := range candidates {
		idx := strings.Index(rest, c.delim)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			marker = c.marker
			length = len(c.delim)
		}
	}
	if best < 0 {
		return nil
	}

	// Check for whitespace control character
	var ws whitespaceMode
	if best+length < len(rest) {
		ws = whitespaceFromByte(rest[best+length])
	}
	if ws != wsDefault {
		length++
	}

	return &markerMatch{offset: best, marker: marker, length: length, ws: ws}
}

func (l *Lexer) handleStartMarker(marker startMarker, skip int) (*Token, bool, error) {
	switch marker {
	case markerComment:
		rest := l.rest()[skip:]
		endIdx := strings.Index(rest, l.syntax.CommentEnd)
		if endIdx < 0 {
			l.advance(len(l.rest()))
			return nil, false, l.syntaxError("unexpected end of comment")
		}

		ws := wsDefault
		if endIdx > 0 {
			ws = whitespaceFromByte(rest[endIdx-1])
		}

		l.advance(skip + endIdx + len(l.syntax.CommentEnd))
		l.handleTailWhitespace(ws)
		return nil, true, nil

	case markerVariable:
		l.markStart()
		l.advance(skip)
		l.pushState(stateVariable)
		tok := l.makeToken(TokenVariableStart, l.syntax.VarStart)
		return &tok, false, nil

	case markerBlock:
		l.markStart()
		l.advance(skip)
		l.pushState(stateBlock)
		tok := l.makeToken(TokenBlockStart, l.syntax.BlockStart)
		return &tok, false, nil
	}

	return nil, false, nil
}

func (l *Lexer) handleTailWhitespace(ws whitespaceMode) {
	switch ws {
	case wsPreserve:
		// Do nothing
	case wsDefault:
		l.skipNewlineIfTrimBlocks()
	case wsRemove:
		l.trimLeadingWhitespace = true
	}
}

func (l *Lexer) skipNewlineIfTrimBlocks() {
	if l.whitespace.TrimBlocks {
		rest := l.rest()
		if strings.HasPrefix(rest, "\r") {
			l.advance(1)
			rest = l.rest()
		}
		if strings.HasPrefix(rest, "\n") {
			l.advance(1)
		}
	}
}

func (l *Lexer) shouldLstripBlock(marker startMarker, prefix string) bool {
	if l.whitespace.LstripBlocks && marker != markerVariable {
		// Only strip if we're at the start of a line
		for i := len(prefix) - 1; i >= 0; i-- {
			c := prefix[i]
			if c == '\n' || c == '\r' {
				return true
			} else if c != ' ' && c != '\t' {
				return false
			}
		}
		// At start of file
		return true
	}
	return false
}

// tokenizeTag handles tokens inside {% %} or {{ }}.
func (l *Lexer) tokenizeTag(sentinel tagSentinel) (*Token, bool, error) {
	l.skipWhitespace()

	if l.atEnd() {
		return nil, false, l.syntaxError("unexpected end of input inside tag")
	}

	l.markStart()
	rest := l.rest()

	// Check for tag end with optional whitespace control
	switch sentinel {
	case sentinelBlock:
		if len(rest) > 0 && (rest[0] == '-' || rest[0] == '+') && strings.HasPrefix(rest[1:], l.syntax.BlockEnd) {
			wasMinus := rest[0] == '-'
			l.popState()
			l.advance(1 + len(l.syntax.BlockEnd))
			tok := l.makeToken(TokenBlockEnd, string(rest[0])+l.syntax.BlockEnd)
			if wasMinus {
				l.trimLeadingWhitespace = true
			}
			return &tok, false, nil
		}
		if strings.HasPrefix(rest, l.syntax.BlockEnd) {
			l.popState()
			l.advance(len(l.syntax.BlockEnd))
			tok := l.makeToken(TokenBlockEnd, l.syntax.BlockEnd)
			l.skipNewlineIfTrimBlocks()
			return &tok, false, nil
		}

	case sentinelVariable:
		if len(rest) > 0 && (rest[0] == '-' || rest[0] == '+') && strings.HasPrefix(rest[1:], l.syntax.VarEnd) {
			wasMinus := rest[0] == '-'
			l.popState()
			l.advance(1 + len(l.syntax.VarEnd))
			if wasMinus {
				l.trimLeadingWhitespace = true
			}
			tok := l.makeToken(TokenVariableEnd, string(rest[0])+l.syntax.VarEnd)
			return &tok, false, nil
		}
		if strings.HasPrefix(rest, l.syntax.VarEnd) {
			l.popState()
			l.advance(len(l.syntax.VarEnd))
			tok := l.makeToken(TokenVariableEnd, l.syntax.VarEnd)
			return &tok, false, nil
		}
	}

	ch := rest[0]
	switch {
	case ch == '.':
		l.advance(1)
		tok := l.makeToken(TokenDot, ".")
		return &tok, false, nil
	case ch == '"' || ch == '\'':
		return l.lexString(ch)
	case isDigit(ch):
		return l.lexInteger()
	case isIdentStart(ch):
		return l.lexIdent()
	}

	return nil, false, l.syntaxError(fmt.Sprintf("unexpected character %q", ch))
}

// lexString lexes a string literal.
func (l *Lexer) lexString(quote byte) (*Token, bool, error) {
	l.advance(1) // skip opening quote

	var sb strings.Builder
	for !l.atEnd() {
		ch := l.rest()[0]
		if ch == quote {
			l.advance(1)
			tok := l.makeToken(TokenString, sb.String())
			return &tok, false, nil
		}
		if ch == '\\' {
			l.advance(1)
			if l.atEnd() {
				return nil, false, l.syntaxError("unexpected end of string")
			}
			escaped := l.rest()[0]
			l.advance(1)
			switch escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case '"':
				sb.WriteByte('"')
			default:
				// Unknown escape, keep both characters
				sb.WriteByte('\\')
				sb.WriteByte(escaped)
			}
		} else {
			sb.WriteByte(ch)
			l.advance(1)
		}
	}

	return nil, false, l.syntaxError("unexpected end of string")
}

// lexInteger lexes a decimal integer (used for index segments in paths).
func (l *Lexer) lexInteger() (*Token, bool, error) {
	rest := l.rest()
	n := 0
	for n < len(rest) && isDigit(rest[n]) {
		n++
	}
	value := rest[:n]
	l.advance(n)
	tok := l.makeToken(TokenInteger, value)
	return &tok, false, nil
}

// lexIdent lexes an identifier.
func (l *Lexer) lexIdent() (*Token, bool, error) {
	rest := l.rest()
	n := 0
	for n < len(rest) && isIdentPart(rest[n]) {
		n++
	}
	value := rest[:n]
	l.advance(n)
	tok := l.makeToken(TokenIdent, value)
	return &tok, false, nil
}

// Helper methods

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) rest() string {
	if l.pos >= len(l.source) {
		return ""
	}
	return l.source[l.pos:]
}

func (l *Lexer) advance(n int) string {
	if n <= 0 {
		return ""
	}
	start := l.pos
	end := l.pos + n
	if end > len(l.source) {
		end = len(l.source)
	}

	skipped := l.source[start:end]
	for _, c := range skipped {
		if c == '\n' {
			l.line++
			l.col = 0
		} else {
			if l.col < 65535 {
				l.col++
			}
		}
	}
	l.pos = end
	return skipped
}

func (l *Lexer) markStart() {
	l.start = l.pos
	l.startLine = l.line
	l.startCol = l.col
}

func (l *Lexer) span() Span {
	return Span{
		StartLine:   l.startLine,
		StartCol:    l.startCol,
		StartOffset: uint32(l.start),
		EndLine:     l.line,
		EndCol:      l.col,
		EndOffset:   uint32(l.pos),
	}
}

func (l *Lexer) makeToken(typ TokenType, value string) Token {
	return Token{Type: typ, Value: value, Span: l.span()}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		c := l.rest()[0]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.advance(1)
		} else {
			break
		}
	}
}

func (l *Lexer) syntaxError(msg string) error {
	return &Error{Detail: msg, Line: l.line, Col: l.col}
}

func lstripBlock(s string) string {
	// Trim trailing spaces and tabs, but only back to a line start
	trimmed := strings.TrimRightFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	if trimmed == "" || strings.HasSuffix(trimmed, "\n") {
		return trimmed
	}
	return s
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
