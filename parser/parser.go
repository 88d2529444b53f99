package parser

import (
	"fmt"
	"strings"

	"github.com/loomkit/loom/lexer"
)

const maxNesting = 150

// ErrorKind describes the type of a parse error.
type ErrorKind int

const (
	// ErrMalformedDelimiter covers tag-level syntax problems: bad characters
	// inside a tag, unterminated tags, unknown statement keywords.
	ErrMalformedDelimiter ErrorKind = iota
	// ErrMisplacedExtends is a second extends declaration, or one appearing
	// after other template content.
	ErrMisplacedExtends
	// ErrUnterminatedBlock is a block without a matching endblock.
	ErrUnterminatedBlock
	// ErrUnmatchedEndBlock is an endblock without an open block.
	ErrUnmatchedEndBlock
	// ErrSuperOutsideBlock is a super statement outside any block body.
	ErrSuperOutsideBlock
	// ErrDuplicateBlock is the same block name declared twice in one template.
	ErrDuplicateBlock
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedDelimiter:
		return "malformed delimiter"
	case ErrMisplacedExtends:
		return "misplaced extends"
	case ErrUnterminatedBlock:
		return "unterminated block"
	case ErrUnmatchedEndBlock:
		return "unmatched endblock"
	case ErrSuperOutsideBlock:
		return "super outside block"
	case ErrDuplicateBlock:
		return "duplicate block"
	default:
		return "parse error"
	}
}

// Error represents a parse error.
type Error struct {
	Kind   ErrorKind
	Detail string
	Name   string // template name
	Line   uint16
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (in %s, line %d)", e.Kind, e.Detail, e.Name, e.Line)
}

// Parser turns a token stream into a template node tree.
type Parser struct {
	tokens     []lexer.Token
	pos        int
	name       string
	blocks     map[string]bool
	blockDepth int
	extends    *Extends
	sawContent bool
	depth      int
	lastSpan   Span
}

// Parse parses template source and returns the node tree or an error.
// No partial tree is ever returned alongside an error.
func Parse(source, name string, syntax lexer.SyntaxConfig, whitespace lexer.WhitespaceConfig) (*Template, error) {
	tokens, err := lexer.Tokenize(source, syntax, whitespace)
	if err != nil {
		line := uint16(1)
		if lexErr, ok := err.(*lexer.Error); ok {
			line = lexErr.Line
		}
		return nil, &Error{
			Kind:   ErrMalformedDelimiter,
			Detail: err.Error(),
			Name:   name,
			Line:   line,
		}
	}

	p := &Parser{
		tokens: tokens,
		name:   name,
		blocks: make(map[string]bool),
	}
	// Convert explicitly so a nil *Error never becomes a non-nil error
	// interface.
	tmpl, parseErr := p.parse()
	if parseErr != nil {
		return nil, parseErr
	}
	return tmpl, nil
}

// ParseDefault parses template source using the default configuration.
func ParseDefault(source, name string) (*Template, error) {
	return Parse(source, name, lexer.DefaultSyntax(), lexer.DefaultWhitespace())
}

func (p *Parser) parse() (*Template, *Error) {
	span := Span{StartLine: 1}
	children, err := p.subparse(func(tok lexer.Token) bool { return false })
	if err != nil {
		return nil, err
	}
	return &Template{
		Extends:  p.extends,
		Children: children,
		span:     p.expandSpan(span),
	}, nil
}

func (p *Parser) current() *lexer.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) advance() *lexer.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	tok := &p.tokens[p.pos]
	p.lastSpan = tok.Span
	p.pos++
	return tok
}

func (p *Parser) currentSpan() Span {
	if tok := p.current(); tok != nil {
		return tok.Span
	}
	return p.lastSpan
}

func (p *Parser) expandSpan(start Span) Span {
	return Span{
		StartLine:   start.StartLine,
		StartCol:    start.StartCol,
		StartOffset: start.StartOffset,
		EndLine:     p.lastSpan.EndLine,
		EndCol:      p.lastSpan.EndCol,
		EndOffset:   p.lastSpan.EndOffset,
	}
}

func (p *Parser) errorKind(kind ErrorKind, detail string) *Error {
	return &Error{
		Kind:   kind,
		Detail: detail,
		Name:   p.name,
		Line:   p.currentSpan().StartLine,
	}
}

func (p *Parser) syntaxError(detail string) *Error {
	return p.errorKind(ErrMalformedDelimiter, detail)
}

func (p *Parser) unexpectedEOF(expected string) *Error {
	return p.syntaxError(fmt.Sprintf("unexpected end of input, expected %s", expected))
}

func (p *Parser) expect(typ lexer.TokenType, expected string) (*lexer.Token, *Error) {
	tok := p.advance()
	if tok == nil {
		return nil, p.unexpectedEOF(expected)
	}
	if tok.Type != typ {
		return nil, p.syntaxError(fmt.Sprintf("unexpected %s, expected %s", tokenDescription(tok), expected))
	}
	return tok, nil
}

func (p *Parser) skip(typ lexer.TokenType) bool {
	if tok := p.current(); tok != nil && tok.Type == typ {
		p.advance()
		return true
	}
	return false
}

func tokenDescription(tok *lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIdent:
		return "identifier"
	case lexer.TokenString:
		return "string"
	case lexer.TokenInteger:
		return "integer"
	case lexer.TokenBlockEnd:
		return "end of statement tag"
	case lexer.TokenVariableEnd:
		return "end of expression tag"
	default:
		return fmt.Sprintf("`%s`", tok.Value)
	}
}

// parsePath parses a dotted variable path: ident (. (ident | integer))*.
func (p *Parser) parsePath() ([]string, *Error) {
	head, err := p.expect(lexer.TokenIdent, "identifier")
	if err != nil {
		return nil, err
	}
	path := []string{head.Value}
	for p.skip(lexer.TokenDot) {
		seg := p.advance()
		if seg == nil {
			return nil, p.unexpectedEOF("path segment")
		}
		if seg.Type != lexer.TokenIdent && seg.Type != lexer.TokenInteger {
			return nil, p.syntaxError(fmt.Sprintf("unexpected %s, expected path segment", tokenDescription(seg)))
		}
		path = append(path, seg.Value)
	}
	return path, nil
}

// --- Statement Parsing ---

func (p *Parser) parseStmt() (Node, *Error) {
	tok := p.advance()
	if tok == nil {
		return nil, p.unexpectedEOF("statement keyword")
	}
	span := tok.Span

	if tok.Type != lexer.TokenIdent {
		return nil, p.syntaxError(fmt.Sprintf("unexpected %s, expected statement keyword", tokenDescription(tok)))
	}

	switch tok.Value {
	case "extends":
		stmt, err := p.parseExtends()
		if err != nil {
			return nil, err
		}
		stmt.span = p.expandSpan(span)
		p.extends = stmt
		return stmt, nil

	case "block":
		stmt, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.span = p.expandSpan(span)
		p.sawContent = true
		return stmt, nil

	case "endblock":
		return nil, &Error{
			Kind:   ErrUnmatchedEndBlock,
			Detail: "endblock without an open block",
			Name:   p.name,
			Line:   span.StartLine,
		}

	case "include":
		stmt, err := p.parseInclude()
		if err != nil {
			return nil, err
		}
		stmt.span = p.expandSpan(span)
		p.sawContent = true
		return stmt, nil

	case "super":
		if p.blockDepth == 0 {
			return nil, &Error{
				Kind:   ErrSuperOutsideBlock,
				Detail: "super is only allowed inside a block body",
				Name:   p.name,
				Line:   span.StartLine,
			}
		}
		p.sawContent = true
		return &Super{span: p.expandSpan(span)}, nil

	default:
		return nil, p.syntaxError(fmt.Sprintf("unknown statement keyword `%s`", tok.Value))
	}
}

func (p *Parser) parseExtends() (*Extends, *Error) {
	if p.extends != nil {
		return nil, &Error{
			Kind:   ErrMisplacedExtends,
			Detail: "template already declares a parent",
			Name:   p.name,
			Line:   p.currentSpan().StartLine,
		}
	}
	if p.sawContent || p.blockDepth > 0 {
		return nil, &Error{
			Kind:   ErrMisplacedExtends,
			Detail: "extends must be the first statement in a template",
			Name:   p.name,
			Line:   p.currentSpan().StartLine,
		}
	}
	name, err := p.expect(lexer.TokenString, "template name string")
	if err != nil {
		return nil, err
	}
	return &Extends{Name: name.Value}, nil
}

func (p *Parser) parseBlock() (*Block, *Error) {
	name, err := p.expect(lexer.TokenIdent, "block name")
	if err != nil {
		return nil, err
	}

	if p.blocks[name.Value] {
		return nil, &Error{
			Kind:   ErrDuplicateBlock,
			Detail: fmt.Sprintf("block '%s' defined twice", name.Value),
			Name:   p.name,
			Line:   name.Span.StartLine,
		}
	}
	p.blocks[name.Value] = true

	if _, err := p.expect(lexer.TokenBlockEnd, "end of statement tag"); err != nil {
		return nil, err
	}

	p.blockDepth++
	body, subErr := p.subparse(func(tok lexer.Token) bool {
		return tok.Type == lexer.TokenIdent && tok.Value == "endblock"
	})
	p.blockDepth--
	if subErr != nil {
		return nil, subErr
	}

	if p.current() == nil {
		return nil, &Error{
			Kind:   ErrUnterminatedBlock,
			Detail: fmt.Sprintf("block '%s' is never closed", name.Value),
			Name:   p.name,
			Line:   name.Span.StartLine,
		}
	}
	p.advance() // consume endblock

	// Check for optional trailing block name
	if tok := p.current(); tok != nil && tok.Type == lexer.TokenIdent {
		if tok.Value != name.Value {
			return nil, p.syntaxError(fmt.Sprintf("mismatching name on endblock, got `%s`, expected `%s`", tok.Value, name.Value))
		}
		p.advance()
	}

	return &Block{Name: name.Value, Body: body}, nil
}

func (p *Parser) parseInclude() (*Include, *Error) {
	name, err := p.expect(lexer.TokenString, "template name string")
	if err != nil {
		return nil, err
	}
	return &Include{Name: name.Value}, nil
}

// subparse consumes nodes until endCheck matches the keyword of a statement
// tag or the token stream runs out. The matched keyword and its closing tag
// are left for the caller.
func (p *Parser) subparse(endCheck func(lexer.Token) bool) ([]Node, *Error) {
	p.depth++
	if p.depth > maxNesting {
		return nil, p.syntaxError("template exceeds maximum nesting limits")
	}
	defer func() { p.depth-- }()

	var nodes []Node

	for {
		tok := p.advance()
		if tok == nil {
			break
		}

		switch tok.Type {
		case lexer.TokenTemplateData:
			if strings.TrimSpace(tok.Value) != "" {
				p.sawContent = true
			}
			nodes = append(nodes, &Text{Text: tok.Value, span: tok.Span})

		case lexer.TokenVariableStart:
			span := tok.Span
			path, err := p.parsePath()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenVariableEnd, "end of expression tag"); err != nil {
				return nil, err
			}
			p.sawContent = true
			nodes = append(nodes, &Variable{Path: path, span: p.expandSpan(span)})

		case lexer.TokenBlockStart:
			if current := p.current(); current == nil {
				return nil, p.unexpectedEOF("statement keyword")
			} else if endCheck(*current) {
				return nodes, nil
			}
			stmt, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, stmt)
			if _, err := p.expect(lexer.TokenBlockEnd, "end of statement tag"); err != nil {
				return nil, err
			}

		default:
			// This shouldn't happen with well-formed lexer output
			return nil, p.syntaxError(fmt.Sprintf("unexpected token %s", tok.Type))
		}
	}

	return nodes, nil
}
