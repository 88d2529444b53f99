// Package parser builds node trees for templates.
package parser

import (
	"github.com/loomkit/loom/lexer"
)

// Span represents a location range in source code.
type Span = lexer.Span

// Node is the interface implemented by all nodes in a template tree.
type Node interface {
	node()
	Span() Span
}

// Template is the root node of a parsed template.
type Template struct {
	// Extends is the parent declaration, or nil for a root template.
	// When set it is also the first structural node of Children.
	Extends  *Extends
	Children []Node
	span     Span
}

func (t *Template) node()      {}
func (t *Template) Span() Span { return t.span }

// Text outputs raw template text.
type Text struct {
	Text string
	span Span
}

func (t *Text) node()      {}
func (t *Text) Span() Span { return t.span }

// Variable outputs the value of a dotted-path context lookup.
type Variable struct {
	// Path holds the dotted segments, e.g. ["post", "title"]. Segments may
	// be numeric index strings ("0") for sequence traversal.
	Path []string
	span Span
}

func (v *Variable) node()      {}
func (v *Variable) Span() Span { return v.span }

// Block declares a named, overridable region.
type Block struct {
	Name string
	Body []Node
	span Span
}

func (b *Block) node()      {}
func (b *Block) Span() Span { return b.span }

// Extends declares the template's single parent.
type Extends struct {
	Name string
	span Span
}

func (e *Extends) node()      {}
func (e *Extends) Span() Span { return e.span }

// Include splices in the independently rendered output of another template.
type Include struct {
	Name string
	span Span
}

func (i *Include) node()      {}
func (i *Include) Span() Span { return i.span }

// Super renders the next-less-derived definition of the enclosing block.
type Super struct {
	span Span
}

func (s *Super) node()      {}
func (s *Super) Span() Span { return s.span }
