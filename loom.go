// Package loom provides a template inheritance and composition engine.
//
// Templates contain literal text, variable interpolation, and structural
// directives. A template declares at most one parent with extends, carves
// out named overridable regions with block/endblock, re-invokes the parent
// definition of the enclosing region with super, and splices the output of
// another template with include.
//
// # Quick Start
//
//	env := loom.NewEnvironment()
//	env.AddTemplate("hello", "Hello {{ name }}!")
//	out, _ := env.Render(ctx, "hello", map[string]any{"name": "World"})
//	fmt.Println(out) // Output: Hello World!
//
// # Template Inheritance
//
// Base template (base.tpl):
//
//	<title>{% block title %}Base{% endblock %}</title>
//	{% block meta_tags %}<meta/>{% endblock %}
//
// Child template:
//
//	{% extends "base.tpl" %}
//	{% block title %}Posts | {{ date }}{% endblock %}
//	{% block meta_tags %}{% super %}<extra/>{% endblock %}
//
// Rendering the child walks the base template's structure and substitutes
// the most derived definition of each block; super renders the next-outer
// definition at its position in document order.
//
// # Composition
//
//	{% include "sidebar.tpl" %}
//
// splices the independently rendered output of sidebar.tpl inline, with
// the same context. Inclusion is not inheritance: the included template's
// own extends chain resolves on its own.
//
// # Variables
//
// Expression tags hold exactly one dotted path resolved against the render
// context: {{ post.title }}, {{ posts.0.title }}. Under the default
// lenient behavior a missing path renders as the empty string; strict
// behavior turns it into an error (see SetUndefinedBehavior).
//
// # Loading
//
// Template source retrieval lives behind LoaderFunc; the engine performs
// no I/O of its own. See MapLoader and FSLoader.
package loom

import (
	"github.com/loomkit/loom/value"
)

// Value is a dynamically typed context value.
type Value = value.Value

// ValueKind describes the type of a Value.
type ValueKind = value.ValueKind

// Common value kinds
const (
	KindUndefined = value.KindUndefined
	KindNone      = value.KindNone
	KindBool      = value.KindBool
	KindNumber    = value.KindNumber
	KindString    = value.KindString
	KindSeq       = value.KindSeq
	KindMap       = value.KindMap
)

// Value constructors
var (
	Undefined  = value.Undefined
	None       = value.None
	FromBool   = value.FromBool
	FromInt    = value.FromInt
	FromFloat  = value.FromFloat
	FromString = value.FromString
	FromSlice  = value.FromSlice
	FromMap    = value.FromMap
	FromAny    = value.FromAny
)
