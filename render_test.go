package loom

import (
	"context"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/lexer"
	"github.com/loomkit/loom/parser"
)

func newEnv(t *testing.T, templates map[string]string) *Environment {
	t.Helper()
	env := NewEnvironment()
	for name, source := range templates {
		require.NoError(t, env.AddTemplate(name, source))
	}
	return env
}

func render(t *testing.T, env *Environment, name string, data any) string {
	t.Helper()
	out, err := env.Render(context.Background(), name, data)
	require.NoError(t, err)
	return out
}

func renderString(t *testing.T, env *Environment, source string, data any) string {
	t.Helper()
	tmpl, err := env.TemplateFromString(source)
	require.NoError(t, err)
	out, err := tmpl.Render(context.Background(), data)
	require.NoError(t, err)
	return out
}

func requireErrorKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	var engineErr *Error
	require.True(t, pkgerrors.As(err, &engineErr), "expected *loom.Error, got %T: %v", err, err)
	assert.Equal(t, kind, engineErr.Kind)
	return engineErr
}

func TestBasicRender(t *testing.T) {
	env := NewEnvironment()
	out := renderString(t, env, "Hello {{ name }}!", map[string]any{"name": "World"})
	assert.Equal(t, "Hello World!", out)
}

func TestVariableTypes(t *testing.T) {
	env := NewEnvironment()
	out := renderString(t, env, "{{ str }} {{ num }} {{ float }} {{ bool }}", map[string]any{
		"str":   "hello",
		"num":   42,
		"float": 3.14,
		"bool":  true,
	})
	assert.Equal(t, "hello 42 3.14 true", out)
}

func TestVariableOrderPreserving(t *testing.T) {
	env := NewEnvironment()

	out := renderString(t, env, "{{a}}-{{b}}", map[string]any{"a": "x", "b": "y"})
	assert.Equal(t, "x-y", out)

	// Missing variables render as the empty string under the default
	// lenient behavior.
	out = renderString(t, env, "{{a}}-{{b}}", map[string]any{"a": "x"})
	assert.Equal(t, "x-", out)
}

func TestDottedPathRender(t *testing.T) {
	env := NewEnvironment()
	data := map[string]any{
		"post": map[string]any{"title": "First"},
		"posts": []any{
			map[string]any{"title": "One"},
			map[string]any{"title": "Two"},
		},
	}
	out := renderString(t, env, "{{ post.title }}/{{ posts.1.title }}", data)
	assert.Equal(t, "First/Two", out)
}

func TestUndefinedStrict(t *testing.T) {
	env := NewEnvironment()
	env.SetUndefinedBehavior(UndefinedStrict)

	tmpl, err := env.TemplateFromString("x{{ missing }}y")
	require.NoError(t, err)
	_, err = tmpl.Render(context.Background(), map[string]any{})
	engineErr := requireErrorKind(t, err, ErrUndefinedVar)
	assert.NotNil(t, engineErr.Span)
}

func TestInheritanceOverride(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base":  "[{% block content %}base{% endblock %}]",
		"child": `{% extends "base" %}{% block content %}child{% endblock %}`,
	})
	assert.Equal(t, "[child]", render(t, env, "child", nil))
	// Rendering the base itself still uses its own definition.
	assert.Equal(t, "[base]", render(t, env, "base", nil))
}

func TestBlockFallback(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base":  "{% block a %}A{% endblock %}|{% block b %}B{% endblock %}",
		"mid":   `{% extends "base" %}{% block a %}M{% endblock %}`,
		"child": `{% extends "mid" %}{% block b %}C{% endblock %}`,
	})
	// a falls back to mid's override, b is the leaf's.
	assert.Equal(t, "M|C", render(t, env, "child", nil))
	// mid leaves b untouched, so the root definition shows through.
	assert.Equal(t, "M|B", render(t, env, "mid", nil))
}

func TestSuperChain(t *testing.T) {
	env := newEnv(t, map[string]string{
		"a": "{% block b %}A{% endblock %}",
		"b": `{% extends "a" %}{% block b %}B{% super %}{% endblock %}`,
		"c": `{% extends "b" %}{% block b %}C{% super %}{% endblock %}`,
	})
	// Each super unwinds exactly one level toward the root definition.
	assert.Equal(t, "CBA", render(t, env, "c", nil))
	assert.Equal(t, "BA", render(t, env, "b", nil))
}

func TestSuperPositionIsDocumentOrder(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base":  "{% block b %}P{% endblock %}",
		"first": `{% extends "base" %}{% block b %}{% super %}X{% endblock %}`,
		"last":  `{% extends "base" %}{% block b %}X{% super %}{% endblock %}`,
	})
	assert.Equal(t, "PX", render(t, env, "first", nil))
	assert.Equal(t, "XP", render(t, env, "last", nil))
}

func TestSuperWithoutParentDefinition(t *testing.T) {
	env := newEnv(t, map[string]string{
		"root": "{% block b %}{% super %}{% endblock %}",
	})
	_, err := env.Render(context.Background(), "root", nil)
	requireErrorKind(t, err, ErrNoSuperDefinition)
}

func TestEndToEndBlogScenario(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base.tpl": `<title>{% block title %}Base{% endblock %}</title>` +
			`{% block meta_tags %}<meta/>{% endblock %}`,
		"post_list.tpl": `{% extends "base.tpl" %}` +
			`{% block title %}Posts | {{ date }}{% endblock %}` +
			`{% block meta_tags %}<meta/><extra/>{% super %}{% endblock %}`,
	})

	out := render(t, env, "post_list.tpl", map[string]any{"date": "2024-05"})
	assert.Equal(t, "<title>Posts | 2024-05</title><meta/><extra/><meta/>", out)
}

func TestIncludeSplicesPositionally(t *testing.T) {
	env := newEnv(t, map[string]string{
		"page": `A{% include "X" %}B`,
		"X":    "M",
	})
	assert.Equal(t, "AMB", render(t, env, "page", nil))
}

func TestIncludeSharesContext(t *testing.T) {
	env := newEnv(t, map[string]string{
		"page":    `{% include "partial" %}`,
		"partial": "hello {{ who }}",
	})
	assert.Equal(t, "hello you", render(t, env, "page", map[string]any{"who": "you"}))
}

func TestIncludeResolvesInheritanceIndependently(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base": "[{% block b %}base{% endblock %}]",
		"leaf": `{% extends "base" %}{% block b %}leaf{% endblock %}`,
		"page": `A{% include "leaf" %}B`,
	})
	assert.Equal(t, "A[leaf]B", render(t, env, "page", nil))
}

func TestIncludeInsideBlock(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base":  `{% block b %}{% endblock %}`,
		"child": `{% extends "base" %}{% block b %}<{% include "nav" %}>{% endblock %}`,
		"nav":   "nav:{{ page }}",
	})
	assert.Equal(t, "<nav:home>", render(t, env, "child", map[string]any{"page": "home"}))
}

func TestIncludeMissingTemplate(t *testing.T) {
	env := newEnv(t, map[string]string{
		"page": `A{% include "ghost" %}B`,
	})
	_, err := env.Render(context.Background(), "page", nil)
	engineErr := requireErrorKind(t, err, ErrTemplateNotFound)
	assert.NotNil(t, engineErr.Span)
}

func TestIncludeCycleHitsDepthBound(t *testing.T) {
	env := newEnv(t, map[string]string{
		"loop": `{% include "loop" %}`,
	})
	env.SetMaxDepth(16)
	_, err := env.Render(context.Background(), "loop", nil)
	requireErrorKind(t, err, ErrMaxDepthExceeded)
}

func TestMutualIncludeCycleHitsDepthBound(t *testing.T) {
	env := newEnv(t, map[string]string{
		"a": `{% include "b" %}`,
		"b": `{% include "a" %}`,
	})
	env.SetMaxDepth(16)
	_, err := env.Render(context.Background(), "a", nil)
	requireErrorKind(t, err, ErrMaxDepthExceeded)
}

func TestCyclicExtends(t *testing.T) {
	env := newEnv(t, map[string]string{
		"a": `{% extends "b" %}{% block x %}a{% endblock %}`,
		"b": `{% extends "a" %}{% block x %}b{% endblock %}`,
	})
	_, err := env.Render(context.Background(), "a", nil)
	requireErrorKind(t, err, ErrCyclicExtends)
}

func TestSelfExtends(t *testing.T) {
	env := newEnv(t, map[string]string{
		"a": `{% extends "a" %}{% block x %}a{% endblock %}`,
	})
	_, err := env.Render(context.Background(), "a", nil)
	requireErrorKind(t, err, ErrCyclicExtends)
}

func TestUnstoredTemplateExtends(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base": "[{% block b %}base{% endblock %}]",
	})
	tmpl, err := env.TemplateFromString(`{% extends "base" %}{% block b %}leaf{% endblock %}`)
	require.NoError(t, err)
	out, err := tmpl.Render(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "[leaf]", out)
}

func TestFuelExhaustion(t *testing.T) {
	env := NewEnvironment()
	env.SetFuel(3)
	tmpl, err := env.TemplateFromString("a{{ x }}b{{ y }}c")
	require.NoError(t, err)
	_, err = tmpl.Render(context.Background(), map[string]any{"x": "1", "y": "2"})
	requireErrorKind(t, err, ErrOutOfFuel)
}

func TestFuelSufficient(t *testing.T) {
	env := NewEnvironment()
	env.SetFuel(100)
	out := renderString(t, env, "a{{ x }}b", map[string]any{"x": "1"})
	assert.Equal(t, "a1b", out)
}

func TestUnterminatedBlockFailsParse(t *testing.T) {
	env := NewEnvironment()

	err := env.AddTemplate("broken", "{% block a %}x")
	require.Error(t, err)
	var parseError *parser.Error
	require.True(t, pkgerrors.As(err, &parseError))
	assert.Equal(t, parser.ErrUnterminatedBlock, parseError.Kind)

	// No partial template is ever retained.
	_, err = env.GetTemplate("broken")
	requireErrorKind(t, err, ErrTemplateNotFound)
}

func TestAncestorSiblingContentIgnored(t *testing.T) {
	env := newEnv(t, map[string]string{
		"base":  "<{% block b %}base{% endblock %}>",
		"mid":   `{% extends "base" %}MIDDLE{% block b %}mid{% endblock %}`,
		"child": `{% extends "mid" %}LEAF{% block b %}child{% endblock %}`,
	})
	// Only the root contributes structure outside of blocks; sibling text in
	// mid and child never renders.
	assert.Equal(t, "<child>", render(t, env, "child", nil))
}

func TestCommentsProduceNoOutput(t *testing.T) {
	env := NewEnvironment()
	out := renderString(t, env, "a{# hidden #}b", nil)
	assert.Equal(t, "ab", out)
}

func TestTrimBlocksEndToEnd(t *testing.T) {
	env := NewEnvironment()
	ws := lexer.DefaultWhitespace()
	ws.TrimBlocks = true
	env.SetWhitespace(ws)

	out := renderString(t, env, "{% block a %}\nx{% endblock %}\ny", nil)
	assert.Equal(t, "xy", out)
}

func TestCustomDelimitersEndToEnd(t *testing.T) {
	env := NewEnvironment()
	env.SetSyntax(lexer.SyntaxConfig{
		BlockStart:   "<%",
		BlockEnd:     "%>",
		VarStart:     "[[",
		VarEnd:       "]]",
		CommentStart: "<#",
		CommentEnd:   "#>",
	})
	require.NoError(t, env.AddTemplate("base", "<% block b %>B<% endblock %>"))
	require.NoError(t, env.AddTemplate("child", `<% extends "base" %><% block b %>[[ x ]]<# gone #><% endblock %>`))

	assert.Equal(t, "hi", render(t, env, "child", map[string]any{"x": "hi"}))
}
