package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, source string) *Template {
	t.Helper()
	tmpl, err := ParseDefault(source, "test.tpl")
	require.NoError(t, err)
	return tmpl
}

func parseErr(t *testing.T, source string) *Error {
	t.Helper()
	tmpl, err := ParseDefault(source, "test.tpl")
	require.Error(t, err)
	require.Nil(t, tmpl, "no partial tree on error")
	parseError, ok := err.(*Error)
	require.True(t, ok, "error must be *parser.Error, got %T", err)
	return parseError
}

func TestParseSuccessReturnsUntypedNilError(t *testing.T) {
	tmpl, err := ParseDefault("just text", "test.tpl")
	require.True(t, err == nil, "expected untyped nil error, got %#v", err)
	require.NotNil(t, tmpl)
}

func TestParseText(t *testing.T) {
	tmpl := parse(t, "just text")
	require.Len(t, tmpl.Children, 1)
	text, ok := tmpl.Children[0].(*Text)
	require.True(t, ok)
	assert.Equal(t, "just text", text.Text)
	assert.Nil(t, tmpl.Extends)
}

func TestParseVariable(t *testing.T) {
	tmpl := parse(t, "Hello {{ name }}!")
	require.Len(t, tmpl.Children, 3)
	variable, ok := tmpl.Children[1].(*Variable)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, variable.Path)
}

func TestParseDottedPath(t *testing.T) {
	tmpl := parse(t, "{{ post.tags.0 }}")
	variable, ok := tmpl.Children[0].(*Variable)
	require.True(t, ok)
	assert.Equal(t, []string{"post", "tags", "0"}, variable.Path)
}

func TestParseExtends(t *testing.T) {
	tmpl := parse(t, `{% extends "base.tpl" %}{% block a %}x{% endblock %}`)
	require.NotNil(t, tmpl.Extends)
	assert.Equal(t, "base.tpl", tmpl.Extends.Name)

	require.Len(t, tmpl.Children, 2)
	_, ok := tmpl.Children[0].(*Extends)
	assert.True(t, ok)
	block, ok := tmpl.Children[1].(*Block)
	require.True(t, ok)
	assert.Equal(t, "a", block.Name)
}

func TestExtendsAfterLeadingWhitespace(t *testing.T) {
	tmpl := parse(t, "\n  {% extends \"base.tpl\" %}")
	require.NotNil(t, tmpl.Extends)
	assert.Equal(t, "base.tpl", tmpl.Extends.Name)
}

func TestParseBlock(t *testing.T) {
	tmpl := parse(t, "{% block title %}Hello {{ name }}{% endblock %}")
	require.Len(t, tmpl.Children, 1)
	block, ok := tmpl.Children[0].(*Block)
	require.True(t, ok)
	assert.Equal(t, "title", block.Name)
	require.Len(t, block.Body, 2)
	_, ok = block.Body[1].(*Variable)
	assert.True(t, ok)
}

func TestParseNestedBlocks(t *testing.T) {
	tmpl := parse(t, "{% block outer %}a{% block inner %}b{% endblock %}c{% endblock %}")
	outer := tmpl.Children[0].(*Block)
	require.Len(t, outer.Body, 3)
	inner, ok := outer.Body[1].(*Block)
	require.True(t, ok)
	assert.Equal(t, "inner", inner.Name)
	require.Len(t, inner.Body, 1)
}

func TestParseInclude(t *testing.T) {
	tmpl := parse(t, `a{% include "x.tpl" %}b`)
	require.Len(t, tmpl.Children, 3)
	include, ok := tmpl.Children[1].(*Include)
	require.True(t, ok)
	assert.Equal(t, "x.tpl", include.Name)
}

func TestParseSuperInsideBlock(t *testing.T) {
	tmpl := parse(t, "{% block a %}{% super %}x{% endblock %}")
	block := tmpl.Children[0].(*Block)
	require.Len(t, block.Body, 2)
	_, ok := block.Body[0].(*Super)
	assert.True(t, ok)
}

func TestEndblockTrailingName(t *testing.T) {
	tmpl := parse(t, "{% block a %}x{% endblock a %}")
	block := tmpl.Children[0].(*Block)
	assert.Equal(t, "a", block.Name)
}

func TestEndblockTrailingNameMismatch(t *testing.T) {
	parseError := parseErr(t, "{% block a %}x{% endblock b %}")
	assert.Equal(t, ErrMalformedDelimiter, parseError.Kind)
	assert.Contains(t, parseError.Detail, "mismatching name")
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		source string
		kind   ErrorKind
	}{
		{"second extends", `{% extends "a" %}{% extends "b" %}`, ErrMisplacedExtends},
		{"extends after content", `x{% extends "a" %}`, ErrMisplacedExtends},
		{"extends inside block", `{% block a %}{% extends "b" %}{% endblock %}`, ErrMisplacedExtends},
		{"unterminated block", `{% block a %}x`, ErrUnterminatedBlock},
		{"unmatched endblock", `x{% endblock %}`, ErrUnmatchedEndBlock},
		{"super at top level", `{% super %}`, ErrSuperOutsideBlock},
		{"duplicate block", `{% block a %}{% endblock %}{% block a %}{% endblock %}`, ErrDuplicateBlock},
		{"unknown keyword", `{% bogus %}`, ErrMalformedDelimiter},
		{"block without name", `{% block %}x{% endblock %}`, ErrMalformedDelimiter},
		{"unterminated tag", `{{ name`, ErrMalformedDelimiter},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parseError := parseErr(t, tc.source)
			assert.Equal(t, tc.kind, parseError.Kind)
			assert.Equal(t, "test.tpl", parseError.Name)
		})
	}
}

func TestErrorReportsLine(t *testing.T) {
	parseError := parseErr(t, "line one\nline two\n{% super %}")
	assert.Equal(t, ErrSuperOutsideBlock, parseError.Kind)
	assert.Equal(t, uint16(3), parseError.Line)
}

func TestDocumentOrderPreserved(t *testing.T) {
	tmpl := parse(t, `a{{ x }}b{% include "i" %}c`)
	require.Len(t, tmpl.Children, 5)
	assert.IsType(t, &Text{}, tmpl.Children[0])
	assert.IsType(t, &Variable{}, tmpl.Children[1])
	assert.IsType(t, &Text{}, tmpl.Children[2])
	assert.IsType(t, &Include{}, tmpl.Children[3])
	assert.IsType(t, &Text{}, tmpl.Children[4])
}
