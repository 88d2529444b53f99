package loom

import (
	"context"
	"sync"

	"github.com/loomkit/loom/lexer"
	"github.com/loomkit/loom/parser"
	"github.com/loomkit/loom/value"
)

// UndefinedBehavior determines how undefined variables are handled.
type UndefinedBehavior int

const (
	// UndefinedLenient renders missing variables as the empty string.
	// This is the default and is a deliberate, documented policy rather
	// than a silent fallback.
	UndefinedLenient UndefinedBehavior = iota
	// UndefinedStrict fails the render on the first missing variable.
	UndefinedStrict
)

// LoaderFunc is a function that loads template source by name. The engine
// makes no assumption about the storage medium and propagates failures
// without interpretation.
type LoaderFunc func(name string) (string, error)

// defaultMaxDepth bounds include and super nesting per render. Extends
// cycles are rejected outright during resolution; include cycles are not
// statically detectable and are converted into a reported error by this
// bound instead of exhausting the stack.
const defaultMaxDepth = 500

// Environment holds the engine configuration and templates.
type Environment struct {
	templates   map[string]*compiledTemplate
	templatesMu sync.RWMutex
	parseCache  *parseCache
	loader      LoaderFunc

	syntaxConfig      lexer.SyntaxConfig
	wsConfig          lexer.WhitespaceConfig
	undefinedBehavior UndefinedBehavior
	maxDepth          int
	fuel              uint64 // 0 means unlimited
}

type compiledTemplate struct {
	name   string
	source string
	hash   uint64
	ast    *parser.Template
}

// NewEnvironment creates a new environment with default settings.
func NewEnvironment() *Environment {
	// The cache size is a positive constant, lru.New cannot fail here.
	cache, _ := newParseCache(defaultParseCacheSize)
	return &Environment{
		templates:         make(map[string]*compiledTemplate),
		parseCache:        cache,
		syntaxConfig:      lexer.DefaultSyntax(),
		wsConfig:          lexer.DefaultWhitespace(),
		undefinedBehavior: UndefinedLenient,
		maxDepth:          defaultMaxDepth,
	}
}

// AddTemplate adds a template from source. Re-adding the same name with
// identical content is a no-op; changed content re-parses and replaces the
// previous entry.
func (e *Environment) AddTemplate(name, source string) error {
	hash := sourceHash(source)

	e.templatesMu.RLock()
	existing, ok := e.templates[name]
	e.templatesMu.RUnlock()
	if ok && existing.hash == hash {
		return nil
	}

	ast, err := parser.Parse(source, name, e.syntaxConfig, e.wsConfig)
	if err != nil {
		return err
	}

	e.templatesMu.Lock()
	e.templates[name] = &compiledTemplate{
		name:   name,
		source: source,
		hash:   hash,
		ast:    ast,
	}
	e.templatesMu.Unlock()
	return nil
}

// RemoveTemplate removes a template added with AddTemplate and drops any
// loader-backed parse cache entry under the same name.
func (e *Environment) RemoveTemplate(name string) {
	e.templatesMu.Lock()
	delete(e.templates, name)
	e.templatesMu.Unlock()
	e.parseCache.invalidate(name)
}

// ClearCache drops all loader-backed parse results. Templates registered
// via AddTemplate are unaffected.
func (e *Environment) ClearCache() {
	e.parseCache.purge()
}

// GetTemplate retrieves a template by name, consulting explicitly added
// templates first, then the parse cache, then the loader.
func (e *Environment) GetTemplate(name string) (*Template, error) {
	compiled, err := e.getCompiled(name)
	if err != nil {
		return nil, err
	}
	return &Template{env: e, compiled: compiled}, nil
}

func (e *Environment) getCompiled(name string) (*compiledTemplate, error) {
	e.templatesMu.RLock()
	compiled, ok := e.templates[name]
	e.templatesMu.RUnlock()
	if ok {
		return compiled, nil
	}

	if cached, ok := e.parseCache.get(name); ok {
		return cached, nil
	}

	if e.loader == nil {
		return nil, NewError(ErrTemplateNotFound, name)
	}

	source, err := e.loader(name)
	if err != nil {
		if engineErr, ok := err.(*Error); ok && engineErr.Kind == ErrTemplateNotFound {
			return nil, engineErr
		}
		return nil, NewError(ErrTemplateNotFound, name).WithCause(err)
	}

	ast, err := parser.Parse(source, name, e.syntaxConfig, e.wsConfig)
	if err != nil {
		return nil, err
	}

	compiled = &compiledTemplate{
		name:   name,
		source: source,
		hash:   sourceHash(source),
		ast:    ast,
	}
	e.parseCache.put(compiled)
	return compiled, nil
}

// TemplateFromString creates a template from source without storing it.
func (e *Environment) TemplateFromString(source string) (*Template, error) {
	return e.TemplateFromNamedString("<string>", source)
}

// TemplateFromNamedString creates a named template from source without
// storing it.
func (e *Environment) TemplateFromNamedString(name, source string) (*Template, error) {
	ast, err := parser.Parse(source, name, e.syntaxConfig, e.wsConfig)
	if err != nil {
		return nil, err
	}
	return &Template{
		env: e,
		compiled: &compiledTemplate{
			name:   name,
			source: source,
			hash:   sourceHash(source),
			ast:    ast,
		},
	}, nil
}

// SetLoader sets the template loader function. Loader results are cached by
// name; call RemoveTemplate or ClearCache when the backing content changes.
func (e *Environment) SetLoader(loader LoaderFunc) {
	e.loader = loader
}

// SetSyntax sets the delimiter configuration.
func (e *Environment) SetSyntax(config lexer.SyntaxConfig) {
	e.syntaxConfig = config
}

// SetWhitespace sets the whitespace configuration.
func (e *Environment) SetWhitespace(config lexer.WhitespaceConfig) {
	e.wsConfig = config
}

// SetUndefinedBehavior sets how undefined variables are handled.
func (e *Environment) SetUndefinedBehavior(behavior UndefinedBehavior) {
	e.undefinedBehavior = behavior
}

// SetMaxDepth sets the include/super nesting bound for renders.
func (e *Environment) SetMaxDepth(depth int) {
	if depth > 0 {
		e.maxDepth = depth
	}
}

// SetFuel gives every render a fuel allotment; each emitted node consumes
// fuel, and running out fails the render. Zero disables fuel tracking.
func (e *Environment) SetFuel(fuel uint64) {
	e.fuel = fuel
}

// Render is the aggregate entry point: it loads, resolves, and renders the
// named template with the given context data in one call. The data may be a
// value.Value or any Go value convertible through value.FromAny.
func (e *Environment) Render(ctx context.Context, name string, data any) (string, error) {
	tmpl, err := e.GetTemplate(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(ctx, data)
}

// Template represents a parsed template bound to its environment.
type Template struct {
	env      *Environment
	compiled *compiledTemplate
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.compiled.name
}

// Source returns the template source.
func (t *Template) Source() string {
	return t.compiled.source
}

// SourceHash returns the content hash of the template source.
func (t *Template) SourceHash() uint64 {
	return t.compiled.hash
}

// Render renders the template with the given context data.
func (t *Template) Render(ctx context.Context, data any) (string, error) {
	return t.RenderValue(ctx, value.FromAny(data))
}

// RenderValue renders the template with a value.Value context.
func (t *Template) RenderValue(ctx context.Context, contextVal value.Value) (string, error) {
	return t.env.render(ctx, t.compiled, contextVal)
}
