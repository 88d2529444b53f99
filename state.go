package loom

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/parser"
	"github.com/loomkit/loom/value"
)

// State holds the evaluation state during one render call.
type State struct {
	env          *Environment
	ctx          context.Context
	name         string
	context      value.Value
	out          *strings.Builder
	blocks       map[string]*blockStack
	currentBlock string
	depth        int
	fuel         *fuelTracker
}

// blockStack tracks which definition of a block is currently rendering.
// defs are ordered root-first; index points at the active definition and
// moves toward zero while super calls unwind.
type blockStack struct {
	defs  []blockDef
	index int
}

// render resolves the template's inheritance and renders the root skeleton.
func (e *Environment) render(ctx context.Context, leaf *compiledTemplate, contextVal value.Value) (result string, err error) {
	ctx, finish := startRenderSpan(ctx, leaf.name)
	defer func() { finish(err) }()

	res, err := e.resolveCompiled(ctx, leaf)
	if err != nil {
		return "", err
	}

	var fuel *fuelTracker
	if e.fuel > 0 {
		fuel = newFuelTracker(e.fuel)
	}

	s := &State{
		env:     e,
		ctx:     ctx,
		name:    leaf.name,
		context: contextVal,
		out:     &strings.Builder{},
		blocks:  make(map[string]*blockStack, len(res.blocks)),
		fuel:    fuel,
	}
	for name, defs := range res.blocks {
		s.blocks[name] = &blockStack{defs: defs, index: len(defs) - 1}
	}

	for _, node := range res.skeleton {
		if err := s.evalNode(node); err != nil {
			return "", err
		}
	}

	if fuel != nil {
		zerolog.Ctx(ctx).Debug().
			Str("template", leaf.name).
			Uint64("consumed", fuel.consumedFuel()).
			Uint64("remaining", fuel.remainingFuel()).
			Msg("render fuel usage")
	}
	return s.out.String(), nil
}

// resolveCompiled resolves a template that is already parsed, avoiding a
// second loader round trip for the leaf.
func (e *Environment) resolveCompiled(ctx context.Context, leaf *compiledTemplate) (*resolution, error) {
	if leaf.ast.Extends == nil {
		res := &resolution{
			chain:    []*compiledTemplate{leaf},
			blocks:   make(map[string][]blockDef),
			skeleton: leaf.ast.Children,
		}
		collectBlocks(leaf, leaf.ast.Children, res.blocks)
		for _, node := range leaf.ast.Children {
			switch node.(type) {
			case *parser.Block, *parser.Extends:
			default:
				res.leafContent = append(res.leafContent, node)
			}
		}
		return res, nil
	}

	// The leaf may be an unstored template (TemplateFromString); register
	// nothing and resolve through its parent instead.
	parentRes, err := e.resolve(ctx, leaf.ast.Extends.Name)
	if err != nil {
		return nil, err
	}
	for _, tmpl := range parentRes.chain {
		if tmpl.name == leaf.name {
			return nil, NewError(ErrCyclicExtends,
				fmt.Sprintf("template %q appears twice in its extends chain", leaf.name)).
				WithName(leaf.name)
		}
	}

	res := &resolution{
		chain:    append(parentRes.chain, leaf),
		blocks:   parentRes.blocks,
		skeleton: parentRes.skeleton,
	}
	collectBlocks(leaf, leaf.ast.Children, res.blocks)
	for _, node := range leaf.ast.Children {
		switch node.(type) {
		case *parser.Block, *parser.Extends:
		default:
			res.leafContent = append(res.leafContent, node)
		}
	}
	return res, nil
}

func (s *State) evalNode(node parser.Node) error {
	if s.fuel != nil {
		if err := s.fuel.consume(1); err != nil {
			return err
		}
	}

	switch n := node.(type) {
	case *parser.Text:
		s.out.WriteString(n.Text)
		return nil

	case *parser.Variable:
		return s.evalVariable(n)

	case *parser.Block:
		return s.evalBlock(n)

	case *parser.Super:
		return s.evalSuper(n)

	case *parser.Include:
		return s.evalInclude(n)

	case *parser.Extends:
		// Consumed during resolution; nothing renders here.
		return nil

	default:
		return NewError(ErrInvalidOperation,
			fmt.Sprintf("cannot render node %T", node)).WithName(s.name)
	}
}

func (s *State) evalVariable(v *parser.Variable) error {
	val := s.context.Traverse(v.Path)
	if val.IsUndefined() {
		if s.env.undefinedBehavior == UndefinedStrict {
			return NewError(ErrUndefinedVar,
				fmt.Sprintf("variable %q is undefined", strings.Join(v.Path, "."))).
				WithName(s.name).
				WithSpan(v.Span())
		}
		// Lenient behavior: undefined renders as the empty string.
		zerolog.Ctx(s.ctx).Debug().
			Str("template", s.name).
			Str("path", strings.Join(v.Path, ".")).
			Msg("undefined variable rendered as empty string")
		return nil
	}
	s.out.WriteString(val.String())
	return nil
}

// evalBlock renders a block placeholder with the most derived definition
// of that name.
func (s *State) evalBlock(b *parser.Block) error {
	bs := s.blocks[b.Name]
	if bs == nil || len(bs.defs) == 0 {
		// Placeholders always register their own body during resolution,
		// so this only happens for hand-built node trees.
		return NewError(ErrInvalidOperation,
			fmt.Sprintf("no definition for block %q", b.Name)).WithName(s.name)
	}
	return s.renderBlockDef(b.Name, len(bs.defs)-1)
}

// evalSuper renders the next-less-derived definition of the enclosing
// block, in document order at the position of the super node.
func (s *State) evalSuper(sup *parser.Super) error {
	if s.currentBlock == "" {
		return NewError(ErrInvalidOperation, "super outside a block render").
			WithName(s.name).
			WithSpan(sup.Span())
	}
	bs := s.blocks[s.currentBlock]
	if bs.index == 0 {
		return NewError(ErrNoSuperDefinition,
			fmt.Sprintf("block %q has no parent definition", s.currentBlock)).
			WithName(s.name).
			WithSpan(sup.Span())
	}
	return s.renderBlockDef(s.currentBlock, bs.index-1)
}

// renderBlockDef renders one definition of a named block directly into the
// shared output.
func (s *State) renderBlockDef(name string, index int) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	bs := s.blocks[name]
	oldBlock, oldIndex := s.currentBlock, bs.index
	s.currentBlock = name
	bs.index = index
	defer func() {
		s.currentBlock = oldBlock
		bs.index = oldIndex
	}()

	for _, node := range bs.defs[index].body {
		if err := s.evalNode(node); err != nil {
			return err
		}
	}
	return nil
}

// evalInclude renders the named template as an independent render with the
// same context, splicing its output inline. An included template's own
// extends chain resolves independently of the including template.
func (s *State) evalInclude(inc *parser.Include) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	compiled, err := s.env.getCompiled(inc.Name)
	if err != nil {
		if engineErr, ok := err.(*Error); ok && engineErr.Kind == ErrTemplateNotFound {
			return engineErr.WithSpan(inc.Span())
		}
		return err
	}

	res, err := s.env.resolveCompiled(s.ctx, compiled)
	if err != nil {
		return err
	}

	child := &State{
		env:     s.env,
		ctx:     s.ctx,
		name:    compiled.name,
		context: s.context,
		out:     s.out, // share the output sink
		blocks:  make(map[string]*blockStack, len(res.blocks)),
		depth:   s.depth,
		fuel:    s.fuel,
	}
	for name, defs := range res.blocks {
		child.blocks[name] = &blockStack{defs: defs, index: len(defs) - 1}
	}

	for _, node := range res.skeleton {
		if err := child.evalNode(node); err != nil {
			return err
		}
	}
	return nil
}

// enter counts one level of include/super nesting and converts runaway
// recursion into a reported error.
func (s *State) enter() error {
	s.depth++
	if s.depth > s.env.maxDepth {
		return NewError(ErrMaxDepthExceeded,
			fmt.Sprintf("render exceeded maximum depth of %d", s.env.maxDepth)).
			WithName(s.name)
	}
	return nil
}

func (s *State) leave() {
	s.depth--
}
