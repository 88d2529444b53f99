package loom

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/parser"
)

// blockDef is one definition of a named block, tagged with the template
// that declared it.
type blockDef struct {
	tmpl *compiledTemplate
	body []parser.Node
}

// resolution is the flattened view of a template's inheritance: the extends
// chain root-first, every block definition along it, and the structural
// skeleton rendering walks.
type resolution struct {
	// chain lists the templates root-first; the requested leaf is last.
	chain []*compiledTemplate

	// blocks maps block name to its definitions in chain order, so index 0
	// is the root-most definition and the last index the most derived
	// override. Nested blocks register as independent entries.
	blocks map[string][]blockDef

	// skeleton is the root template's top-level node sequence. Rendering
	// walks it and substitutes the most derived definition at each block
	// placeholder.
	skeleton []parser.Node

	// leafContent is the leaf's non-block top-level content. It equals the
	// non-block part of skeleton when the leaf is its own root; for longer
	// chains it is retained for inspection but does not render, since only
	// the root contributes structure outside of blocks.
	leafContent []parser.Node
}

// resolve walks the extends chain from the requested leaf up to its root
// and flattens it into a resolution.
func (e *Environment) resolve(ctx context.Context, leafName string) (res *resolution, err error) {
	ctx, finish := startResolveSpan(ctx, leafName)
	defer func() { finish(err) }()

	visited := make(map[string]bool)
	var reversed []*compiledTemplate

	current := leafName
	for {
		if visited[current] {
			return nil, NewError(ErrCyclicExtends,
				fmt.Sprintf("template %q appears twice in its extends chain", current)).
				WithName(leafName)
		}
		visited[current] = true

		compiled, err := e.getCompiled(current)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, compiled)

		if compiled.ast.Extends == nil {
			break
		}
		current = compiled.ast.Extends.Name
	}

	// Reverse into root-first order.
	chain := make([]*compiledTemplate, len(reversed))
	for i, t := range reversed {
		chain[len(reversed)-1-i] = t
	}

	res = &resolution{
		chain:    chain,
		blocks:   make(map[string][]blockDef),
		skeleton: chain[0].ast.Children,
	}
	for _, tmpl := range chain {
		collectBlocks(tmpl, tmpl.ast.Children, res.blocks)
	}

	leaf := chain[len(chain)-1]
	for _, node := range leaf.ast.Children {
		switch node.(type) {
		case *parser.Block, *parser.Extends:
		default:
			res.leafContent = append(res.leafContent, node)
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("template", leafName).
		Int("chain_length", len(chain)).
		Int("blocks", len(res.blocks)).
		Msg("resolved inheritance chain")

	return res, nil
}

// collectBlocks appends every block definition in nodes under its name,
// recursing so that nested blocks become independent entries.
func collectBlocks(tmpl *compiledTemplate, nodes []parser.Node, table map[string][]blockDef) {
	for _, node := range nodes {
		block, ok := node.(*parser.Block)
		if !ok {
			continue
		}
		table[block.Name] = append(table[block.Name], blockDef{tmpl: tmpl, body: block.Body})
		collectBlocks(tmpl, block.Body, table)
	}
}
