package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loomkit/loom"
)

type renderOptions struct {
	templatesDir string
	contextFile  string
	outFile      string
	strict       bool
	verbose      bool
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a named template",
		Long: `Render resolves the named template's extends chain, merges its block
overrides, splices includes, and writes the output.

Example:

  loom render home.tpl --templates ./templates --context ./context.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.templatesDir, "templates", "t", ".", "directory to load templates from")
	cmd.Flags().StringVarP(&opts.contextFile, "context", "c", "", "YAML file with the render context")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on undefined variables")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log resolution details to stderr")

	return cmd
}

func runRender(cmd *cobra.Command, name string, opts *renderOptions) error {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	data, err := loadContext(opts.contextFile)
	if err != nil {
		return err
	}

	env := loom.NewEnvironment()
	env.SetLoader(loom.FSLoader(os.DirFS(opts.templatesDir)))
	if opts.strict {
		env.SetUndefinedBehavior(loom.UndefinedStrict)
	}

	output, err := env.Render(ctx, name, data)
	if err != nil {
		return pkgerrors.Wrapf(err, "rendering %q", name)
	}

	if opts.outFile != "" {
		if err := os.WriteFile(opts.outFile, []byte(output), 0o644); err != nil {
			return pkgerrors.Wrapf(err, "writing %q", opts.outFile)
		}
		return nil
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}

// loadContext reads the render context from a YAML file. A missing flag
// yields an empty context rather than an error.
func loadContext(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading context file %q", path)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, pkgerrors.Wrapf(err, "parsing context file %q", path)
	}
	return data, nil
}
