package lexer

// SyntaxConfig holds the delimiters for template syntax.
type SyntaxConfig struct {
	BlockStart   string
	BlockEnd     string
	VarStart     string
	VarEnd       string
	CommentStart string
	CommentEnd   string
}

// DefaultSyntax returns the default delimiter configuration.
func DefaultSyntax() SyntaxConfig {
	return SyntaxConfig{
		BlockStart:   "{%",
		BlockEnd:     "%}",
		VarStart:     "{{",
		VarEnd:       "}}",
		CommentStart: "{#",
		CommentEnd:   "#}",
	}
}

// WhitespaceConfig holds whitespace handling configuration.
//
// Whitespace trimming around tags is a presentation policy, not a semantic
// one: block and include output is identical regardless of configuration,
// only the surrounding literal text changes.
type WhitespaceConfig struct {
	KeepTrailingNewline bool
	LstripBlocks        bool
	TrimBlocks          bool
}

// DefaultWhitespace returns the default whitespace configuration.
func DefaultWhitespace() WhitespaceConfig {
	return WhitespaceConfig{
		KeepTrailingNewline: false,
		LstripBlocks:        false,
		TrimBlocks:          false,
	}
}
