package loom

import (
	"io/fs"

	pkgerrors "github.com/pkg/errors"
)

// MapLoader returns a LoaderFunc serving templates from an in-memory map.
// Useful for tests and embedded fixtures.
func MapLoader(templates map[string]string) LoaderFunc {
	return func(name string) (string, error) {
		source, ok := templates[name]
		if !ok {
			return "", NewError(ErrTemplateNotFound, name)
		}
		return source, nil
	}
}

// FSLoader returns a LoaderFunc reading templates from a filesystem, e.g.
// os.DirFS or an embed.FS. Missing files map to ErrTemplateNotFound; other
// read failures are wrapped and propagated as-is.
func FSLoader(fsys fs.FS) LoaderFunc {
	return func(name string) (string, error) {
		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			if pkgerrors.Is(err, fs.ErrNotExist) {
				return "", NewError(ErrTemplateNotFound, name).WithCause(err)
			}
			return "", pkgerrors.Wrapf(err, "reading template %q", name)
		}
		return string(contents), nil
	}
}
