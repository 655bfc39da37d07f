package world

import (
	"io"

	"github.com/pkg/errors"
)

// ErrNotFound is the recoverable "content does not exist" outcome. The cell
// loader treats it as skip-with-log, never as a cell failure.
var ErrNotFound = errors.New("not found")

func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// Source is the data layer seam. Implementations wrap the real binary
// parsers (archive reader, record parser, model converter); the streaming
// engine only ever sees parsed results.
type Source interface {
	ParseCell(key CellKey) (*Cell, error)
	ParseAsset(id string) (*AssetSpec, error)

	// OpenTexture returns the encoded image bytes behind one resolved
	// texture path. The texture cache probes candidate paths through it.
	OpenTexture(path string) (io.ReadCloser, error)
}
