package world

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CellKey addresses one unit of world content: exterior cells by grid
// coordinate, interiors by unique name.
type CellKey struct {
	X, Z     int
	Interior string
}

func ExteriorKey(x, z int) CellKey {
	return CellKey{X: x, Z: z}
}

func InteriorKey(name string) CellKey {
	return CellKey{Interior: name}
}

func (k CellKey) IsInterior() bool {
	return k.Interior != ""
}

func (k CellKey) String() string {
	if k.IsInterior() {
		return k.Interior
	}
	return fmt.Sprintf("%d,%d", k.X, k.Z)
}

// ParseCellKey is the inverse of String, used by the diagnostics routes.
func ParseCellKey(s string) (CellKey, error) {
	if comma := strings.IndexByte(s, ','); comma >= 0 {
		x, errX := strconv.Atoi(s[:comma])
		z, errZ := strconv.Atoi(s[comma+1:])
		if errX != nil || errZ != nil {
			return CellKey{}, errors.Errorf("Bad exterior cell key %q", s)
		}
		return ExteriorKey(x, z), nil
	}
	if s == "" {
		return CellKey{}, errors.Errorf("Empty cell key")
	}
	return InteriorKey(s), nil
}

// Terrain is the per-cell heightfield payload of exterior cells.
type Terrain struct {
	Size    int // heights per side
	Heights []float32
}

func (t *Terrain) At(x, z int) float32 {
	return t.Heights[z*t.Size+x]
}

// Cell is immutable once parsed; the streaming engine only reads it.
type Cell struct {
	Key     CellKey
	Objects []ObjectRef
	Terrain *Terrain // nil for interiors
}
