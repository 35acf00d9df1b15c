package store

import (
	"fmt"

	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/logic/mathx"
)

// Size is the edge length of a chunk in tiles.
const Size = 32

var (
	ErrOutOfRange  = eris.New("tile coordinate out of range")
	ErrNotResident = eris.New("chunk not resident")
)

// Coord is a chunk coordinate. Whether it is absolute or local (relative to
// the container offset) depends on the call site.
type Coord struct {
	X int64
	Y int64
}

func (c Coord) Add(o Coord) Coord { return Coord{X: c.X + o.X, Y: c.Y + o.Y} }
func (c Coord) Sub(o Coord) Coord { return Coord{X: c.X - o.X, Y: c.Y - o.Y} }
func (c Coord) String() string    { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// TilePos is an absolute tile coordinate.
type TilePos struct {
	X int64
	Y int64
}

// Decompose splits an absolute tile position into its chunk and the
// in-chunk position. The in-chunk position is always within [0, Size).
func Decompose(p TilePos) (c Coord, lx, ly int) {
	c = Coord{X: mathx.FloorDiv(p.X, Size), Y: mathx.FloorDiv(p.Y, Size)}
	lx = int(mathx.Mod(p.X, Size))
	ly = int(mathx.Mod(p.Y, Size))
	return c, lx, ly
}

// Compose is the inverse of Decompose.
func Compose(c Coord, lx, ly int) TilePos {
	return TilePos{X: c.X*Size + int64(lx), Y: c.Y*Size + int64(ly)}
}

func inChunk(lx, ly int) bool {
	return lx >= 0 && lx < Size && ly >= 0 && ly < Size
}

func index(lx, ly int) int {
	return lx + ly*Size
}
