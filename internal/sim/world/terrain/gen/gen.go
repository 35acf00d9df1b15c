package gen

import (
	"strings"

	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/world/logic/mathx"
	"tilestream.dev/internal/sim/world/terrain/store"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

var (
	ErrMissingGeneratorResult = eris.New("generator produced no chunk")
	ErrUnknownGenerator       = eris.New("unknown generator")
)

// Context gives generators read access to chunks that are already resident.
// It may be nil.
type Context interface {
	ChunkAtAbsolute(abs store.Coord) *store.Chunk
}

// Generator produces chunk content as a pure function of the absolute chunk
// coordinate, so an evicted chunk regenerates identically.
type Generator interface {
	Generate(abs store.Coord, ctx Context) (*store.Chunk, error)
}

type Params struct {
	Seed     int64
	SurfaceY int64

	// Hills only.
	Amplitude       float64
	Wavelength      float64
	BiomeRegionSize int64
}

func New(kind string, p Params) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "layered":
		return Layered{SurfaceY: p.SurfaceY}, nil
	case "hills":
		return NewHills(p), nil
	default:
		return nil, eris.Wrapf(ErrUnknownGenerator, "%q", kind)
	}
}

// Validate generates the origin chunk once. A generator that cannot is a
// configuration error.
func Validate(g Generator) error {
	if g == nil {
		return eris.Wrap(ErrMissingGeneratorResult, "nil generator")
	}
	ch, err := g.Generate(store.Coord{}, nil)
	if err != nil {
		return eris.Wrapf(ErrMissingGeneratorResult, "origin chunk: %v", err)
	}
	if ch == nil {
		return eris.Wrap(ErrMissingGeneratorResult, "origin chunk")
	}
	return nil
}

const (
	grassRows = 2
	dirtRows  = 10
	stoneRows = 10
)

// layerAt is the tile depth tiles below the surface (depth 0 is the top
// tile). Variants count rows within a layer.
func layerAt(depth int64, capping tile.Type) tile.Tile {
	switch {
	case depth < 0:
		return tile.Tile{}
	case depth < grassRows:
		return tile.Tile{Type: capping, Variant: uint32(depth)}
	case depth < grassRows+dirtRows:
		return tile.Tile{Type: tile.Dirt, Variant: uint32(depth - grassRows)}
	case depth < grassRows+dirtRows+stoneRows:
		return tile.Tile{Type: tile.Stone, Variant: uint32(depth - grassRows - dirtRows)}
	default:
		return tile.Tile{Type: tile.Rock}
	}
}

type biome int

const (
	plains biome = iota
	desert
)

func biomeAt(seed int64, x, regionSize int64) biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	if mathx.Hash2(seed, mathx.FloorDiv(x, regionSize), 0)%3 == 0 {
		return desert
	}
	return plains
}
