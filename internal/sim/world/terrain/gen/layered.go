package gen

import (
	"tilestream.dev/internal/sim/world/terrain/store"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

// Layered is flat terrain. Chunk rows below SurfaceY are rock, the surface
// row is capped with grass, dirt and stone, and rows above are empty.
type Layered struct {
	SurfaceY int64
}

func (g Layered) Generate(abs store.Coord, _ Context) (*store.Chunk, error) {
	ch := store.New(abs)
	switch {
	case abs.Y < g.SurfaceY:
		ch.Fill(tile.Rock)
	case abs.Y == g.SurfaceY:
		for ly := 0; ly < store.Size; ly++ {
			t := layerAt(int64(store.Size-1-ly), tile.Grass)
			for lx := 0; lx < store.Size; lx++ {
				if err := ch.Set(lx, ly, t); err != nil {
					return nil, err
				}
			}
		}
	}
	ch.ClearModified()
	return ch, nil
}
