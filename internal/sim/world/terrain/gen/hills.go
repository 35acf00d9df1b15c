package gen

import (
	"math"

	"github.com/aquilax/go-perlin"

	"tilestream.dev/internal/sim/world/terrain/store"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

// Hills perturbs the surface height per tile column with 1D perlin noise and
// caps desert regions with sand. Same seed, same terrain.
type Hills struct {
	seed       int64
	surfaceTop int64
	amplitude  float64
	wavelength float64
	regionSize int64
	noise      *perlin.Perlin
}

func NewHills(p Params) *Hills {
	if p.Amplitude <= 0 {
		p.Amplitude = 12
	}
	if p.Wavelength <= 0 {
		p.Wavelength = 96
	}
	if p.BiomeRegionSize <= 0 {
		p.BiomeRegionSize = 256
	}
	return &Hills{
		seed:       p.Seed,
		surfaceTop: p.SurfaceY*store.Size + store.Size - 1,
		amplitude:  p.Amplitude,
		wavelength: p.Wavelength,
		regionSize: p.BiomeRegionSize,
		noise:      perlin.NewPerlin(2, 2, 3, p.Seed),
	}
}

// SurfaceAt is the absolute y of the top solid tile in column x.
func (g *Hills) SurfaceAt(x int64) int64 {
	n := g.noise.Noise1D(float64(x) / g.wavelength)
	return g.surfaceTop + int64(math.Round(n*g.amplitude))
}

func (g *Hills) Generate(abs store.Coord, _ Context) (*store.Chunk, error) {
	ch := store.New(abs)
	for lx := 0; lx < store.Size; lx++ {
		x := abs.X*store.Size + int64(lx)
		top := g.SurfaceAt(x)
		capping := tile.Grass
		if biomeAt(g.seed, x, g.regionSize) == desert {
			capping = tile.Sand
		}
		for ly := 0; ly < store.Size; ly++ {
			y := abs.Y*store.Size + int64(ly)
			t := layerAt(top-y, capping)
			if !t.Render() {
				continue
			}
			if err := ch.Set(lx, ly, t); err != nil {
				return nil, err
			}
		}
	}
	ch.ClearModified()
	return ch, nil
}
