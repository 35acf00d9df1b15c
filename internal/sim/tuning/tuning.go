package tuning

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	WorldID        string  `yaml:"world_id"`
	TickRateHz     int     `yaml:"tick_rate_hz"`
	Seed           int64   `yaml:"seed"`
	TileResolution float32 `yaml:"tile_resolution"`

	LoadRadius   int `yaml:"load_radius"`
	EvictRadius  int `yaml:"evict_radius"`
	RenderRadius int `yaml:"render_radius"`

	EvictCacheMB       int `yaml:"evict_cache_mb"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Generator  Generator  `yaml:"generator"`
	Atlas      Atlas      `yaml:"atlas"`
	MainEntity MainEntity `yaml:"main_entity"`
	Observer   Observer   `yaml:"observer"`
	ChunkDB    ChunkDB    `yaml:"chunk_db"`
}

type Generator struct {
	Kind            string  `yaml:"kind"`
	SurfaceY        int64   `yaml:"surface_y"`
	Amplitude       float64 `yaml:"amplitude"`
	Wavelength      float64 `yaml:"wavelength"`
	BiomeRegionSize int64   `yaml:"biome_region_size"`
}

type Atlas struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

type MainEntity struct {
	Spawn    [2]float32 `yaml:"spawn"`
	Velocity [2]float32 `yaml:"velocity"`
	Solid    bool       `yaml:"solid"`
}

type Observer struct {
	FrameHz     int `yaml:"frame_hz"`
	ChunkRadius int `yaml:"chunk_radius"`
}

type ChunkDB struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func Defaults() Tuning {
	return Tuning{
		WorldID:        "world_1",
		TickRateHz:     30,
		Seed:           1337,
		TileResolution: 16,
		LoadRadius:     2,
		EvictRadius:    4,
		RenderRadius:   4,
		EvictCacheMB:   16,
		Generator: Generator{
			Kind:            "layered",
			Amplitude:       12,
			Wavelength:      96,
			BiomeRegionSize: 256,
		},
		Atlas:    Atlas{Cols: 32, Rows: 8},
		Observer: Observer{FrameHz: 20, ChunkRadius: 3},
		ChunkDB:  ChunkDB{Enabled: true},
	}
}

// Load reads a tuning file on top of Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, eris.Wrap(err, "tuning.yaml")
	}
	return t, nil
}
