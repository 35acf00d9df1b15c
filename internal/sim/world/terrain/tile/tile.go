package tile

import (
	"strings"
	"time"
)

type Type uint8

const (
	Null Type = iota
	Grass
	Dirt
	Stone
	Rock
	Sand
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Grass:
		return "grass"
	case Dirt:
		return "dirt"
	case Stone:
		return "stone"
	case Rock:
		return "rock"
	case Sand:
		return "sand"
	default:
		return "unknown"
	}
}

// ParseType maps a config name to a Type. Unknown names map to Null.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "air", "":
		return Null, true
	case "grass":
		return Grass, true
	case "dirt":
		return Dirt, true
	case "stone":
		return Stone, true
	case "rock":
		return Rock, true
	case "sand":
		return Sand, true
	default:
		return Null, false
	}
}

// Tile is the smallest unit of world content. It is copied by value.
type Tile struct {
	Type    Type
	Variant uint32
	// Custom is an opaque per-tile payload.
	Custom uint64
}

func (t Tile) Render() bool    { return t.Type != Null }
func (t Tile) Collision() bool { return t.Type != Null }

// Update is the per-tile simulation hook, called once per chunk update.
// No current type animates.
func (t *Tile) Update(now, dt time.Duration) {}

// Destroy resets the tile and returns what was there so the caller can
// emit removal effects.
func (t *Tile) Destroy() Tile {
	prev := *t
	*t = Tile{}
	return prev
}

// Clear resets the tile without effects.
func (t *Tile) Clear() {
	*t = Tile{}
}
