package tile

// Atlas addresses one cell of the tile texture atlas.
type Atlas struct {
	Col int
	Row int
}

// Hint carries the positional context used for auto-tiling.
type Hint struct {
	X, Y  int64 // absolute tile position
	Above Type
}

const (
	rowGrass = iota
	rowDirt
	rowStone
	rowRock
	rowSand
)

// depthBands bounds the variant columns for layered types; deeper variants
// reuse the last band.
const depthBands = 10

// TextureVariant picks the atlas cell for t. Adjacent tiles of one type
// alternate by horizontal parity so rows do not repeat visibly.
func (t Tile) TextureVariant(h Hint) Atlas {
	parity := int(h.X & 1)
	switch t.Type {
	case Null:
		return Atlas{}
	case Grass:
		band := 0
		if t.Variant == 1 || h.Above == Grass {
			band = 1
		}
		return Atlas{Col: band*2 + parity, Row: rowGrass}
	case Dirt:
		return Atlas{Col: layeredBand(t.Variant)*2 + parity, Row: rowDirt}
	case Stone:
		return Atlas{Col: layeredBand(t.Variant)*2 + parity, Row: rowStone}
	case Rock:
		return Atlas{Col: int((h.X ^ h.Y) & 1), Row: rowRock}
	case Sand:
		return Atlas{Col: parity, Row: rowSand}
	default:
		return Atlas{}
	}
}

func layeredBand(v uint32) int {
	if v >= depthBands {
		return depthBands - 1
	}
	return int(v)
}
