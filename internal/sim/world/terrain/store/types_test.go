package store

import (
	"math"
	"testing"
)

func TestDecomposeComposeRoundTrip(t *testing.T) {
	values := []int64{0, 1, 31, 32, 33, -1, -31, -32, -33, -64, 1 << 40, -(1 << 40), math.MaxInt64 / 64, math.MinInt64 / 64}
	for _, x := range values {
		for _, y := range values {
			p := TilePos{X: x, Y: y}
			c, lx, ly := Decompose(p)
			if lx < 0 || lx >= Size || ly < 0 || ly >= Size {
				t.Fatalf("local out of range for %+v: (%d,%d)", p, lx, ly)
			}
			if got := Compose(c, lx, ly); got != p {
				t.Fatalf("round trip %+v -> %v (%d,%d) -> %+v", p, c, lx, ly, got)
			}
		}
	}
}

func TestDecomposeNegativeUsesFloor(t *testing.T) {
	c, lx, ly := Decompose(TilePos{X: -1, Y: -32})
	if c != (Coord{X: -1, Y: -1}) || lx != Size-1 || ly != 0 {
		t.Fatalf("got %v (%d,%d)", c, lx, ly)
	}
}
