package store

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilestream.dev/internal/sim/world/terrain/tile"
)

type testEntity struct {
	id  string
	pos mgl32.Vec2
}

func (e *testEntity) ID() string                                    { return e.id }
func (e *testEntity) LocalPosition() mgl32.Vec2                     { return e.pos }
func (e *testEntity) SetLocalPosition(p mgl32.Vec2)                 { e.pos = p }
func (e *testEntity) Shift(d mgl32.Vec2)                            { e.pos = e.pos.Add(d) }
func (e *testEntity) Update(_, _ time.Duration, _ *Container) error { return nil }

type countingLoader struct {
	c     *Container
	calls int
}

func (l *countingLoader) LoadChunk(abs Coord) (*Chunk, error) {
	l.calls++
	ch := New(abs)
	ch.Fill(tile.Rock)
	ch.ClearModified()
	l.c.SetChunkAbsolute(abs, ch)
	return ch, nil
}

func TestDualAddressing(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	c.Shift(Coord{X: 10, Y: -4})

	ch := New(Coord{})
	c.SetChunk(Coord{X: 1, Y: 1}, ch)

	assert.Equal(t, Coord{X: 11, Y: -3}, ch.Coord())
	assert.Same(t, ch, c.ChunkAt(Coord{X: 1, Y: 1}))
	assert.Same(t, ch, c.ChunkAtAbsolute(Coord{X: 11, Y: -3}))
	assert.Nil(t, c.ChunkAt(Coord{X: 11, Y: -3}))

	removed := c.EraseChunk(Coord{X: 1, Y: 1})
	assert.Same(t, ch, removed)
	assert.True(t, removed.Released())
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.EraseChunkAbsolute(Coord{X: 11, Y: -3}))
}

func TestSetChunkReplacesAndReleasesPrevious(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	a, b := New(Coord{}), New(Coord{})
	c.SetChunkAbsolute(Coord{}, a)
	c.SetChunkAbsolute(Coord{}, b)
	assert.True(t, a.Released())
	assert.False(t, b.Released())
	assert.Same(t, b, c.ChunkAtAbsolute(Coord{}))
}

func TestChunkAtDoesNotLoad(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	l := &countingLoader{c: c}
	c.SetLoader(l)
	assert.Nil(t, c.ChunkAt(Coord{X: 2}))
	assert.Nil(t, c.ChunkAtAbsolute(Coord{X: 2}))
	assert.Equal(t, 0, l.calls)
}

func TestTileAtLoadsOnDemand(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	l := &countingLoader{c: c}
	c.SetLoader(l)

	p, err := c.TileAt(TilePos{X: -1, Y: -1})
	require.NoError(t, err)
	assert.Equal(t, tile.Rock, p.Type)
	assert.Equal(t, 1, l.calls)

	ch := c.ChunkAtAbsolute(Coord{X: -1, Y: -1})
	require.NotNil(t, ch)
	assert.True(t, ch.Dirty())

	p.Type = tile.Sand
	assert.Equal(t, tile.Sand, c.PeekTile(TilePos{X: -1, Y: -1}).Type)

	_, err = c.TileAt(TilePos{X: -32, Y: -32})
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)
}

func TestTileAtWithoutLoader(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	_, err := c.TileAt(TilePos{X: 5, Y: 5})
	assert.ErrorIs(t, err, ErrNotResident)
}

func TestPeekTileNeverLoads(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	l := &countingLoader{c: c}
	c.SetLoader(l)

	got := c.PeekTile(TilePos{X: 100, Y: -100})
	assert.Equal(t, tile.Tile{}, got)
	assert.Equal(t, 0, l.calls)
	assert.Equal(t, 0, c.Len())
}

func TestShiftPreservesWorldPositions(t *testing.T) {
	c := NewContainer(GeometryOptions{TileResolution: 8})
	e := &testEntity{id: "e", pos: mgl32.Vec2{3.5, -7.25}}
	c.AddEntity(e)
	ch := New(Coord{})
	c.SetChunkAbsolute(Coord{X: 2, Y: 2}, ch)

	span := c.ChunkSpan()
	for _, delta := range []Coord{{X: 1}, {Y: -1}, {X: -3, Y: 2}, {X: 0, Y: 0}} {
		before := c.WorldPosition(e)
		localBefore := e.LocalPosition()
		localChunk := c.ToLocal(Coord{X: 2, Y: 2})
		offset := c.Offset()

		c.Shift(delta)

		assert.Equal(t, offset.Add(delta), c.Offset(), "offset grows by delta")
		assert.Equal(t, before, c.WorldPosition(e), "delta %v", delta)
		want := localBefore.Sub(mgl32.Vec2{float32(delta.X) * span, float32(delta.Y) * span})
		assert.Equal(t, want, e.LocalPosition())
		assert.Equal(t, localChunk.Sub(delta), c.ToLocal(Coord{X: 2, Y: 2}))
		assert.Same(t, ch, c.ChunkAtAbsolute(Coord{X: 2, Y: 2}))
	}
}

func TestLocalToTileFollowsOffset(t *testing.T) {
	c := NewContainer(GeometryOptions{TileResolution: 16})
	assert.Equal(t, TilePos{X: 0, Y: 0}, c.LocalToTile(mgl32.Vec2{0.5, 15.9}))
	assert.Equal(t, TilePos{X: -1, Y: -1}, c.LocalToTile(mgl32.Vec2{-0.1, -0.1}))

	c.Shift(Coord{X: 1, Y: -1})
	assert.Equal(t, TilePos{X: Size, Y: -Size}, c.LocalToTile(mgl32.Vec2{0, 0}))
}

func TestEntitiesRegistry(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	a := &testEntity{id: "a"}
	c.AddEntity(a)
	c.AddEntity(a)
	c.AddEntity(&testEntity{id: "b"})
	require.Len(t, c.Entities(), 2)
	assert.True(t, c.RemoveEntity("a"))
	assert.False(t, c.RemoveEntity("a"))
	require.Len(t, c.Entities(), 1)
	assert.Equal(t, "b", c.Entities()[0].ID())
}

func TestKeysSorted(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	for _, k := range []Coord{{X: 1, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: -5}} {
		c.SetChunkAbsolute(k, New(k))
	}
	assert.Equal(t, []Coord{{X: 0, Y: -5}, {X: -1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 1}}, c.Keys())
}

func TestBuildUsesChunkAboveForGrassEdges(t *testing.T) {
	c := NewContainer(DefaultGeometry)
	below := New(Coord{})
	above := New(Coord{})
	c.SetChunkAbsolute(Coord{X: 0, Y: 0}, below)
	c.SetChunkAbsolute(Coord{X: 0, Y: 1}, above)

	require.NoError(t, below.Set(0, Size-1, tile.Tile{Type: tile.Grass}))
	below.Build()
	g1, _ := below.PublishGeometry()

	require.NoError(t, above.Set(0, 0, tile.Tile{Type: tile.Grass}))
	below.Build()
	g2, _ := below.PublishGeometry()

	require.Equal(t, 1, g1.QuadCount())
	require.Equal(t, 1, g2.QuadCount())
	assert.NotEqual(t, g1.Vertices[0].UV, g2.Vertices[0].UV)
}

func TestEdgeChangesAboveRebuildChunkBelow(t *testing.T) {
	edgeUV := func(ch *Chunk) mgl32.Vec2 {
		t.Helper()
		ch.Update(0, 0)
		require.False(t, ch.Dirty())
		g, ok := ch.PublishGeometry()
		require.True(t, ok)
		require.Equal(t, 1, g.QuadCount())
		return g.Vertices[0].UV
	}

	c := NewContainer(DefaultGeometry)
	below := New(Coord{})
	c.SetChunkAbsolute(Coord{}, below)
	require.NoError(t, below.Set(0, Size-1, tile.Tile{Type: tile.Grass}))
	open := edgeUV(below)

	above := New(Coord{})
	require.NoError(t, above.Set(0, 0, tile.Tile{Type: tile.Grass}))
	c.SetChunkAbsolute(Coord{Y: 1}, above)
	assert.True(t, below.Dirty(), "chunk placed above")
	covered := edgeUV(below)
	assert.NotEqual(t, open, covered)

	require.NoError(t, above.Set(0, 0, tile.Tile{}))
	assert.True(t, below.Dirty(), "bottom row above edited")
	assert.Equal(t, open, edgeUV(below))

	require.NoError(t, above.Set(0, 1, tile.Tile{Type: tile.Grass}))
	assert.False(t, below.Dirty(), "rows off the edge do not matter")

	above.Fill(tile.Grass)
	assert.True(t, below.Dirty(), "fill above")
	assert.Equal(t, covered, edgeUV(below))

	c.EraseChunkAbsolute(Coord{Y: 1})
	assert.True(t, below.Dirty(), "chunk above erased")
	assert.Equal(t, open, edgeUV(below))

	// A released chunk no longer reaches its old neighbor.
	require.NoError(t, above.Set(0, 0, tile.Tile{}))
	assert.False(t, below.Dirty())
}
