package store

import (
	"testing"

	snapv1 "tilestream.dev/internal/persistence/snapshot"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

func TestExportAndImportChunksRoundTrip(t *testing.T) {
	src := NewContainer(DefaultGeometry)
	ch := New(Coord{})
	ch.Fill(tile.Rock)
	if err := ch.Set(3, 4, tile.Tile{Type: tile.Dirt, Variant: 7, Custom: 42}); err != nil {
		t.Fatalf("set: %v", err)
	}
	src.SetChunkAbsolute(Coord{X: 1, Y: -2}, ch)

	exported, err := ExportChunks(src)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 1 || exported[0].CX != 1 || exported[0].CY != -2 || !exported[0].Modified {
		t.Fatalf("unexpected export: %+v", exported)
	}

	dst := NewContainer(DefaultGeometry)
	if err := ImportChunks(dst, exported); err != nil {
		t.Fatalf("import: %v", err)
	}
	got := dst.ChunkAtAbsolute(Coord{X: 1, Y: -2})
	if got == nil {
		t.Fatalf("missing imported chunk")
	}
	tl, _ := got.Peek(3, 4)
	if tl != (tile.Tile{Type: tile.Dirt, Variant: 7, Custom: 42}) {
		t.Fatalf("unexpected tile: %+v", tl)
	}
	if !got.Modified() {
		t.Fatalf("modified flag lost")
	}
}

func TestImportChunksRejectsInvalidBlob(t *testing.T) {
	err := ImportChunks(NewContainer(DefaultGeometry), []snapv1.ChunkV1{{CX: 0, CY: 0, Tiles: []byte("nope")}})
	if err == nil {
		t.Fatalf("expected error for invalid chunk blob")
	}
}
