package observerproto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tilestream.dev/internal/observerproto"
)

func TestSchemas_ValidateMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		b, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	validate(compile("observer_subscribe.schema.json"), observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		ChunkRadius:     3,
	})

	validate(compile("observer_frame.schema.json"), observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Tick:            12,
		Offset:          [2]int64{-4, 1000},
		Entities: []observerproto.EntityState{
			{ID: "6f1c1f8e-6c1b-4a57-9c11-3c1f1b1e2d3a", Main: true, Pos: [2]float32{12.5, 3}, World: [2]float64{-51.5, 32003}},
		},
	})

	geom := compile("observer_chunk_geometry.schema.json")
	validate(geom, observerproto.ChunkGeometryMsg{
		Type:            observerproto.TypeChunkGeometry,
		ProtocolVersion: observerproto.Version,
		Abs:             [2]int64{3, -2},
		Local:           [2]int64{1, 0},
		Revision:        4,
		Vertices:        [][4]float32{{0, 0, 0, 0}, {16, 0, 0.03125, 0}, {16, 16, 0.03125, 0.125}, {0, 16, 0, 0.125}},
		Indices:         []uint32{0, 1, 2, 0, 2, 3},
	})
	// Empty chunks carry no mesh.
	validate(geom, observerproto.ChunkGeometryMsg{
		Type:            observerproto.TypeChunkGeometry,
		ProtocolVersion: observerproto.Version,
		Revision:        1,
	})

	validate(compile("observer_chunk_evict.schema.json"), observerproto.ChunkEvictMsg{
		Type:            observerproto.TypeChunkEvict,
		ProtocolVersion: observerproto.Version,
		Abs:             [2]int64{7, 7},
	})

	validate(compile("observer_bootstrap.schema.json"), observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         "world_1",
		WorldParams: observerproto.WorldParams{
			TickRateHz:     30,
			ChunkSize:      32,
			TileResolution: 16,
			AtlasCols:      32,
			AtlasRows:      8,
			LoadRadius:     2,
			EvictRadius:    4,
			RenderRadius:   4,
			Seed:           1337,
			Generator:      "hills",
		},
	})
}

func TestSchemas_RejectBadSubscribe(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "observer_subscribe.schema.json"))
	if err != nil {
		t.Fatal(err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"type":"SUBSCRIBE","protocol_version":"1.0","chunk_radius":64}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected radius above 32 to fail")
	}
}
