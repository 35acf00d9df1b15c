package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures the streaming state: generator parameters, the
// floating-origin offset, resident chunks and entity positions.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed      int64  `json:"seed"`
	Generator string `json:"generator"`
	SurfaceY  int64  `json:"surface_y"`

	TileResolution float32 `json:"tile_resolution"`
	LoadRadius     int     `json:"load_radius"`
	EvictRadius    int     `json:"evict_radius"`

	Offset [2]int64 `json:"offset"`

	Chunks   []ChunkV1  `json:"chunks"`
	Entities []EntityV1 `json:"entities"`
}

type ChunkV1 struct {
	CX       int64  `json:"cx"`
	CY       int64  `json:"cy"`
	Modified bool   `json:"modified,omitempty"`
	Tiles    []byte `json:"tiles"`
}

type EntityV1 struct {
	ID    string     `json:"id"`
	Main  bool       `json:"main,omitempty"`
	Solid bool       `json:"solid,omitempty"`
	Pos   [2]float32 `json:"pos"`
	Vel   [2]float32 `json:"vel,omitempty"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "snapshot dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return eris.Wrap(err, "open snapshot")
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return eris.Wrap(err, "zstd writer")
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return eris.Wrap(err, "write header")
	}
	if err := bw.WriteByte('\n'); err != nil {
		return eris.Wrap(err, "write header")
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return eris.Wrap(err, "gob encode")
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, eris.Wrap(err, "open snapshot")
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, eris.Wrap(err, "zstd reader")
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header; the JSON line is for humans and tools.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, eris.Wrap(err, "gob decode")
	}
	if snap.Header.Version != Version {
		return snap, eris.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader returns only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, eris.Wrap(err, "open snapshot")
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, eris.Wrap(err, "zstd reader")
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, eris.Wrap(err, "read header")
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, eris.Wrap(err, "decode header")
	}
	return h, nil
}
