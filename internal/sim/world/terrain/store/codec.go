package store

import (
	"encoding/binary"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/sim/encoding"
	"tilestream.dev/internal/sim/world/terrain/tile"
)

const (
	codecVersion = 2
	tileRecord   = 1 + 4 + 8
)

var ErrBadBlob = eris.New("malformed chunk blob")

var (
	codecOnce sync.Once
	codecEnc  *zstd.Encoder
	codecDec  *zstd.Decoder
	codecErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		codecEnc, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if codecErr != nil {
			return
		}
		codecDec, codecErr = zstd.NewReader(nil)
	})
	return codecEnc, codecDec, codecErr
}

// EncodeTiles packs the chunk's tiles into a compressed blob: a palette of
// distinct tiles followed by run-length encoded palette indices. Geometry
// and coordinate are not included.
func EncodeTiles(ch *Chunk) ([]byte, error) {
	enc, _, err := codecs()
	if err != nil {
		return nil, eris.Wrap(err, "zstd init")
	}
	index := make(map[tile.Tile]uint16, 8)
	var palette []tile.Tile
	ids := make([]uint16, len(ch.tiles))
	for i, t := range ch.tiles {
		id, ok := index[t]
		if !ok {
			id = uint16(len(palette))
			index[t] = id
			palette = append(palette, t)
		}
		ids[i] = id
	}

	raw := []byte{codecVersion}
	raw = binary.AppendUvarint(raw, uint64(len(palette)))
	var rec [tileRecord]byte
	for _, t := range palette {
		rec[0] = byte(t.Type)
		binary.LittleEndian.PutUint32(rec[1:5], t.Variant)
		binary.LittleEndian.PutUint64(rec[5:13], t.Custom)
		raw = append(raw, rec[:]...)
	}
	raw = encoding.AppendRLE(raw, ids)
	return enc.EncodeAll(raw, nil), nil
}

// DecodeTiles rebuilds a chunk at abs from EncodeTiles output. The result
// is dirty and unmodified.
func DecodeTiles(abs Coord, blob []byte) (*Chunk, error) {
	_, dec, err := codecs()
	if err != nil {
		return nil, eris.Wrap(err, "zstd init")
	}
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrBadBlob, "chunk %v: %v", abs, err)
	}
	if len(raw) == 0 || raw[0] != codecVersion {
		return nil, eris.Wrapf(ErrBadBlob, "chunk %v: version %d", abs, firstByte(raw))
	}
	body := raw[1:]
	n, k := binary.Uvarint(body)
	if k <= 0 || n == 0 || n > Size*Size || uint64(len(body)-k) < n*tileRecord {
		return nil, eris.Wrapf(ErrBadBlob, "chunk %v: palette header", abs)
	}
	body = body[k:]
	palette := make([]tile.Tile, n)
	for i := range palette {
		rec := body[i*tileRecord : (i+1)*tileRecord]
		palette[i] = tile.Tile{
			Type:    tile.Type(rec[0]),
			Variant: binary.LittleEndian.Uint32(rec[1:5]),
			Custom:  binary.LittleEndian.Uint64(rec[5:13]),
		}
	}
	body = body[int(n)*tileRecord:]

	ch := New(abs)
	ids, used, err := encoding.DecodeRLE(body, len(ch.tiles))
	if err != nil {
		return nil, eris.Wrapf(ErrBadBlob, "chunk %v: %v", abs, err)
	}
	if used != len(body) {
		return nil, eris.Wrapf(ErrBadBlob, "chunk %v: %d trailing bytes", abs, len(body)-used)
	}
	for i, id := range ids {
		if int(id) >= len(palette) {
			return nil, eris.Wrapf(ErrBadBlob, "chunk %v: palette index %d", abs, id)
		}
		ch.tiles[i] = palette[id]
	}
	return ch, nil
}

func firstByte(b []byte) int {
	if len(b) == 0 {
		return -1
	}
	return int(b[0])
}
