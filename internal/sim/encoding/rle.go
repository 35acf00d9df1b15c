package encoding

import (
	"encoding/binary"

	"github.com/rotisserie/eris"
)

var ErrBadRLE = eris.New("malformed rle stream")

// AppendRLE appends ids as (id, run) uvarint pairs.
func AppendRLE(dst []byte, ids []uint16) []byte {
	for i := 0; i < len(ids); {
		id := ids[i]
		run := 1
		for i+run < len(ids) && ids[i+run] == id {
			run++
		}
		dst = binary.AppendUvarint(dst, uint64(id))
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

// DecodeRLE expands exactly n ids from raw and returns them with the number
// of bytes consumed. Streams that are short, overrun n, or carry ids wider
// than 16 bits fail with ErrBadRLE.
func DecodeRLE(raw []byte, n int) ([]uint16, int, error) {
	out := make([]uint16, 0, n)
	i := 0
	for len(out) < n {
		id, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, i, eris.Wrapf(ErrBadRLE, "bad id varint at %d", i)
		}
		i += k
		run, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, i, eris.Wrapf(ErrBadRLE, "bad run varint at %d", i)
		}
		i += k
		if id > 0xFFFF {
			return nil, i, eris.Wrapf(ErrBadRLE, "id too large: %d", id)
		}
		if run == 0 || run > uint64(n-len(out)) {
			return nil, i, eris.Wrapf(ErrBadRLE, "run %d overflows %d ids", run, n)
		}
		for r := uint64(0); r < run; r++ {
			out = append(out, uint16(id))
		}
	}
	return out, i, nil
}
