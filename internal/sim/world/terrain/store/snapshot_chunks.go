package store

import (
	"github.com/rotisserie/eris"

	snapv1 "tilestream.dev/internal/persistence/snapshot"
)

// ExportChunks converts resident chunks into snapshot chunks, in key order.
func ExportChunks(c *Container) ([]snapv1.ChunkV1, error) {
	keys := c.Keys()
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := c.chunks[k]
		blob, err := EncodeTiles(ch)
		if err != nil {
			return nil, eris.Wrapf(err, "encode chunk %v", k)
		}
		out = append(out, snapv1.ChunkV1{
			CX:       k.X,
			CY:       k.Y,
			Modified: ch.modified,
			Tiles:    blob,
		})
	}
	return out, nil
}

// ImportChunks registers snapshot chunks in c by absolute coordinate.
func ImportChunks(c *Container, chunks []snapv1.ChunkV1) error {
	for _, sc := range chunks {
		abs := Coord{X: sc.CX, Y: sc.CY}
		ch, err := DecodeTiles(abs, sc.Tiles)
		if err != nil {
			return err
		}
		ch.modified = sc.Modified
		c.SetChunkAbsolute(abs, ch)
	}
	return nil
}
