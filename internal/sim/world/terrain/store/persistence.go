package store

// Persistence is the durable backing for chunks that were modified while
// resident. A miss is reported as ok=false with a nil error.
type Persistence interface {
	LoadChunk(abs Coord) (ch *Chunk, ok bool, err error)
	SaveChunk(ch *Chunk) error
}
