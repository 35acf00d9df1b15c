package observerproto

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe     = "SUBSCRIBE"
	TypeFrame         = "FRAME"
	TypeChunkGeometry = "CHUNK_GEOMETRY"
	TypeChunkEvict    = "CHUNK_EVICT"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ChunkRadius     int    `json:"chunk_radius"`
	MaxChunks       int    `json:"max_chunks,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz     int     `json:"tick_rate_hz"`
	ChunkSize      int     `json:"chunk_size"`
	TileResolution float32 `json:"tile_resolution"`
	AtlasCols      int     `json:"atlas_cols"`
	AtlasRows      int     `json:"atlas_rows"`
	LoadRadius     int     `json:"load_radius"`
	EvictRadius    int     `json:"evict_radius"`
	RenderRadius   int     `json:"render_radius"`
	Seed           int64   `json:"seed"`
	Generator      string  `json:"generator"`
}

// Server -> Client. Sent once per observer frame.
type FrameMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Offset          [2]int64      `json:"offset"`
	Entities        []EntityState `json:"entities"`
}

type EntityState struct {
	ID    string     `json:"id"`
	Main  bool       `json:"main,omitempty"`
	Pos   [2]float32 `json:"pos"`
	World [2]float64 `json:"world"`
}

// Server -> Client. Full mesh for a chunk whose geometry revision changed.
// Vertices are [x, y, u, v] in chunk-local world units; the chunk origin
// is Local * chunk_size * tile_resolution.
type ChunkGeometryMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Abs             [2]int64     `json:"abs"`
	Local           [2]int64     `json:"local"`
	Revision        uint64       `json:"revision"`
	Vertices        [][4]float32 `json:"vertices"`
	Indices         []uint32     `json:"indices"`
}

// Server -> Client. Evict a chunk from the client cache.
type ChunkEvictMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Abs             [2]int64 `json:"abs"`
}
