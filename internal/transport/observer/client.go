package observer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"

	"tilestream.dev/internal/observerproto"
)

// Client is a headless observer: it subscribes to a world stream and keeps
// the latest frame plus a mesh cache keyed by absolute chunk coordinate.
type Client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	frame  observerproto.FrameMsg
	frames uint64
	meshes map[[2]int64]observerproto.ChunkGeometryMsg
}

// Dial connects to url and sends the initial SUBSCRIBE.
func Dial(ctx context.Context, url string, radius, maxChunks int) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dial observer")
	}
	c := &Client{conn: conn, meshes: map[[2]int64]observerproto.ChunkGeometryMsg{}}
	if err := c.Subscribe(radius, maxChunks); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Subscribe updates the view settings of an open stream.
func (c *Client) Subscribe(radius, maxChunks int) error {
	return eris.Wrap(c.conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		ChunkRadius:     radius,
		MaxChunks:       maxChunks,
	}), "send subscribe")
}

// Next reads one message, applies it to the cache and returns its type.
func (c *Client) Next() (string, error) {
	_, b, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return "", eris.Wrap(err, "decode message")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch head.Type {
	case observerproto.TypeFrame:
		var m observerproto.FrameMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return head.Type, eris.Wrap(err, "decode frame")
		}
		c.frame = m
		c.frames++
	case observerproto.TypeChunkGeometry:
		var m observerproto.ChunkGeometryMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return head.Type, eris.Wrap(err, "decode geometry")
		}
		c.meshes[m.Abs] = m
	case observerproto.TypeChunkEvict:
		var m observerproto.ChunkEvictMsg
		if err := json.Unmarshal(b, &m); err != nil {
			return head.Type, eris.Wrap(err, "decode evict")
		}
		delete(c.meshes, m.Abs)
	}
	return head.Type, nil
}

// Frame returns the last frame and how many frames were received.
func (c *Client) Frame() (observerproto.FrameMsg, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame, c.frames
}

func (c *Client) Mesh(abs [2]int64) (observerproto.ChunkGeometryMsg, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.meshes[abs]
	return m, ok
}

// Meshes returns the number of cached chunk meshes and their total triangle count.
func (c *Client) Meshes() (chunks, triangles int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.meshes {
		triangles += len(m.Indices) / 3
	}
	return len(c.meshes), triangles
}

func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
