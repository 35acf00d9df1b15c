package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilestream.dev/internal/observerproto"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWSStreamsGeometryThenFrame(t *testing.T) {
	w, _ := steppedWorld(t)
	s := NewServer(w, 100, zerolog.Nop())
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(sub(1)))

	counts := map[string]int{}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for counts[observerproto.TypeFrame] == 0 {
		_, b, err := conn.ReadMessage()
		require.NoError(t, err)
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(b, &head))
		counts[head.Type]++
	}
	assert.Equal(t, 9, counts[observerproto.TypeChunkGeometry])
	assert.Eventually(t, func() bool { return s.Sessions() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWSRejectsMissingSubscribe(t *testing.T) {
	w, _ := steppedWorld(t)
	srv := httptest.NewServer(NewServer(w, 100, zerolog.Nop()).WSHandler())
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "HELLO"}))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
}

func TestBootstrapHandler(t *testing.T) {
	w, _ := steppedWorld(t)
	h := NewServer(w, 0, zerolog.Nop()).BootstrapHandler()

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/observer/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp observerproto.BootstrapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "obs", resp.WorldID)
	assert.Equal(t, 32, resp.WorldParams.ChunkSize)
	assert.Equal(t, 2, resp.WorldParams.EvictRadius)

	req.RemoteAddr = "192.0.2.1:4000"
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
