package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tilestream.dev/internal/observerproto"
	"tilestream.dev/internal/sim/world"
	"tilestream.dev/internal/sim/world/terrain/store"
)

// Source is the read side of a world that the observer feed needs.
type Source interface {
	Frame() *world.RenderFrame
	Config() world.Config
	CurrentTick() uint64
}

type Server struct {
	src     Source
	log     zerolog.Logger
	frameHz int

	// AllowRemote disables the loopback-only check.
	AllowRemote bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	sessions atomic.Int64
}

func NewServer(src Source, frameHz int, logger zerolog.Logger) *Server {
	if frameHz <= 0 {
		frameHz = 20
	}
	return &Server{
		src:     src,
		log:     logger.With().Str("component", "observer").Logger(),
		frameHz: frameHz,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected observers.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(Bootstrap(s.src))
	}
}

func Bootstrap(src Source) observerproto.BootstrapResponse {
	cfg := src.Config()
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         cfg.ID,
		Tick:            src.CurrentTick(),
		WorldParams: observerproto.WorldParams{
			TickRateHz:     cfg.TickRateHz,
			ChunkSize:      store.Size,
			TileResolution: cfg.TileResolution,
			AtlasCols:      cfg.AtlasCols,
			AtlasRows:      cfg.AtlasRows,
			LoadRadius:     cfg.LoadRadius,
			EvictRadius:    cfg.EvictRadius,
			RenderRadius:   cfg.RenderRadius,
			Seed:           cfg.Seed,
			Generator:      cfg.Generator,
		},
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sess := newSession(fmt.Sprintf("O%d", s.nextID.Add(1)), sub)
		s.sessions.Add(1)
		defer s.sessions.Add(-1)
		log := s.log.With().Str("session", sess.id).Logger()
		log.Info().Int("chunk_radius", sub.ChunkRadius).Str("remote", r.RemoteAddr).Msg("observer joined")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader goroutine: allow SUBSCRIBE updates.
		go func() {
			defer cancel()
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if sub, ok := parseSubscribe(msg); ok {
					sess.update(sub)
				}
			}
		}()

		err = s.stream(ctx, conn, sess)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		log.Info().AnErr("reason", err).Msg("observer left")
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, sess *session) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.frameHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msgs, err := sess.next(s.src.Frame())
			if err != nil {
				return err
			}
			for _, b := range msgs {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return err
				}
			}
		}
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || IsLoopback(r.RemoteAddr)
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.ChunkRadius <= 0 {
		sub.ChunkRadius = 3
	}
	if sub.ChunkRadius > 32 {
		sub.ChunkRadius = 32
	}
	if sub.MaxChunks <= 0 {
		sub.MaxChunks = 1024
	}
	if sub.MaxChunks > 16384 {
		sub.MaxChunks = 16384
	}
}

// IsLoopback reports whether an http.Request RemoteAddr is a loopback address.
func IsLoopback(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
