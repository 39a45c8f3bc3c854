package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Streamer broadcasts the latest frame stats to websocket subscribers so an
// external viewer can watch a headless run. Slow or dead clients are
// dropped rather than allowed to stall the frame loop.
type Streamer struct {
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// StreamPayload is the JSON document sent to subscribers.
type StreamPayload struct {
	Frame FrameStats `json:"frame"`
	Perf  struct {
		AvgFrameUs int64   `json:"avg_frame_us"`
		FPS        float64 `json:"fps"`
	} `json:"perf"`
}

// NewStreamer starts a websocket endpoint on addr (e.g. ":8090").
func NewStreamer(addr string) *Streamer {
	s := &Streamer{
		upgrader: websocket.Upgrader{
			// The viewer is a local debug tool; accept any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	s.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("stats stream server failed", "error", err)
		}
	}()
	slog.Info("stats stream listening", "addr", addr)

	return s
}

func (s *Streamer) handleStats(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stats stream upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go s.readPump(conn)
}

// readPump drains incoming frames so close and ping control messages are
// processed, unregistering the connection when the client goes away.
func (s *Streamer) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	if s.clients[conn] {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()
}

// Publish sends the payload to every subscriber, pruning failed ones.
func (s *Streamer) Publish(frame FrameStats, perf PerfStats) {
	payload := StreamPayload{Frame: frame}
	payload.Perf.AvgFrameUs = perf.AvgFrameDuration.Microseconds()
	payload.Perf.FPS = perf.FramesPerSecond

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Close shuts down the endpoint and disconnects all subscribers.
func (s *Streamer) Close() error {
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.mu.Unlock()

	return s.server.Close()
}
