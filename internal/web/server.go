// Package web streams the machine's framebuffer to browsers over a
// websocket.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapitanov/chip8tick/internal/vm"
)

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64,
	WriteBufferSize: vm.FramebufferSize,
}

// Server is a vm.HAL that keeps the last frame and pushes every new one to
// the connected /display sockets as a binary message.
type Server struct {
	addr   string
	server *http.Server

	mu      sync.Mutex
	frame   []byte
	clients map[*client]struct{}
}

// client is one /display socket. Frames queue in a one-slot channel drained
// by the client's own writer, so a slow browser only loses frames.
type client struct {
	conn   *websocket.Conn
	frames chan []byte
}

var _ vm.HAL = (*Server)(nil)

func NewServer(addr string) *Server {
	s := &Server{
		addr:    addr,
		frame:   make([]byte, vm.FramebufferSize),
		clients: make(map[*client]struct{}),
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/display", s.handleDisplay)
	return mux
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %q: %w", s.addr, err)
	}

	slog.Info("web: listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("web: server stopped", "err", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
		s.removeLocked(c)
	}
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// Draw implements vm.HAL. It never waits on the network.
func (s *Server) Draw(gfx []byte) error {
	frame := make([]byte, vm.FramebufferSize)
	copy(frame, gfx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = frame
	for c := range s.clients {
		c.queue(frame)
	}
	return nil
}

// PollEvents implements vm.HAL. Browsers are view-only.
func (s *Server) PollEvents() error {
	return nil
}

// queue replaces any frame the writer has not picked up yet. Only Draw and
// handleDisplay queue, both under s.mu.
func (c *client) queue(frame []byte) {
	select {
	case <-c.frames:
	default:
	}
	c.frames <- frame
}

func (c *client) writeFrames() {
	for frame := range c.frames {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			slog.Debug("web: drop display", "remote", c.conn.RemoteAddr().String(), "err", err)
			_ = c.conn.Close()
			return
		}
	}
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("web: upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	slog.Info("web: display connected", "remote", r.RemoteAddr)

	c := &client{
		conn:   conn,
		frames: make(chan []byte, 1),
	}

	s.mu.Lock()
	c.queue(s.frame)
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writeFrames()

	// Discard anything the client sends; a read error means it went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.remove(c)
	slog.Info("web: display disconnected", "remote", r.RemoteAddr)
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	s.removeLocked(c)
	s.mu.Unlock()
}

// removeLocked unregisters c and stops its writer; s.mu must be held.
func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.frames)
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	frame := s.frame
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(frame)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>CHIP-8</title></head>
<body style="background:#202a35">
<canvas id="screen" width="640" height="320"></canvas>
<script>
const ctx = document.getElementById("screen").getContext("2d");
const ws = new WebSocket("ws://" + location.host + "/display");
ws.binaryType = "arraybuffer";
ws.onmessage = (e) => {
  const fb = new Uint8Array(e.data);
  ctx.fillStyle = "#000";
  ctx.fillRect(0, 0, 640, 320);
  ctx.fillStyle = "#bea700";
  for (let y = 0; y < 32; y++) {
    for (let x = 0; x < 64; x++) {
      if (fb[y * 8 + (x >> 3)] & (0x80 >> (x & 7))) {
        ctx.fillRect(x * 10, y * 10, 10, 10);
      }
    }
  }
};
</script>
</body>
</html>
`
