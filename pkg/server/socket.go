package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/routepath"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

// socketRequest is a client message. Exactly one field is set.
type socketRequest struct {
	Path     string `json:"path,omitempty"`
	Prefetch string `json:"prefetch,omitempty"`
}

// socketFrame is a server message.
type socketFrame struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Path   string `json:"path"`
	HTML   string `json:"html"`
	Status int    `json:"status"`
	Title  string `json:"title,omitempty"`
}

// socket is one navigation socket. It is the Sink of its own Navigator.
type socket struct {
	id     string
	conn   *websocket.Conn
	server *Server
	logger *slog.Logger
	nav    *navigation.Navigator

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *Server) serveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.socketError("upgrade")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	sock := &socket{
		id:     ulid.Make().String(),
		conn:   conn,
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}
	sock.logger = s.logger.With("conn_id", sock.id)
	opts := append(slices.Clip(s.navOpts), navigation.WithLogger(s.base.With("conn_id", sock.id)))
	sock.nav = navigation.New(s.routes, sock, opts...)

	if !s.register(sock) {
		sock.close(websocket.CloseGoingAway, "server shutting down")
		cancel()
		return
	}
	defer s.unregister(sock)

	if s.metrics != nil {
		s.metrics.SocketOpened()
		defer s.metrics.SocketClosed()
	}
	sock.logger.Debug("socket opened", "remote", r.RemoteAddr)

	sock.readLoop()

	sock.cancel()
	sock.wg.Wait()
	sock.close(websocket.CloseNormalClosure, "")
	sock.logger.Debug("socket closed")
}

func (s *Server) register(sock *socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sockets[sock] = struct{}{}
	return true
}

func (s *Server) unregister(sock *socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, sock)
}

func (s *Server) socketError(kind string) {
	if s.metrics != nil {
		s.metrics.SocketError(kind)
	}
}

// readLoop reads client messages until the connection fails or closes.
func (sock *socket) readLoop() {
	cfg := sock.server.config
	sock.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = sock.conn.SetReadDeadline(time.Now().Add(cfg.SocketReadTimeout))
	sock.conn.SetPongHandler(func(string) error {
		return sock.conn.SetReadDeadline(time.Now().Add(cfg.SocketReadTimeout))
	})

	go sock.pingLoop()

	for {
		_, msg, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				sock.logger.Warn("read error", "error", &SocketError{ConnID: sock.id, Op: "read", Err: err})
				sock.server.socketError("read")
			}
			return
		}
		_ = sock.conn.SetReadDeadline(time.Now().Add(cfg.SocketReadTimeout))
		sock.handle(msg)
	}
}

func (sock *socket) handle(msg []byte) {
	var req socketRequest
	if err := json.Unmarshal(msg, &req); err != nil || (req.Path == "") == (req.Prefetch == "") {
		sock.logger.Debug("bad message", "error", ErrBadMessage)
		sock.reject("", nil)
		return
	}

	if req.Prefetch != "" {
		c, err := routepath.CanonicalizeNav(req.Prefetch)
		if err != nil {
			sock.reject(req.Prefetch, nil)
			return
		}
		if err := sock.nav.Prefetch(sock.ctx, c.String()); err != nil {
			sock.logger.Debug("prefetch skipped", "path", req.Prefetch, "error", err)
		}
		return
	}

	if _, err := routepath.CanonicalizeNav(req.Path); err != nil {
		sock.reject(req.Path, vdom.P(vdom.Class("nav-error"), vdom.Text("Bad request")))
		return
	}

	// The sequence number is claimed here, in arrival order. The navigation
	// itself runs concurrently so a newer one can supersede it while it
	// waits.
	run := sock.nav.Begin(sock.ctx, req.Path)
	sock.wg.Add(1)
	go func() {
		defer sock.wg.Done()
		_, _ = run()
	}()
}

// reject answers a message that cannot be served with a 400 error frame
// outside the navigation sequence. The connection stays open. Only rejected
// navigations carry a body to show.
func (sock *socket) reject(path string, body *vdom.VNode) {
	sock.server.socketError("bad_message")
	frame := socketFrame{
		Type:   string(navigation.FrameError),
		Path:   path,
		Status: http.StatusBadRequest,
	}
	if body != nil {
		frame.HTML, _ = sock.server.renderer.RenderToString(body)
	}
	_ = sock.write(frame)
}

// Emit implements navigation.Sink.
func (sock *socket) Emit(_ context.Context, f navigation.Frame) error {
	html, err := sock.server.renderer.RenderToString(f.Node)
	if err != nil {
		return err
	}
	return sock.write(socketFrame{
		Type:   string(f.Kind),
		Seq:    f.Seq,
		Path:   f.Path,
		HTML:   html,
		Status: f.Status,
		Title:  sock.server.documentTitle(f.Match),
	})
}

func (sock *socket) write(frame socketFrame) error {
	sock.writeMu.Lock()
	defer sock.writeMu.Unlock()

	_ = sock.conn.SetWriteDeadline(time.Now().Add(sock.server.config.SocketWriteTimeout))
	if err := sock.conn.WriteJSON(frame); err != nil {
		sock.server.socketError("write")
		return &SocketError{ConnID: sock.id, Op: "write", Err: err}
	}
	return nil
}

func (sock *socket) pingLoop() {
	ticker := time.NewTicker(sock.server.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sock.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(sock.server.config.SocketWriteTimeout)
			if err := sock.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				sock.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (sock *socket) close(code int, reason string) {
	sock.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = sock.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = sock.conn.Close()
	})
}
