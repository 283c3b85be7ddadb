// Package relay runs the room hub sites connect to for replication.
//
// Every websocket connection joins the room named by its path. Each frame a
// connection sends is forwarded verbatim to every other connection in the
// same room. The relay keeps no history and resolves no conflicts.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dshills/appwiki/internal/logging"
)

const (
	bufSize      = 1024
	sendQueue    = 256
	writeTimeout = 5 * time.Second
)

// Server is the relay hub.
type Server struct {
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *logging.Logger

	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	room string
	conn *websocket.Conn
	send chan []byte
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a relay.
func New(opts ...Option) *Server {
	s := &Server{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufSize,
			WriteBufferSize: bufSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNull(s.logger).WithComponent("relay")

	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/rooms/{room:.+}", s.handleRoom)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Rooms returns the number of connections per room.
func (s *Server) Rooms() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.rooms))
	for name, members := range s.rooms {
		out[name] = len(members)
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rooms := s.Rooms()
	names := make([]string, 0, len(rooms))
	for name := range rooms {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"rooms":  names,
	})
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade %s: %v", room, err)
		return
	}

	c := &client{room: room, conn: conn, send: make(chan []byte, sendQueue)}
	s.join(c)
	log := s.logger.WithField("room", room)
	log.Debug("joined from %s", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(c)
	}()

	s.readPump(c, log)

	s.leave(c)
	<-done
	conn.Close()
	log.Debug("left")
}

func (s *Server) readPump(c *client, log *logging.Logger) {
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.broadcast(c, msg)
	}
}

func (s *Server) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.logger.Debug("write to %s: %v", c.room, err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) join(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.rooms[c.room]
	if members == nil {
		members = make(map[*client]struct{})
		s.rooms[c.room] = members
	}
	members[c] = struct{}{}
}

// leave removes c and closes its queue. It is safe to call twice.
func (s *Server) leave(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	close(c.send)
	if len(members) == 0 {
		delete(s.rooms, c.room)
	}
}

// broadcast queues msg for every member of from's room except from. A
// member whose queue is full is disconnected rather than stalling the room.
func (s *Server) broadcast(from *client, msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.rooms[from.room] {
		if c == from {
			continue
		}
		select {
		case c.send <- msg:
		default:
			s.logger.Warn("dropping slow client in %s", c.room)
			delete(s.rooms[from.room], c)
			close(c.send)
			c.conn.Close()
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	var all []*client
	for _, members := range s.rooms {
		for c := range members {
			all = append(all, c)
		}
	}
	s.mu.Unlock()

	for _, c := range all {
		s.leave(c)
	}
}
