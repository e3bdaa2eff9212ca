package wsserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Server upgrades incoming HTTP connections to websockets and hands
// them to a Registry. It tracks live connections so Stop can close
// them all for a graceful shutdown (spec.md §6's "closing in-flight
// events" requirement).
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	registry *Registry
	logger   *log.Logger

	mu    sync.Mutex
	conns map[*Connection]bool

	httpServer *http.Server
}

// NewServer constructs a Server bound to addr, routing accepted
// connections through registry.
func NewServer(addr string, registry *Registry, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Origin enforcement belongs to the deployment's reverse
			// proxy; the process itself only needs to negotiate the
			// upgrade.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		registry: registry,
		logger:   logger.WithPrefix("server"),
		conns:    make(map[*Connection]bool),
	}
}

// Start blocks serving HTTP until the server is stopped or fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.logger.Info("starting table server", "addr", s.addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop closes every live connection and shuts the HTTP listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.registry.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	client := NewConnection(conn, s.registry, s.logger)
	s.mu.Lock()
	s.conns[client] = true
	s.mu.Unlock()

	client.Start()

	go func() {
		<-client.ctx.Done()
		s.mu.Lock()
		delete(s.conns, client)
		s.mu.Unlock()
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}
