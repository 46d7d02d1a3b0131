// Package websocket serves the rover over HTTP: command links over
// WebSocket at /cmd and the current status at /status.
package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rover/pkg/autopilot"
	"github.com/robotalks/rover/pkg/rover"
	"github.com/robotalks/rover/pkg/telemetry"
)

// StatusSource provides the current status.
type StatusSource interface {
	Status() telemetry.Status
}

// Server accepts WebSocket command links. Each connection has its own
// decoder and all share one bus publisher.
type Server struct {
	Addr string

	state     *rover.State
	publisher autopilot.Publisher
	status    StatusSource
	router    chi.Router
	conns     int64
	ctx       context.Context
}

// NewServer creates a Server.
func NewServer(addr string, state *rover.State, publisher autopilot.Publisher, status StatusSource) *Server {
	s := &Server{
		Addr:      addr,
		state:     state,
		publisher: publisher,
		status:    status,
		ctx:       context.Background(),
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/cmd", websocket.Handler(s.serveCmd))
	r.Get("/status", s.serveStatus)
	s.router = r
	return s
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket"
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. Open links are closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx = ctx
	server := &http.Server{Handler: s}
	glog.Infof("websocket: listening on %s", ln.Addr())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	return ctx.Err()
}

func (s *Server) serveCmd(conn *websocket.Conn) {
	id := atomic.AddInt64(&s.conns, 1)
	name := fmt.Sprintf("websocket-%d", id)
	glog.Infof("%s: connected from %s", name, conn.Request().RemoteAddr)
	link := &rover.Link{
		Conn:      conn,
		Commander: rover.NewCommander(name, s.state, s.publisher),
	}
	if err := link.Run(s.ctx); err != nil && err != context.Canceled {
		glog.Errorf("%s: %v", name, err)
	}
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	status := s.status.Status()
	render.JSON(w, r, map[string]interface{}{
		"mode":         status.ControlMode().String(),
		"direction":    status.ActiveDirection().String(),
		"distance_cm":  status.DistanceCm,
		"sensor_fault": status.SensorFault,
		"seq":          status.Seq,
	})
}
