package wsrelay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/metrics"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/relay"
)

type ServerConfig struct {
	Addr         string
	Path         string
	PingInterval time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func (c *ServerConfig) Defaults() {
	if c.Path == "" {
		c.Path = "/relay"
	}
	if c.PingInterval == 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is a websocket hub. Every connection joins one channel at a time and
// receives the frames the other members of that channel publish.
type Server struct {
	logger   *slog.Logger
	config   ServerConfig
	hub      *relay.Hub
	router   chi.Router
	upgrader websocket.Upgrader
	http     *http.Server
	listener net.Listener
	port     int
	mu       sync.Mutex
	conns    map[*wsConn]struct{}
	wg       sync.WaitGroup
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Port() int {
	return s.port
}

func (s *Server) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"connections": len(s.conns),
	}
}

// Run starts listening and returns once the server accepts connections.
func (s *Server) Run(ctx context.Context) error {
	var err error
	s.listener, err = net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
		s.logger = s.logger.With(slog.String("addr", tcpAddr.String()))
	}

	s.logger.Info("listening")

	ready := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() {
		close(ready)
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
		return nil
	case err := <-serveErr:
		return err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	err := s.http.Shutdown(ctx)

	// hijacked connections are not closed by http.Server
	s.mu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	s.hub.Close()
	s.logger.Info("shut down")
	return err
}

func (s *Server) track(c *wsConn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("upgrade failed", slog.Any("err", err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	c := newWSConn(conn, logger)
	s.track(c, true)
	defer s.track(c, false)

	var (
		member   sync.WaitGroup
		subID    uint64
		channel  string
		unsub    = func() {}
		forwards = func(ch <-chan []byte) {
			defer member.Done()
			for data := range ch {
				if err := c.writeFrame(frame{Type: frameMessage, Data: data}); err != nil {
					return
				}
			}
		}
	)

	member.Add(1)
	go func() {
		defer member.Done()
		c.writeLoop(s.config.PingInterval)
	}()

	c.readLoop(func(f frame) {
		switch f.Type {
		case frameSubscribe:
			if f.Channel == "" {
				_ = c.writeFrame(frame{Type: frameError, Error: "channel is required"})
				return
			}
			unsub()
			var ch <-chan []byte
			subID, ch, unsub = s.hub.Subscribe(f.Channel)
			channel = f.Channel
			member.Add(1)
			go forwards(ch)
			logger.Debug("subscribed", slog.String("channel", channel))
			_ = c.writeFrame(frame{Type: frameSubscribed, Channel: channel})

		case frameMessage:
			if channel == "" {
				_ = c.writeFrame(frame{Type: frameError, Error: "not subscribed"})
				return
			}
			s.hub.Publish(channel, subID, f.Data)
			s.config.Metrics.RecordRelayMessage("forwarded")

		default:
			_ = c.writeFrame(frame{Type: frameError, Error: "unknown frame type"})
		}
	})

	unsub()
	c.close()
	member.Wait()
	logger.Debug("connection closed")
}

func NewServer(config ServerConfig) *Server {
	config.Defaults()

	s := &Server{
		logger: config.Logger.With(
			slog.String("transport", "websocket"),
			slog.String("component", "relay-server"),
		),
		config: config,
		hub:    relay.NewHub(),
		conns:  make(map[*wsConn]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(config.Path, s.handleUpgrade)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if config.Metrics != nil {
		r.Handle("/metrics", config.Metrics.Handler())
	}

	s.router = r
	s.http = &http.Server{
		Addr:    config.Addr,
		Handler: r,
	}

	return s
}
