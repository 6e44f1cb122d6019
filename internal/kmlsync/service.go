package kmlsync

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/EndPointCorp/kmlsync/internal/command"
	"github.com/EndPointCorp/kmlsync/internal/config"
	"github.com/EndPointCorp/kmlsync/internal/kml"
	"github.com/EndPointCorp/kmlsync/internal/observability"
	"github.com/EndPointCorp/kmlsync/internal/reconcile"
	"github.com/EndPointCorp/kmlsync/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Service wires the store, processors and transports of one kmlsync node.
type Service struct {
	cfg config.Config

	store   *store.Store
	engine  *reconcile.Engine
	encoder kml.Encoder

	httpCommands   *command.Processor
	socketCommands *command.Processor
	bus            *Bus

	router   *gin.Engine
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	appeared time.Time

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	busClientCount    atomic.Int64
	socketClientCount atomic.Int64
}

// NewService constructs a service with an empty store and registered routes.
func NewService(cfg config.Config) *Service {
	st := store.New()
	cmds := command.NewProcessor(st, "http")
	logger := observability.Component(cfg.Name, "kmlsync")
	s := &Service{
		cfg:    cfg,
		store:  st,
		engine: reconcile.NewEngine(st),
		encoder: kml.Encoder{
			MasterHref:  cfg.MasterURL(),
			AssetPrefix: cfg.AssetPrefix,
		},
		httpCommands:   cmds,
		socketCommands: cmds.WithSource("socket"),
		bus:            NewBus(cmds.WithSource("bus"), cfg.SceneActivity, logger),
		logger:         logger,
		appeared:       time.Now(),
		conns:          make(map[net.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.newRouter()
	return s
}

// Store exposes the desired-state store, mainly for embedding and tests.
func (s *Service) Store() *store.Store {
	return s.store
}

// Bus exposes the bus dispatcher so other transports can feed it messages.
func (s *Service) Bus() *Bus {
	return s.bus
}

// Handler returns the HTTP handler serving every configured route.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Run blocks until SIGINT/SIGTERM or a listener failure.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext opens the HTTP listener and, when configured, the bus listener,
// and serves until ctx ends or one of them fails.
func (s *Service) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("master", s.encoder.MasterHref).
		Str("update_path", s.cfg.UpdatePath).
		Str("modify_path", s.cfg.ModifyPath).
		Msg("kmlsync listening")

	errs := make(chan error, 2)
	running := 1
	go func() {
		errs <- s.Serve(ctx, ln)
	}()

	if addr := strings.TrimSpace(s.cfg.BusListenAddr); addr != "" {
		busLn, err := net.Listen("tcp", addr)
		if err != nil {
			cancel()
			<-errs
			return err
		}
		running++
		go func() {
			errs <- s.ServeBus(ctx, busLn)
		}()
	}

	var first error
	for i := 0; i < running; i++ {
		if err := <-errs; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

// Serve runs the HTTP server on ln until ctx ends.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http shutdown")
		}
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// trackConn records a hijacked or raw connection for coordinated shutdown.
func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
