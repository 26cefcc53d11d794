package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/config"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/whocan"
)

type Server struct {
	WhoCan      *whocan.WhoCan
	HealthStore store.HealthStore
	Config      *config.WhoCanConfig
	Logger      *zap.Logger
	Router      *mux.Router
	srv         *http.Server
}

func NewServer(
	w *whocan.WhoCan,
	healthStore store.HealthStore,
	cfg *config.WhoCanConfig,
	logger *zap.Logger,
	host string,
	port string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    net.JoinHostPort(host, port),
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		WhoCan:      w,
		HealthStore: healthStore,
		Config:      cfg,
		Logger:      logger,
		Router:      router,
		srv:         srv,
	}
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Handler returns the root handler including access logging
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	s.Logger.Info("starting server", zap.String("addr", s.srv.Addr))
	return ignoreClosed(s.srv.ListenAndServe())
}

// StartWithListener serves on an existing listener
func (s *Server) StartWithListener(l net.Listener) error {
	s.Logger.Info("starting server", zap.String("addr", l.Addr().String()))
	return ignoreClosed(s.srv.Serve(l))
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
