package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Server struct {
	app      *App
	address  string
	srv      *http.Server
	shutdown time.Duration
	logger   zerolog.Logger
}

type RouteRegistrar func(*App)

func NewServer(opts ...ServerOption) *Server {
	cfg := defaultServerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	app := New()
	e := app.e
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = cfg.ErrorHandler
	e.IPExtractor = cfg.IPExtractor
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	for _, mw := range cfg.Middlewares {
		app.Use(mw)
	}
	if cfg.CORS != nil {
		app.Use(CORSMiddleware(cfg.CORS))
	}

	return &Server{
		app:      app,
		address:  cfg.Address,
		shutdown: cfg.ShutdownTimeout,
		logger:   cfg.Logger,
	}
}

func (s *Server) RegisterRoutes(reg RouteRegistrar) {
	if reg != nil {
		reg(s.app)
	}
}

func (s *Server) Handler() http.Handler {
	return s.app.e
}

// Address reports the listen address the server was configured with.
func (s *Server) Address() string { return s.address }

// Start serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.address,
		Handler:      s.app.e,
		ReadTimeout:  s.app.e.Server.ReadTimeout,
		WriteTimeout: s.app.e.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.address).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("httpx: listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Dur("timeout", s.shutdown).Msg("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// plainTextErrorHandler renders every error as a text/plain body.
func plainTextErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := StatusInternalError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.String(code, msg)
}
