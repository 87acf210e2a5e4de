package httpx

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// HTTPErrorHandler is a function that handles errors during request processing.
type HTTPErrorHandler = echo.HTTPErrorHandler

// IPExtractor derives the client address used by rate limiting and logs.
type IPExtractor = echo.IPExtractor

type ServerOptions struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Middlewares     []MiddlewareFunc
	ErrorHandler    HTTPErrorHandler
	CORS            *middleware.CORSConfig
	IPExtractor     IPExtractor
	Logger          zerolog.Logger
}

type ServerOption func(*ServerOptions)

// Handlers may stall on purpose, so there is no write timeout unless one is configured.
func defaultServerOptions() ServerOptions {
	return ServerOptions{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Middlewares:     []MiddlewareFunc{RecoverMiddleware()},
		ErrorHandler:    plainTextErrorHandler,
		IPExtractor:     echo.ExtractIPDirect(),
		Logger:          zerolog.Nop(),
	}
}

func WithAddress(addr string) ServerOption {
	return func(o *ServerOptions) {
		if addr != "" {
			o.Address = addr
		}
	}
}

func WithTimeouts(read, write time.Duration) ServerOption {
	return func(o *ServerOptions) {
		if read > 0 {
			o.ReadTimeout = read
		}
		if write > 0 {
			o.WriteTimeout = write
		}
	}
}

func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(o *ServerOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

func WithMiddlewares(mw ...MiddlewareFunc) ServerOption {
	return func(o *ServerOptions) {
		if len(mw) > 0 {
			o.Middlewares = append([]MiddlewareFunc{}, mw...)
		}
	}
}

// AppendMiddlewares appends additional middleware to the existing stack.
func AppendMiddlewares(mw ...MiddlewareFunc) ServerOption {
	return func(o *ServerOptions) {
		if len(mw) > 0 {
			o.Middlewares = append(o.Middlewares, mw...)
		}
	}
}

func WithErrorHandler(handler HTTPErrorHandler) ServerOption {
	return func(o *ServerOptions) {
		if handler != nil {
			o.ErrorHandler = handler
		}
	}
}

// WithCORS enables CORS middleware using the provided configuration; if cfg is nil, the default config is used.
func WithCORS(cfg *middleware.CORSConfig) ServerOption {
	return func(o *ServerOptions) {
		if cfg == nil {
			def := middleware.DefaultCORSConfig
			o.CORS = &def
			return
		}
		o.CORS = cfg
	}
}

// WithTrustedProxy takes the client address from X-Forwarded-For. Only
// enable it behind a proxy that overwrites the header.
func WithTrustedProxy() ServerOption {
	return func(o *ServerOptions) {
		o.IPExtractor = echo.ExtractIPFromXFFHeader()
	}
}

// WithLogger sets the logger used for server lifecycle events.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(o *ServerOptions) {
		o.Logger = l
	}
}

type ClientOptions struct {
	BaseURL         string
	Timeout         time.Duration
	Headers         map[string]string
	FollowRedirects bool
}

type ClientOption func(*ClientOptions)

func defaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 10 * time.Second}
}

func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

func WithClientTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		if len(headers) == 0 {
			return
		}
		o.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithFollowRedirects makes the client follow Location headers instead of
// returning 3xx responses to the caller.
func WithFollowRedirects() ClientOption {
	return func(o *ClientOptions) {
		o.FollowRedirects = true
	}
}
