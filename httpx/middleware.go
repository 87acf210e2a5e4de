package httpx

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RequestIDMiddleware tags every request and response with an X-Request-Id.
func RequestIDMiddleware() MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// RequestLoggerMiddleware emits one zerolog event per handled request.
func RequestLoggerMiddleware(logger zerolog.Logger) MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// RateLimitConfig allows Max requests per Window for each client IP.
type RateLimitConfig struct {
	Window  time.Duration
	Max     int
	Skipper middleware.Skipper
}

// RateLimitMiddleware enforces cfg with an in-memory token bucket per client.
// A zero Max or Window disables limiting.
func RateLimitMiddleware(cfg RateLimitConfig) MiddlewareFunc {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next HandlerFunc) HandlerFunc { return next }
	}
	skipper := cfg.Skipper
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(cfg.Window / time.Duration(cfg.Max)),
		Burst:     cfg.Max,
		ExpiresIn: cfg.Window,
	})
	limit := strconv.Itoa(cfg.Max)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			if skipper(c) {
				return true
			}
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			return false
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return HTTPError(StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cfg.Window.Seconds()))))
			return HTTPError(StatusTooManyRequests, "Too many requests, please try again later.")
		},
	})
}

// HeadersMiddleware sets the given headers on every response.
func HeadersMiddleware(headers map[string]string) MiddlewareFunc {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			h := c.Response().Header()
			for k, v := range copied {
				h.Set(k, v)
			}
			return next(c)
		}
	}
}
