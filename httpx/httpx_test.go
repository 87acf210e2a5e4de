package httpx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

func TestServerAndClientRoundTrip(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error {
			return c.JSON(StatusOK, map[string]string{"message": "pong"})
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	var body struct {
		Message string `json:"message"`
	}
	resp, err := client.Get(context.Background(), "/ping", &body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if body.Message != "pong" {
		t.Fatalf("unexpected body: %#v", body)
	}
}

func TestErrorHandlerWritesPlainText(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/fail", func(c Context) error {
			return HTTPError(StatusBadRequest, "bad request")
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	resp, err := client.Get(context.Background(), "/fail", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if resp == nil {
		t.Fatalf("expected response for error path")
	}
	if resp.StatusCode() != StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if got := resp.String(); got != "bad request" {
		t.Fatalf("unexpected body: %q", got)
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, MIMETextPlain) {
		t.Fatalf("unexpected content type: %q", ct)
	}
}

func TestErrorHandlerUnknownRoute(t *testing.T) {
	server := NewServer()
	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	resp, err := client.Get(context.Background(), "/missing/route", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if resp.StatusCode() != StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
}

func TestCORSInjection(t *testing.T) {
	server := NewServer(WithCORS(&middleware.CORSConfig{AllowOrigins: []string{"http://example.com"}}))
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	resp, err := client.Get(context.Background(), "/ping", nil, WithRequestHeaders(map[string]string{
		"Origin":                        "http://example.com",
		"Access-Control-Request-Method": "GET",
	}))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Fatalf("expected CORS allow origin header, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestAnyRoutesNonStandardMethods(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.Any("/any", func(c Context) error { return c.String(StatusOK, c.Request().Method) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	for _, method := range []string{"PATCH", "PURGE", "FOO"} {
		resp, err := client.Do(context.Background(), method, "/any", nil, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if resp.String() != method {
			t.Fatalf("%s: unexpected body: %q", method, resp.String())
		}
	}
}

func TestRegisterRoutesBulkAndAnyMethod(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		RegisterRoutes(a,
			Route{Method: "GET", Path: "/r1", Handler: func(c Context) error {
				return c.JSON(StatusOK, map[string]string{"route": "r1"})
			}},
			Route{Method: MethodAny, Path: "/method", Handler: func(c Context) error {
				return c.JSON(StatusOK, map[string]string{"method": c.Request().Method})
			}},
			Route{Method: "", Path: "/ignored", Handler: func(c Context) error { return nil }},
		)
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	var r1 map[string]string
	resp, err := client.Get(context.Background(), "/r1", &r1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK || r1["route"] != "r1" {
		t.Fatalf("unexpected response: status=%d body=%v", resp.StatusCode(), r1)
	}

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "REPORT"} {
		var out map[string]string
		if _, err := client.Do(context.Background(), method, "/method", nil, &out); err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if out["method"] != method {
			t.Fatalf("%s: unexpected body %v", method, out)
		}
	}

	if resp, err := client.Get(context.Background(), "/ignored", nil); err == nil || resp.StatusCode() != StatusNotFound {
		t.Fatalf("expected route without method to be skipped")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	server := NewServer(AppendMiddlewares(RateLimitMiddleware(RateLimitConfig{
		Window: time.Minute,
		Max:    2,
		Skipper: func(c Context) bool {
			return c.Path() == "/free"
		},
	})))
	server.RegisterRoutes(func(a *App) {
		a.GET("/limited", func(c Context) error { return c.NoContent(StatusOK) })
		a.GET("/free", func(c Context) error { return c.NoContent(StatusOK) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), "/limited", nil)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if resp.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("missing rate limit header")
		}
	}

	resp, err := client.Get(context.Background(), "/limited", nil)
	if err == nil {
		t.Fatalf("expected rate limit error")
	}
	if resp.StatusCode() != StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	for i := 0; i < 5; i++ {
		if _, err := client.Get(context.Background(), "/free", nil); err != nil {
			t.Fatalf("skipped route limited: %v", err)
		}
	}
}

func TestRateLimitDisabled(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitConfig{})
	called := 0
	h := mw(func(c Context) error { called++; return nil })
	for i := 0; i < 10; i++ {
		_ = h(nil)
	}
	if called != 10 {
		t.Fatalf("expected passthrough, got %d calls", called)
	}
}

func TestHeadersAndRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	server := NewServer(AppendMiddlewares(
		RequestIDMiddleware(),
		RequestLoggerMiddleware(logger),
		HeadersMiddleware(map[string]string{"X-Powered-By": "statusd"}),
	))
	server.RegisterRoutes(func(a *App) {
		a.GET("/ping", func(c Context) error { return c.NoContent(StatusOK) })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))
	resp, err := client.Get(context.Background(), "/ping", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Header().Get("X-Powered-By") != "statusd" {
		t.Fatalf("missing injected header")
	}
	id := resp.Header().Get("X-Request-Id")
	if len(id) != 36 {
		t.Fatalf("expected uuid request id, got %q", id)
	}
	if !strings.Contains(buf.String(), id) || !strings.Contains(buf.String(), `"uri":"/ping"`) {
		t.Fatalf("request log missing fields: %s", buf.String())
	}
}

func TestClientRequestOptions(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/opts", func(c Context) error {
			custom := c.Request().Header.Get("X-Custom")
			qp := c.QueryParam("q")
			return c.JSON(StatusOK, map[string]string{"custom": custom, "q": qp})
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()))

	var out map[string]string
	resp, err := client.Get(context.Background(), "/opts", &out,
		WithRequestHeaders(map[string]string{"X-Custom": "yes"}),
		WithQuery(map[string]string{"q": "search"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if out["custom"] != "yes" || out["q"] != "search" {
		t.Fatalf("unexpected headers/query: %v", out)
	}
}

func TestClientDefaultHeaders(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/agent", func(c Context) error {
			return c.String(StatusOK, c.Request().Header.Get("User-Agent"))
		})
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.BaseURL()), WithHeaders(map[string]string{"User-Agent": "statusd-test"}))
	resp, err := client.Get(context.Background(), "/agent", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.String() != "statusd-test" {
		t.Fatalf("unexpected user agent: %q", resp.String())
	}
}

func TestClientDoesNotFollowRedirectsByDefault(t *testing.T) {
	server := NewServer()
	server.RegisterRoutes(func(a *App) {
		a.GET("/from", func(c Context) error { return c.Redirect(StatusFound, "/to") })
		a.GET("/to", func(c Context) error { return c.String(StatusOK, "arrived") })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	resp, err := NewClient(WithBaseURL(ts.BaseURL())).Get(context.Background(), "/from", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode() != StatusFound || resp.Header().Get("Location") != "/to" {
		t.Fatalf("unexpected redirect response: %d %q", resp.StatusCode(), resp.Header().Get("Location"))
	}

	resp, err = NewClient(WithBaseURL(ts.BaseURL()), WithFollowRedirects()).Get(context.Background(), "/from", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.String() != "arrived" {
		t.Fatalf("expected redirect to be followed, got %q", resp.String())
	}
}

func TestServerStartStopsOnCancel(t *testing.T) {
	server := NewServer(WithAddress("127.0.0.1:0"), WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestCustomErrorHandler(t *testing.T) {
	server := NewServer(WithErrorHandler(func(err error, c Context) {
		_ = c.JSON(http.StatusTeapot, map[string]string{"error": err.Error()})
	}))
	server.RegisterRoutes(func(a *App) {
		a.GET("/fail", func(c Context) error { return HTTPError(StatusBadRequest, "nope") })
	})

	ts := NewTestServer(server.Handler())
	defer ts.Close()

	resp, err := NewClient(WithBaseURL(ts.BaseURL())).Get(context.Background(), "/fail", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if resp.StatusCode() != http.StatusTeapot || !strings.Contains(resp.String(), "nope") {
		t.Fatalf("custom handler not used: %d %q", resp.StatusCode(), resp.String())
	}
}

func rateLimitedServer(t *testing.T, window time.Duration, opts ...ServerOption) *TestServer {
	t.Helper()
	opts = append(opts, AppendMiddlewares(RateLimitMiddleware(RateLimitConfig{Window: window, Max: 2})))
	server := NewServer(opts...)
	server.RegisterRoutes(func(a *App) {
		a.GET("/limited", func(c Context) error { return c.NoContent(StatusOK) })
	})
	ts := NewTestServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	ts := rateLimitedServer(t, time.Minute)
	client := NewClient(WithBaseURL(ts.BaseURL()))

	var got []int
	for i := 1; i <= 5; i++ {
		resp, _ := client.Get(context.Background(), "/limited", nil,
			WithRequestHeaders(map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)}))
		got = append(got, resp.StatusCode())
	}
	want := []int{StatusOK, StatusOK, StatusTooManyRequests, StatusTooManyRequests, StatusTooManyRequests}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("spoofed X-Forwarded-For escaped the limiter: got %v want %v", got, want)
	}
}

func TestRateLimitTrustedProxy(t *testing.T) {
	ts := rateLimitedServer(t, time.Minute, WithTrustedProxy())
	client := NewClient(WithBaseURL(ts.BaseURL()))

	for i := 1; i <= 5; i++ {
		_, err := client.Get(context.Background(), "/limited", nil,
			WithRequestHeaders(map[string]string{"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i)}))
		if err != nil {
			t.Fatalf("client %d limited behind trusted proxy: %v", i, err)
		}
	}
}

func TestRateLimitRetryAfterRoundsUp(t *testing.T) {
	ts := rateLimitedServer(t, 500*time.Millisecond)
	client := NewClient(WithBaseURL(ts.BaseURL()))

	var resp *resty.Response
	for i := 0; i < 3; i++ {
		resp, _ = client.Get(context.Background(), "/limited", nil)
	}
	if resp.StatusCode() != StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", resp.StatusCode())
	}
	if got := resp.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}
}
