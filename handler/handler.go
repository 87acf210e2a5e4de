// Package handler implements the status, random, redirect and echo endpoints.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/adeilh/go-statusd/httpx"
	"github.com/adeilh/go-statusd/status"
)

const usage = `statusd - respond with any HTTP status code

GET  /health                    liveness probe
ANY  /echo                      echo method, url, headers, query and body as JSON
ANY  /{code}                    respond with status code (100-599)
ANY  /random/{range}            respond with a random code from a range, e.g. /random/200,201,500-504
GET  /redirect/{code}?to=<url>  redirect with a 3xx code (300-308)
GET  /openapi.json              API description (also /openapi.yaml)

Query parameters for /{code} and /random/{range}:
  sleep=<ms>   wait before responding
  body=<text>  response body; JSON is sent as application/json, anything else as text/plain

Send "Accept: application/json" to /{code} for a JSON description of the status.
`

// reserved path segments never name a status code.
var reserved = map[string]struct{}{
	"":             {},
	"random":       {},
	"redirect":     {},
	"echo":         {},
	"health":       {},
	"docs":         {},
	"openapi.json": {},
	"openapi.yaml": {},
}

type Options struct {
	Selector status.Selector
	MaxSleep time.Duration
	Logger   zerolog.Logger
}

type Handler struct {
	selector status.Selector
	maxSleep time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func New(opts Options) *Handler {
	sel := opts.Selector
	if sel == nil {
		sel = status.UniformSelector
	}
	return &Handler{
		selector: sel,
		maxSleep: opts.MaxSleep,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Register mounts every endpoint on a. Static routes take precedence over
// the /:code catch-all in the echo router.
func (h *Handler) Register(a *httpx.App) {
	httpx.RegisterRoutes(a,
		httpx.Route{Method: http.MethodGet, Path: "/", Handler: h.Root},
		httpx.Route{Method: http.MethodGet, Path: "/health", Handler: h.Health},
		httpx.Route{Method: httpx.MethodAny, Path: "/echo", Handler: h.Echo},
		httpx.Route{Method: httpx.MethodAny, Path: "/random/", Handler: h.Random},
		httpx.Route{Method: httpx.MethodAny, Path: "/random/:range", Handler: h.Random},
		httpx.Route{Method: http.MethodGet, Path: "/redirect/:code", Handler: h.Redirect},
		httpx.Route{Method: httpx.MethodAny, Path: "/:code", Handler: h.Status},
	)
}

func (h *Handler) Root(c httpx.Context) error {
	return c.String(httpx.StatusOK, usage)
}

func (h *Handler) Health(c httpx.Context) error {
	return c.String(httpx.StatusOK, "OK")
}

// Status responds with the code named in the path.
func (h *Handler) Status(c httpx.Context) error {
	start := h.now()
	raw := pathParam(c, "code")
	if _, ok := reserved[raw]; ok {
		return httpx.ErrNotFound
	}
	code, err := status.ParseStatusCode(raw)
	if err != nil {
		return clientError(err, "invalid status code %q: must be an integer between 100 and 599", raw)
	}
	return h.respond(c, reply{code: code, requested: raw, start: start, shape: ShapeNegotiated})
}

// Random responds with a code picked from the range in the path.
func (h *Handler) Random(c httpx.Context) error {
	start := h.now()
	raw := pathParam(c, "range")
	codes := status.ParseRange(raw)
	code, err := status.Pick(h.selector, codes)
	if err != nil {
		return clientError(err, "invalid range %q: no valid status codes between 100 and 599", raw)
	}
	h.logger.Debug().Str("range", raw).Int("candidates", len(codes)).Int("code", code).Msg("random status selected")
	return h.respond(c, reply{code: code, requested: raw, start: start, shape: ShapeEnvelope})
}

func (h *Handler) respond(c httpx.Context, r reply) error {
	req := c.Request()
	if err := Delay(req.Context(), ParseSleep(c.QueryParam("sleep"), h.maxSleep)); err != nil {
		h.logger.Debug().Err(err).Int("code", r.code).Msg("client went away during sleep")
		return err
	}
	body, err := ResolveBody(req)
	if err != nil {
		return bodyError(err)
	}
	r.body = body
	return compose(c, r)
}

// Redirect sends the client to the "to" query parameter with a 3xx code.
func (h *Handler) Redirect(c httpx.Context) error {
	raw := pathParam(c, "code")
	code, err := status.ParseRedirectCode(raw)
	if err != nil {
		return clientError(err, "invalid redirect code %q: must be between 300 and 308", raw)
	}
	target := c.QueryParam("to")
	if target == "" {
		return clientError(status.ErrMissingRedirectTarget, "missing redirect target: provide the \"to\" query parameter")
	}
	return c.Redirect(code, target)
}

// EchoPayload mirrors the inbound request.
type EchoPayload struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers"`
	Query   url.Values  `json:"query"`
	Body    any         `json:"body"`
}

// Echo returns the request method, URL, headers, query and body as JSON.
func (h *Handler) Echo(c httpx.Context) error {
	req := c.Request()
	raw, err := readBody(req)
	if err != nil {
		return bodyError(err)
	}
	uri := req.RequestURI
	if uri == "" {
		uri = req.URL.RequestURI()
	}
	payload := EchoPayload{
		Method:  req.Method,
		URL:     uri,
		Headers: req.Header,
		Query:   req.URL.Query(),
	}
	if len(raw) > 0 {
		payload.Body = decodePayload(req.Header.Get("Content-Type"), raw).Value
	}
	return c.JSON(httpx.StatusOK, payload)
}

// pathParam returns the decoded value of a path parameter. echo routes on the
// raw path, so percent-escapes are still present in c.Param.
func pathParam(c httpx.Context, name string) string {
	raw := c.Param(name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func clientError(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, status.ErrInvalidStatusCode),
		errors.Is(err, status.ErrInvalidRange),
		errors.Is(err, status.ErrInvalidRedirectCode),
		errors.Is(err, status.ErrMissingRedirectTarget):
		return httpx.HTTPError(httpx.StatusBadRequest, fmt.Sprintf(format, args...))
	}
	return err
}
