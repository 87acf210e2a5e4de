package handler

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adeilh/go-statusd/httpx"
	"github.com/adeilh/go-statusd/status"
)

// Shape selects what is sent when the caller supplied no body.
type Shape int

const (
	// ShapeNegotiated sends "<code> <reason>" unless the client prefers JSON.
	ShapeNegotiated Shape = iota
	// ShapeEnvelope always sends the JSON envelope.
	ShapeEnvelope
)

// reply carries everything needed to write one status response.
type reply struct {
	code      int
	requested string
	start     time.Time
	body      *Body
	shape     Shape
}

func compose(c httpx.Context, r reply) error {
	if !bodyAllowed(r.code) {
		return writeBare(c, r.code)
	}
	if r.body != nil {
		if r.body.Structured {
			return c.JSON(r.code, r.body.Value)
		}
		return c.String(r.code, fmt.Sprint(r.body.Value))
	}
	if r.shape == ShapeNegotiated && !prefersJSON(c.Request().Header.Get("Accept")) {
		return c.String(r.code, status.Line(r.code))
	}
	return c.JSON(r.code, status.NewEnvelope(r.code, r.requested, r.start, time.Now()))
}

// bodyAllowed mirrors net/http: informational, 204 and 304 responses carry no payload.
func bodyAllowed(code int) bool {
	switch {
	case code >= 100 && code <= 199:
		return false
	case code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}
	return true
}

// writeBare writes a payload-free response. net/http treats 1xx codes as
// interim responses, so those are written as the final status line on the
// hijacked connection when the writer allows it.
func writeBare(c httpx.Context, code int) error {
	res := c.Response()
	if code >= 200 {
		return c.NoContent(code)
	}
	conn, rw, err := http.NewResponseController(res.Writer).Hijack()
	if err != nil {
		res.Writer.WriteHeader(code)
		return nil
	}
	defer conn.Close()
	res.Status = code
	res.Committed = true
	fmt.Fprintf(rw, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", code, status.Reason(code))
	return rw.Flush()
}

// prefersJSON reports whether accept ranks application/json above text/plain.
// Ties go to whichever is listed first.
func prefersJSON(accept string) bool {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType != httpx.MIMEApplicationJSON && mediaType != httpx.MIMETextPlain {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				q = parsed
			}
		}
		if q > bestQ {
			best, bestQ = mediaType, q
		}
	}
	return best == httpx.MIMEApplicationJSON
}
