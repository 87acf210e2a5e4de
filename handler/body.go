package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/adeilh/go-statusd/httpx"
)

// MaxBodyBytes bounds how much of a request body is read.
const MaxBodyBytes = 1 << 20

// Body is a caller-supplied response payload. Structured values are written
// as JSON; anything else is written as plain text.
type Body struct {
	Value      any
	Structured bool
}

// ResolveBody picks the custom response body for r, or nil when the default
// envelope should be sent. The body query parameter wins over the request
// body, which is only considered for POST, PUT and PATCH.
func ResolveBody(r *http.Request) (*Body, error) {
	if q := r.URL.Query(); q.Has("body") {
		return decodeText(q.Get("body")), nil
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, nil
	}
	raw, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return decodePayload(r.Header.Get("Content-Type"), raw), nil
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("handler: read body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		return nil, errBodyTooLarge
	}
	return raw, nil
}

var errBodyTooLarge = errors.New("handler: request body too large")

func decodePayload(contentType string, raw []byte) *Body {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "application/x-www-form-urlencoded" {
		if form, err := url.ParseQuery(string(raw)); err == nil {
			return &Body{Value: formMap(form), Structured: true}
		}
	}
	return decodeText(string(raw))
}

// decodeText treats s as JSON when it parses, falling back to the raw string.
// A JSON string literal is unwrapped and sent as text.
func decodeText(s string) *Body {
	v, ok := decodeJSON([]byte(s))
	if !ok {
		return &Body{Value: s}
	}
	if str, isString := v.(string); isString {
		return &Body{Value: str}
	}
	return &Body{Value: v, Structured: true}
}

func decodeJSON(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

func formMap(form url.Values) map[string]any {
	out := make(map[string]any, len(form))
	for k, vs := range form {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		out[k] = vs
	}
	return out
}

func bodyError(err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return httpx.HTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
}
