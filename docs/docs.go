// Package docs builds the service's OpenAPI document once at startup and
// serves pre-rendered JSON and YAML copies of it.
package docs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/adeilh/go-statusd/httpx"
)

const (
	JSONPath = "/openapi.json"
	YAMLPath = "/openapi.yaml"
	UIPath   = "/docs"

	mimeYAML = "application/yaml"
)

//go:embed openapi.yaml
var specYAML []byte

// Document is immutable after New returns.
type Document struct {
	spec      *openapi3.T
	jsonBytes []byte
	yamlBytes []byte
}

// New loads and validates the embedded document with serverURL as its only
// server entry. An empty serverURL leaves the server list empty.
func New(ctx context.Context, serverURL string) (*Document, error) {
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("docs: load: %w", err)
	}
	if serverURL != "" {
		spec.Servers = openapi3.Servers{&openapi3.Server{URL: serverURL}}
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("docs: validate: %w", err)
	}

	jsonBytes, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("docs: render json: %w", err)
	}
	var tree any
	if err := yaml.Unmarshal(jsonBytes, &tree); err != nil {
		return nil, fmt.Errorf("docs: convert yaml: %w", err)
	}
	yamlBytes, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("docs: render yaml: %w", err)
	}

	return &Document{spec: spec, jsonBytes: jsonBytes, yamlBytes: yamlBytes}, nil
}

func (d *Document) JSON(c httpx.Context) error {
	return c.Blob(httpx.StatusOK, httpx.MIMEApplicationJSON, d.jsonBytes)
}

func (d *Document) YAML(c httpx.Context) error {
	return c.Blob(httpx.StatusOK, mimeYAML, d.yamlBytes)
}

// Redirect points /docs at the JSON document; no viewer is bundled.
func (d *Document) Redirect(c httpx.Context) error {
	return c.Redirect(httpx.StatusFound, JSONPath)
}

// Register mounts the document routes on a.
func (d *Document) Register(a *httpx.App) {
	httpx.RegisterRoutes(a,
		httpx.Route{Method: "GET", Path: JSONPath, Handler: d.JSON},
		httpx.Route{Method: "GET", Path: YAMLPath, Handler: d.YAML},
		httpx.Route{Method: "GET", Path: UIPath, Handler: d.Redirect},
	)
}
