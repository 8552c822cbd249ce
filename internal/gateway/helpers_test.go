package gateway

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/engine"
)

const testToken = "test-token"

const engineConfig = `
rules: {1: attribute}
attributes: {level: 3}
modules:
  shop:
    type: 1
    name: Shop
    show_rule: 1
    usage_rule: 1
    show_limits: {level: 5}
    usage_limits: {level: 5}
    server_open: true
  bag:
    type: 1
    server_open: true
  arena:
    type: 2
    closed: soft
buttons:
  - {name: bag-button, module: bag}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}

// startTestEngine runs a gate engine on a fresh AppContext.
func startTestEngine(t *testing.T) (*engine.Engine, *core.AppContext) {
	t.Helper()

	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	e := &engine.Engine{}
	if err := e.Configure(mustYAMLNode(t, engineConfig)); err != nil {
		t.Fatalf("engine Configure: %v", err)
	}
	if err := e.Provision(appCtx.ForComponent(engine.ID)); err != nil {
		t.Fatalf("engine Provision: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("engine Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	})
	return e, appCtx
}

// startTestGateway provisions and starts a gateway on an ephemeral port.
func startTestGateway(t *testing.T, appCtx *core.AppContext, cfgYAML string) (*Gateway, string) {
	t.Helper()

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, cfgYAML)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	g.config.Bind = "127.0.0.1:0"
	if err := g.Provision(appCtx.ForComponent(ID)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return g, "http://" + g.Addr().String()
}

// doRequest makes a request, with a bearer token when token is non-empty.
func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
