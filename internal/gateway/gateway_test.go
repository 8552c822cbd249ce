package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/modgate/internal/core"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/metrics"
)

func TestGateway_ComponentInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ComponentInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, "{}")); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want 30s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
	if g.config.EngineTimeout != 5*time.Second {
		t.Errorf("EngineTimeout = %v, want 5s", g.config.EngineTimeout)
	}
	if g.config.StreamBuffer != 64 {
		t.Errorf("StreamBuffer = %d, want 64", g.config.StreamBuffer)
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
auth:
  bearer_token: tok
webhooks:
  game:
    secret: s3cret
read_timeout: 1s
stream_buffer: 8
`)
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q", g.config.Bind)
	}
	if g.config.Auth.BearerToken != "tok" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
	if g.config.Webhooks["game"].Secret != "s3cret" {
		t.Errorf("webhook secret = %q", g.config.Webhooks["game"].Secret)
	}
	if g.config.ReadTimeout != time.Second || g.config.StreamBuffer != 8 {
		t.Errorf("ReadTimeout = %v, StreamBuffer = %d", g.config.ReadTimeout, g.config.StreamBuffer)
	}
}

func TestGateway_Provision(t *testing.T) {
	t.Parallel()

	_, appCtx := startTestEngine(t)

	g := &Gateway{}
	if err := g.Provision(appCtx.ForComponent(ID)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })

	if g.metrics == nil || g.dispatcher == nil || g.stream == nil {
		t.Error("metrics, dispatcher and stream should be initialized")
	}
	if _, ok := appCtx.Service(ServiceMetrics); !ok {
		t.Error("gateway.metrics not registered")
	}
	if _, ok := appCtx.Service(ServiceDispatcher); !ok {
		t.Error("gateway.webhook_dispatcher not registered")
	}
}

func TestGateway_ProvisionRequiresEngine(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Provision(core.NewAppContext(testLogger(), "")); err == nil {
		t.Fatal("expected error without the engine service")
	}
}

func TestGateway_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"good address", Config{Bind: "127.0.0.1:8080"}, false},
		{"bad address", Config{Bind: "not a valid address::"}, true},
		{
			"unsigned webhook without auth",
			Config{Bind: "127.0.0.1:8080", Webhooks: map[string]WebhookSourceCfg{"game": {}}},
			true,
		},
		{
			"unsigned webhook with auth",
			Config{
				Bind:     "127.0.0.1:8080",
				Auth:     AuthConfig{BearerToken: "t"},
				Webhooks: map[string]WebhookSourceCfg{"game": {}},
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{config: tt.cfg}
			if err := g.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	_, appCtx := startTestEngine(t)
	g, base := startTestGateway(t, appCtx, "{}")

	resp := doRequest(t, http.MethodGet, base+"/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Engine != "ok" {
		t.Errorf("health = %+v, want ok", health)
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()

	_, appCtx := startTestEngine(t)
	_, base := startTestGateway(t, appCtx, "{}")

	for _, path := range []string{"/status", "/api/modules", "/ws/events"} {
		resp := doRequest(t, http.MethodGet, base+path, "", "")
		if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s: code = %d, want 404 or 405 (not mounted)", path, resp.StatusCode)
		}
	}
}

func TestGateway_AdminWithAuth(t *testing.T) {
	t.Parallel()

	_, appCtx := startTestEngine(t)
	_, base := startTestGateway(t, appCtx, "auth: {bearer_token: "+testToken+"}")

	if resp := doRequest(t, http.MethodGet, base+"/status", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no-auth status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	resp := doRequest(t, http.MethodGet, base+"/status", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auth status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Modules != 3 || status.Buttons != 1 {
		t.Errorf("status = %+v, want 3 modules and 1 button", status)
	}
	if status.Metrics.Requests < 1 {
		t.Errorf("requests = %d, want the status call counted", status.Metrics.Requests)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

func TestGateway_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	_, appCtx := startTestEngine(t)
	appCtx.RegisterService(metrics.ServiceHandler, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("modgate_up 1\n"))
	}))
	_, base := startTestGateway(t, appCtx, "auth: {bearer_token: "+testToken+"}")

	resp := doRequest(t, http.MethodGet, base+"/metrics", testToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestGateway_FactsWebhook(t *testing.T) {
	t.Parallel()

	e, appCtx := startTestEngine(t)
	g, base := startTestGateway(t, appCtx, "webhooks: {game: {secret: s3cret}}")

	body := `{"attributes": {"level": 9}, "flags": {"beta": true}}`
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, base+"/webhooks/game", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Signature-256", signPayload([]byte(body), "s3cret"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var (
		level int64
		beta  bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Do(ctx, func(*gate.Manager) {
		level = e.Attributes().Get("level")
		beta = e.Flags().Has("beta")
	}); err != nil {
		t.Fatal(err)
	}
	if level != 9 || !beta {
		t.Errorf("level = %d, beta = %v", level, beta)
	}
	if got := g.metrics.Snapshot().Webhooks; got != 1 {
		t.Errorf("webhooks = %d, want 1", got)
	}

	resp = doRequest(t, http.MethodPost, base+"/webhooks/game", "", `{}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unsigned status = %d, want 401", resp.StatusCode)
	}
}
