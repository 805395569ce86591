package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/catfeed/internal/core/config"
	"github.com/vietddude/catfeed/internal/core/domain"
)

func newFactServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fact":"Cats sleep 70% of their lives","length":29}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(endpoint string) *config.AppConfig {
	cfg := config.Default()
	cfg.Server.Port = 0 // Random port
	cfg.Feed.Interval = 20 * time.Millisecond
	cfg.Remote.Timeout = time.Second
	cfg.Remote.Endpoints = []config.EndpointConfig{{Name: "mock", URL: endpoint}}
	return cfg
}

func TestApp_Lifecycle(t *testing.T) {
	server := newFactServer(t)

	cfg := testConfig(server.URL)
	cfg.Journal.Retention = time.Hour

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for the recorder to see a published fact
	deadline := time.Now().Add(3 * time.Second)
	for {
		n, _ := app.Journal().Count(ctx)
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no result recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	res, ok := app.Controller().Current()
	if !ok {
		t.Fatal("expected a current result")
	}
	if res != (domain.Success{Fact: domain.NewFact("Cats sleep 70% of their lives")}) {
		t.Errorf("unexpected result %#v", res)
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !app.Controller().Disposed() {
		t.Error("expected controller disposed after Stop")
	}
}

func TestApp_DoneOnServerFailure(t *testing.T) {
	server := newFactServer(t)

	app, err := NewApp(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-app.Done():
		t.Fatal("Done closed before any failure")
	default:
	}

	// Serve fails once its listener is gone
	_ = app.httpLis.Close()

	select {
	case <-app.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after the HTTP server failed")
	}

	if err := app.Stop(context.Background()); err == nil {
		t.Error("expected Stop to report the server failure")
	}
}

func TestApp_FallsBackWhenRemoteDown(t *testing.T) {
	cfg := testConfig("http://catfacts.invalid")
	cfg.Feed.FactsFile = ""

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := app.Controller().Current(); ok {
			if domain.KindOf(res) != domain.KindSuccess {
				t.Errorf("expected fallback success, got %#v", res)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no result published")
}

func TestNewApp_InvalidFactsFile(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Feed.FactsFile = "/nonexistent/facts.yaml"

	if _, err := NewApp(cfg); err == nil {
		t.Error("expected error for missing facts file")
	}
}

func TestNewRemotePool(t *testing.T) {
	pool, err := NewRemotePool(config.RemoteConfig{
		Timeout: time.Second,
		Endpoints: []config.EndpointConfig{
			{Name: "a", URL: "http://a"},
			{Name: "b", URL: "http://b"},
		},
	})
	if err != nil {
		t.Fatalf("NewRemotePool failed: %v", err)
	}
	if n := len(pool.Sources()); n != 2 {
		t.Errorf("expected 2 sources, got %d", n)
	}
	if pool.Name() != "pool" {
		t.Errorf("expected pool name, got %q", pool.Name())
	}
}
