package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/state"
	"github.com/vietddude/catfeed/internal/infra/remote"
	"github.com/vietddude/catfeed/internal/infra/storage"
	"github.com/vietddude/catfeed/internal/infra/storage/memory"
)

// =============================================================================
// Mocks
// =============================================================================

type stubFeed struct {
	current  domain.Result
	disposed bool
}

func (s *stubFeed) ID() string { return "sub-1" }
func (s *stubFeed) Current() (domain.Result, bool) {
	return s.current, s.current != nil
}
func (s *stubFeed) Disposed() bool { return s.disposed }

type stubSource struct {
	name      string
	available bool
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) FetchFact(ctx context.Context) (domain.Fact, error) {
	return domain.Fact{}, nil
}
func (s *stubSource) IsAvailable() bool { return s.available }
func (s *stubSource) Health() remote.HealthStatus {
	return remote.HealthStatus{Available: s.available}
}

// =============================================================================
// Tests
// =============================================================================

func TestEvaluate(t *testing.T) {
	up := &stubSource{name: "up", available: true}
	down := &stubSource{name: "down", available: false}

	tests := []struct {
		name    string
		feed    *stubFeed
		sources []remote.Source
		expect  SystemStatus
	}{
		{"no result yet", &stubFeed{}, []remote.Source{up}, StatusHealthy},
		{"success", &stubFeed{current: domain.Success{Fact: domain.NewFact("x")}}, []remote.Source{up, down}, StatusHealthy},
		{"server error", &stubFeed{current: domain.ServerError{}}, []remote.Source{up}, StatusDegraded},
		{"all sources down", &stubFeed{}, []remote.Source{down}, StatusDegraded},
		{"disposed", &stubFeed{disposed: true}, []remote.Source{up}, StatusCritical},
	}

	for _, tt := range tests {
		if got := Evaluate(tt.feed, tt.sources).Status; got != tt.expect {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.expect, got)
		}
	}
}

func TestServer_Health(t *testing.T) {
	feed := &stubFeed{current: domain.Success{Fact: domain.NewFact("x")}}
	srv := NewServer(feed, nil, nil, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	feed.disposed = true
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after dispose, got %d", rec.Code)
	}
}

func TestServer_State(t *testing.T) {
	feed := &stubFeed{}
	srv := NewServer(feed, nil, nil, 0)

	var view domain.ResultView
	get(t, srv, "/state", &view)
	if view.Kind != domain.KindNone {
		t.Errorf("expected none before first publication, got %s", view.Kind)
	}

	feed.current = domain.Success{Fact: domain.NewFact("Cats sleep 70% of their lives")}
	get(t, srv, "/state", &view)
	if view.Kind != domain.KindSuccess || view.Fact != "Cats sleep 70% of their lives" {
		t.Errorf("unexpected state %+v", view)
	}

	feed.current = domain.ErrorRes{Message: domain.DefaultErrorMessage}
	view = domain.ResultView{}
	get(t, srv, "/state", &view)
	if view.Kind != domain.KindErrorRes || view.Message != string(domain.DefaultErrorMessage) {
		t.Errorf("unexpected state %+v", view)
	}
}

func TestServer_Recent(t *testing.T) {
	journal := memory.NewJournal(10)
	ctx := context.Background()
	_ = journal.Append(ctx, storage.NewEntry("sub-1", domain.Success{Fact: domain.NewFact("a")}, time.Now()))
	_ = journal.Append(ctx, storage.NewEntry("sub-1", domain.Success{Fact: domain.NewFact("b")}, time.Now()))

	srv := NewServer(&stubFeed{}, nil, journal, 0)

	var entries []storage.Entry
	get(t, srv, "/facts/recent?limit=1", &entries)
	if len(entries) != 1 || entries[0].Fact != "b" {
		t.Errorf("unexpected entries %+v", entries)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/facts/recent?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewServer(&stubFeed{}, nil, nil, 0).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/facts/recent", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without journal, got %d", rec.Code)
	}
}

func TestGRPCServer_FollowsState(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	g := NewGRPCServer()
	go func() {
		_ = g.Serve(lis)
	}()
	defer g.Stop()

	s := state.NewLatest[domain.Result]()
	followed := make(chan struct{})
	go func() {
		g.Follow(context.Background(), s)
		close(followed)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %s", resp.GetStatus())
	}

	s.Close()
	select {
	case <-followed:
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after state closed")
	}

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING, got %s", resp.GetStatus())
	}
}

func get(t *testing.T, srv *Server, path string, v any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode failed: %v", path, err)
	}
}
