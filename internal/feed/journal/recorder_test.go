package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/state"
	"github.com/vietddude/catfeed/internal/infra/storage"
	"github.com/vietddude/catfeed/internal/infra/storage/memory"
)

type failingRepo struct {
	memory.Journal
}

func (f *failingRepo) Append(ctx context.Context, e *storage.Entry) error {
	return errors.New("disk full")
}

func TestRecorder_RecordsPublishedResults(t *testing.T) {
	repo := memory.NewJournal(10)
	s := state.NewLatest[domain.Result]()
	r := NewRecorder(repo, "memory", "sub-1")

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), s)
	}()

	s.Set(domain.Success{Fact: domain.NewFact("Cats sleep 70% of their lives")})
	waitCount(t, repo, 1)
	s.Set(domain.ServerError{})
	waitCount(t, repo, 2)

	s.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after state closed")
	}

	entries, _ := repo.Recent(context.Background(), 0)
	if entries[0].Kind != domain.KindServerError || entries[1].Fact != "Cats sleep 70% of their lives" {
		t.Errorf("unexpected entries %+v %+v", entries[0], entries[1])
	}
	if entries[0].Subscription != "sub-1" {
		t.Errorf("expected subscription sub-1, got %q", entries[0].Subscription)
	}
}

func TestRecorder_BackendFailureDoesNotStop(t *testing.T) {
	s := state.NewLatest[domain.Result]()
	r := NewRecorder(&failingRepo{}, "broken", "sub-1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, s)
	}()

	s.Set(domain.ServerError{})
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func waitCount(t *testing.T, repo storage.JournalRepository, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got, _ := repo.Count(context.Background()); got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("journal never reached %d entries", n)
}
