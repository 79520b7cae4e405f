package battlefy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/frostleaf/frost-leaderboard/internal/platform/logging"
)

func newTestClient(baseURL string, maxRetries int, rosterTTL time.Duration) *Client {
	return NewClient(ClientConfig{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		MaxRetries:     maxRetries,
		RosterCacheTTL: rosterTTL,
	}, logging.NewNop())
}

func TestClient_FetchBracket(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stages/stage-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"_id": "stage-1", "name": "Frost Cup"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0, 0)
	bracket, err := client.FetchBracket(context.Background(), "stage-1")
	if err != nil {
		t.Fatalf("fetch bracket: %v", err)
	}
	if bracket.ID != "stage-1" || bracket.Name != "Frost Cup" {
		t.Fatalf("unexpected bracket: %+v", bracket)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"_id": "stage-1", "name": "Frost Cup"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 2, 0)
	if _, err := client.FetchBracket(context.Background(), "stage-1"); err != nil {
		t.Fatalf("fetch bracket after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("unexpected attempt count: %d", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 3, 0)
	_, err := client.FetchBracket(context.Background(), "missing")
	if !crerr.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not retry, got %d attempts", calls.Load())
	}
}

func TestClient_ExhaustedRetriesReturnTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 1, 0)
	_, err := client.FetchBracket(context.Background(), "stage-1")
	if !crerr.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestClient_SchemaErrorIsNotTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id": "stage-1"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0, 0)
	_, err := client.FetchBracket(context.Background(), "stage-1")
	if !crerr.Is(err, ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if crerr.Is(err, ErrTransport) {
		t.Fatalf("schema mismatch must not be a transport error: %v", err)
	}
}

func TestClient_RosterResponsesAreCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"_id": "roster-a", "name": "Team Alpha", "players": []}]`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, 0, time.Minute)
	for i := 0; i < 3; i++ {
		roster, err := client.FetchTeams(context.Background(), "stage-1")
		if err != nil {
			t.Fatalf("fetch teams: %v", err)
		}
		if len(roster) != 1 || roster[0].ID != "roster-a" {
			t.Fatalf("unexpected roster: %+v", roster)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single upstream roster fetch, got %d", calls.Load())
	}
}
