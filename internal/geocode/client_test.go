package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientReverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("lat") == "" || r.URL.Query().Get("lon") == "" {
			t.Fatalf("missing coordinates: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Fatalf("expected a User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name": "Rua Augusta, Lisboa, Portugal", "lat": "38.71", "lon": "-9.14"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100)
	tag, err := client.Reverse(context.Background(), 38.71, -9.14)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if tag.Address != "Rua Augusta, Lisboa, Portugal" {
		t.Fatalf("unexpected address %q", tag.Address)
	}
	if tag.Latitude != 38.71 || tag.Longitude != -9.14 {
		t.Fatalf("coordinates not preserved: %+v", tag)
	}
}

func TestClientReverseNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100)
	if _, err := client.Reverse(context.Background(), 0, 0); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestClientForward(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "Springfield" {
			t.Fatalf("unexpected query %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
            {"display_name": "Springfield, IL", "lat": "39.8", "lon": "-89.6"},
            {"display_name": "Springfield, MA", "lat": "42.1", "lon": "-72.6"}
        ]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100)
	tags, err := client.Forward(context.Background(), "Springfield")
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 candidates got %d", len(tags))
	}
	if tags[0].Latitude != 39.8 || tags[1].Address != "Springfield, MA" {
		t.Fatalf("candidates not parsed: %+v", tags)
	}
}

func TestClientForwardZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100)
	tags, err := client.Forward(context.Background(), "nowhere at all")
	if err != nil {
		t.Fatalf("zero results are not an error: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no candidates got %v", tags)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 100)
	if _, err := client.Forward(context.Background(), "anywhere"); err == nil {
		t.Fatalf("expected error on 503")
	}
}
