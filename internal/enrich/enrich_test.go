package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBreachClientLookupOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header to be set")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Adobe","title":"Adobe","domain":"adobe.com","pwn_count":152000000,"is_verified":true}]`))
	}))
	defer srv.Close()

	c := NewBreachClient(srv.URL, "", 2*time.Second)
	records, err := c.Lookup(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Adobe" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestBreachClientLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBreachClient(srv.URL, "", 2*time.Second)
	records, err := c.Lookup(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("404 should not be an error, got: %v", err)
	}
	if records != nil {
		t.Fatalf("expected nil records on 404, got %+v", records)
	}
}

func TestBreachClientLookupRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBreachClient(srv.URL, "", 2*time.Second)
	_, err := c.Lookup(context.Background(), "test@example.com")
	var cerr *CollaboratorError
	if err == nil {
		t.Fatal("expected a collaborator error")
	}
	if !asCollaboratorError(err, &cerr) || cerr.Kind != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestEmbedClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, 2*time.Second)
	vec, err := c.Embed(context.Background(), "nomic-embed-text", "hello world")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim embedding, got %v", vec)
	}
}

func TestEmbedClientHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("expected /api/tags, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, 2*time.Second)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func asCollaboratorError(err error, target **CollaboratorError) bool {
	if ce, ok := err.(*CollaboratorError); ok {
		*target = ce
		return true
	}
	return false
}
