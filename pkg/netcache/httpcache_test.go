package netcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	c := New(t.TempDir())
	c.Backoff = 0
	c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return c
}

func TestGetRevalidates(t *testing.T) {
	var full, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		full.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_, _ = io.WriteString(w, "Hello {{ name }}")
	}))
	defer srv.Close()

	c := newTestCache(t)
	ctx := context.Background()

	got, err := c.ReadString(ctx, srv.URL+"/t.tpl")
	if err != nil || got != "Hello {{ name }}" {
		t.Fatalf("first fetch = %q, %v", got, err)
	}
	path, fromCache, err := c.Get(ctx, srv.URL+"/t.tpl")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !fromCache || path == "" {
		t.Fatalf("expected cached copy, got %q fromCache=%v", path, fromCache)
	}
	if full.Load() != 1 || conditional.Load() != 1 {
		t.Fatalf("full=%d conditional=%d", full.Load(), conditional.Load())
	}
}

func TestGetServesStaleCopy(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		_, _ = io.WriteString(w, "data")
	}))
	defer srv.Close()

	c := newTestCache(t)
	ctx := context.Background()
	if _, err := c.ReadString(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	got, err := c.ReadString(ctx, srv.URL)
	if err != nil || got != "data" {
		t.Fatalf("stale fetch = %q, %v", got, err)
	}
}

func TestGetRetriesThenFails(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestCache(t)
	c.Attempts = 2
	_, _, err := c.Get(context.Background(), srv.URL+"/missing")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d, want 2", hits.Load())
	}
}
