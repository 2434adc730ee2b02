package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MaximPuga/savebot/internal/domain"
)

func videoBody() string {
	return strings.Repeat("v", 4096)
}

func TestCobalt_FirstInstanceWins(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/video.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"stream","url":"%s/video.mp4"}`, server.URL)
	})

	cfg := testDownloadConfig(t)
	c := &Cobalt{
		instances: []string{server.URL + "/api/download"},
		client:    testClient(),
		fetcher:   testFetcher(t, cfg),
		userAgent: cfg.DesktopUserAgent,
		logger:    discardLogger(),
	}

	file, err := c.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.tiktok.com/@user/video/1",
		Format: domain.FormatVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer file.Remove()
	if file.Size != int64(len(videoBody())) {
		t.Errorf("size = %d, want %d", file.Size, len(videoBody()))
	}
}

func TestCobalt_StreamFieldFallback(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/video.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"stream","stream":"%s/video.mp4"}`, server.URL)
	})

	cfg := testDownloadConfig(t)
	c := &Cobalt{
		instances: []string{server.URL + "/api/download"},
		client:    testClient(),
		fetcher:   testFetcher(t, cfg),
		logger:    discardLogger(),
	}

	file, err := c.Fetch(context.Background(), domain.DownloadRequest{URL: "https://youtu.be/abc", Format: domain.FormatVideo})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	file.Remove()
}

func TestCobalt_SkipsDeadInstances(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/video.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "this instance has shut down")
	})
	mux.HandleFunc("/alive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"url":"%s/video.mp4"}`, server.URL)
	})

	cfg := testDownloadConfig(t)
	c := &Cobalt{
		instances: []string{server.URL + "/dead", server.URL + "/alive"},
		client:    testClient(),
		fetcher:   testFetcher(t, cfg),
		logger:    discardLogger(),
	}

	file, err := c.Fetch(context.Background(), domain.DownloadRequest{URL: "https://youtu.be/abc", Format: domain.FormatVideo})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	file.Remove()
}

func TestCobalt_AllInstancesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testDownloadConfig(t)
	c := &Cobalt{
		instances: []string{server.URL + "/a", server.URL + "/b"},
		client:    testClient(),
		fetcher:   testFetcher(t, cfg),
		logger:    discardLogger(),
	}

	_, err := c.Fetch(context.Background(), domain.DownloadRequest{URL: "https://youtu.be/abc", Format: domain.FormatVideo})
	if !errors.Is(err, domain.ErrAllMirrorsExhausted) {
		t.Fatalf("err = %v, want ErrAllMirrorsExhausted", err)
	}
}

func TestCobalt_CancelledContextStopsSweep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testDownloadConfig(t)
	c := &Cobalt{
		instances: []string{server.URL + "/a", server.URL + "/b"},
		client:    testClient(),
		fetcher:   testFetcher(t, cfg),
		logger:    discardLogger(),
	}

	_, err := c.Fetch(ctx, domain.DownloadRequest{URL: "https://youtu.be/abc", Format: domain.FormatVideo})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
