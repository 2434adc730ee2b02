package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MaximPuga/savebot/internal/domain"
)

func newFacebookUnderTest(t *testing.T, serverURL string) *Facebook {
	t.Helper()
	cfg := testDownloadConfig(t)
	return &Facebook{
		sssBase:     serverURL + "/sss?url=",
		fdlBase:     serverURL + "/fdl?url=",
		legacyBases: []string{serverURL + "/legacy?url="},
		client:      testClient(),
		fetcher:     testFetcher(t, cfg),
		userAgent:   cfg.DesktopUserAgent,
		logger:      discardLogger(),
	}
}

func TestFacebook_SSSFacebookDataList(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/sss", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			t.Error("service queried without url parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":[{"url":"%s/media.mp4"}]}`, server.URL)
	})

	s := newFacebookUnderTest(t, server.URL)
	file, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/watch?v=123456",
		Format: domain.FormatVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	file.Remove()
}

func TestFacebook_SSSFacebookImageURLBecomesPhoto(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/image/post.jpg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/sss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"success","data":[{"url":"%s/image/post.jpg"}]}`, server.URL)
	})

	s := newFacebookUnderTest(t, server.URL)
	file, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/photo/?fbid=42",
		Format: domain.FormatVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer file.Remove()
	if file.Format != domain.FormatPhoto {
		t.Errorf("format = %s, want photo", file.Format)
	}
}

func TestFacebook_FDownloaderFallback(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/media.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/sss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/fdl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"download_url":"%s/media.mp4"}`, server.URL)
	})

	s := newFacebookUnderTest(t, server.URL)
	file, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/watch?v=123456",
		Format: domain.FormatVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	file.Remove()
}

func TestFacebook_LegacyPageScrape(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/video/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videoBody())
	})
	mux.HandleFunc("/sss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/fdl", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/legacy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><a href="%s/video/clip.mp4">Download HD</a></body></html>`, server.URL)
	})

	s := newFacebookUnderTest(t, server.URL)
	file, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/watch?v=123456",
		Format: domain.FormatVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	file.Remove()
}

func TestFacebook_LegacyRejectsLoginLinks(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/fdl", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/legacy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><a href="https://cdn.example.com/video/login/clip.mp4">link</a></html>`)
	})

	s := newFacebookUnderTest(t, server.URL)
	_, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/watch?v=123456",
		Format: domain.FormatVideo,
	})
	if !errors.Is(err, domain.ErrAllMirrorsExhausted) {
		t.Fatalf("err = %v, want ErrAllMirrorsExhausted", err)
	}
}

func TestFacebook_AllServicesDown(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	s := newFacebookUnderTest(t, server.URL)
	_, err := s.Fetch(context.Background(), domain.DownloadRequest{
		URL:    "https://www.facebook.com/watch?v=123456",
		Format: domain.FormatVideo,
	})
	if !errors.Is(err, domain.ErrAllMirrorsExhausted) {
		t.Fatalf("err = %v, want ErrAllMirrorsExhausted", err)
	}
}
