package strategy

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/fetch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDownloadConfig(t *testing.T) config.DownloadConfig {
	t.Helper()
	return config.DownloadConfig{
		Dir:              t.TempDir(),
		MinFileSize:      16,
		MaxFileSize:      10 << 20,
		FetchTimeout:     5 * time.Second,
		MirrorTimeout:    5 * time.Second,
		MaxRedirects:     3,
		DesktopUserAgent: "test-agent",
		MobileUserAgent:  "test-mobile-agent",
	}
}

func testFetcher(t *testing.T, cfg config.DownloadConfig) *fetch.Fetcher {
	t.Helper()
	return fetch.NewFetcher(cfg, discardLogger())
}

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}
