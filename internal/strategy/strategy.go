// Package strategy implements the individual download methods that the
// pipeline chains together: hosted extraction services, page scraping,
// and the yt-dlp subprocess.
package strategy

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
)

// Strategy is a single download method. Fetch either stages a local file
// or returns an error; the pipeline treats any error as "try the next one".
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error)
}

// newServiceClient builds the HTTP client used for third-party service
// calls. Proxy selection happens once per client, matching the
// one-proxy-per-attempt behavior of the strategies.
func newServiceClient(cfg config.DownloadConfig, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxy := cfg.PickProxy(); proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
