package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
)

// mediaURLPattern matches absolute URLs ending in a known media extension,
// as they appear embedded in proxy-service response bodies.
var mediaURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+\.(?:mp4|webm|jpg|jpeg|png)`)

// maxScanBody caps how much of a response body the resolver scans for
// embedded media links.
const maxScanBody = 2 << 20

// Resolver walks intermediate redirect/router URLs until a direct media
// URL is found or the depth bound is hit.
type Resolver struct {
	client  *http.Client
	fetcher *Fetcher
	cfg     config.DownloadConfig
	logger  *slog.Logger
}

// NewResolver creates a redirect resolver that hands resolved direct URLs
// to the given fetcher.
func NewResolver(cfg config.DownloadConfig, fetcher *Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: cfg.MirrorTimeout,
		},
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Resolve follows a router/redirect URL to a direct media file.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, format domain.MediaFormat, platform domain.Platform) (*domain.DownloadedFile, error) {
	return r.resolve(ctx, rawURL, format, platform, 0)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, format domain.MediaFormat, platform domain.Platform, depth int) (*domain.DownloadedFile, error) {
	if depth >= r.cfg.MaxRedirects {
		return nil, domain.ErrTooManyRedirects
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.DesktopUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("follow redirect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	finalURL := resp.Request.URL.String()

	// Landed on the media file itself.
	if HasMediaExtension(finalURL) {
		return r.fetcher.Fetch(ctx, finalURL, format, platform)
	}

	// Still a router URL: keep walking.
	if IsRouterURL(finalURL) && finalURL != rawURL {
		return r.resolve(ctx, finalURL, format, platform, depth+1)
	}

	// No progress at all. Equality is textual only; semantically-equal
	// variants of the same URL are not detected.
	if finalURL == rawURL {
		return nil, domain.ErrRedirectLoop
	}

	// Last resort: scan the landing page for an embedded media URL.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if match := mediaURLPattern.FindString(string(body)); match != "" {
		r.logger.Debug("embedded media link found",
			"platform", platform,
			"depth", depth,
		)
		return r.fetcher.Fetch(ctx, match, format, platform)
	}

	return nil, domain.ErrNoDirectLink
}

// HasMediaExtension reports whether a URL looks like a direct media file.
func HasMediaExtension(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range []string{".mp4", ".webm", ".jpg", ".jpeg", ".png"} {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// IsRouterURL reports whether a URL still looks like an intermediate
// download-router link rather than a content page.
func IsRouterURL(url string) bool {
	return strings.Contains(url, "router.parklogic.com") || strings.Contains(url, "download?url=")
}
