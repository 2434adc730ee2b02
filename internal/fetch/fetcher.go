package fetch

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
)

// Fetcher downloads raw media bytes from a resolved direct URL and stages
// them under the downloads directory.
type Fetcher struct {
	client *http.Client
	cfg    config.DownloadConfig
	logger *slog.Logger
}

// NewFetcher creates a new direct media fetcher.
func NewFetcher(cfg config.DownloadConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch performs a GET on mediaURL and writes the body to a file named
// {platform}_{hash}{ext} in the downloads directory. Files at or below the
// minimum size are deleted and reported as ErrTooSmall. The caller owns the
// returned file and must remove it after use.
func (f *Fetcher) Fetch(ctx context.Context, mediaURL string, format domain.MediaFormat, platform domain.Platform) (*domain.DownloadedFile, error) {
	mediaURL = CleanURL(mediaURL)
	if !strings.HasPrefix(mediaURL, "http://") && !strings.HasPrefix(mediaURL, "https://") {
		return nil, domain.ErrUnsupportedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.DesktopUserAgent)
	req.Header.Set("Accept", "video/mp4,video/webm,image/jpeg,video/*;q=0.9,image/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	if err := os.MkdirAll(f.cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}

	path := filepath.Join(f.cfg.Dir, FileName(platform, mediaURL, format))
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	if n <= f.cfg.MinFileSize {
		os.Remove(path)
		return nil, domain.ErrTooSmall
	}

	f.logger.Info("media fetched",
		"platform", platform,
		"bytes", n,
		"path", path,
	)

	return &domain.DownloadedFile{Path: path, Size: n, Format: format}, nil
}

// FileName builds the staged file name for a media URL. Hash collisions
// between concurrent requests are possible and accepted; the file is
// truncated on create and lives only until the send completes.
func FileName(platform domain.Platform, mediaURL string, format domain.MediaFormat) string {
	h := fnv.New32a()
	h.Write([]byte(mediaURL))
	return fmt.Sprintf("%s_%d%s", platform, h.Sum32()%1_000_000, format.Ext())
}

// CleanURL strips quoting and escape artifacts that proxy-service HTML
// tends to leave around extracted links.
func CleanURL(raw string) string {
	raw = strings.Trim(raw, "\"' ")
	raw = strings.ReplaceAll(raw, "\\u0026", "&")
	raw = strings.ReplaceAll(raw, "\\/", "/")
	raw = strings.ReplaceAll(raw, "&amp;", "&")
	return raw
}
