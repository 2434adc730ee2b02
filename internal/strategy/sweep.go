package strategy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
	"github.com/MaximPuga/savebot/internal/scrape"
)

// Sweep walks the per-platform table of generic download endpoints.
// Each endpoint gets the target URL appended and may answer with either
// the media bytes directly or an HTML page containing a link.
type Sweep struct {
	endpoints *config.EndpointsConfig
	client    *http.Client
	fetcher   *fetch.Fetcher
	resolver  *fetch.Resolver
	extractor *scrape.Extractor
	cfg       config.DownloadConfig
	logger    *slog.Logger
}

func NewSweep(cfg *config.Config, fetcher *fetch.Fetcher, resolver *fetch.Resolver, logger *slog.Logger) *Sweep {
	return &Sweep{
		endpoints: &cfg.Endpoints,
		client:    newServiceClient(cfg.Download, 30*time.Second),
		fetcher:   fetcher,
		resolver:  resolver,
		extractor: scrape.NewExtractor(),
		cfg:       cfg.Download,
		logger:    logger.With(slog.String("strategy", "sweep")),
	}
}

func (s *Sweep) Name() string { return "sweep" }

func (s *Sweep) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	platform := req.Platform()
	for _, endpoint := range s.endpoints.SweepList(platform) {
		file, err := s.tryEndpoint(ctx, endpoint, platform, req)
		if err != nil {
			s.logger.Warn("endpoint failed",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return file, nil
	}
	return nil, domain.ErrAllMirrorsExhausted
}

func (s *Sweep) tryEndpoint(ctx context.Context, endpoint string, platform domain.Platform, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+url.QueryEscape(req.URL), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", s.cfg.DesktopUserAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, err
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if isMediaPayload(contentType, body) {
		return s.writeDirect(platform, req.URL, contentType, body)
	}

	downloadURL := s.extractor.First(string(body))
	if downloadURL == "" {
		return nil, domain.ErrNoDirectLink
	}
	if fetch.IsRouterURL(downloadURL) {
		return s.resolver.Resolve(ctx, downloadURL, req.Format, platform)
	}
	return s.fetcher.Fetch(ctx, downloadURL, req.Format, platform)
}

// writeDirect stages media bytes the endpoint served inline.
func (s *Sweep) writeDirect(platform domain.Platform, sourceURL, contentType string, body []byte) (*domain.DownloadedFile, error) {
	if int64(len(body)) <= s.cfg.MinFileSize {
		return nil, domain.ErrTooSmall
	}
	if int64(len(body)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("payload exceeds size limit: %d bytes", len(body))
	}

	format := domain.FormatPhoto
	if strings.Contains(contentType, "video") || SniffFormat(body) == domain.FormatVideo {
		format = domain.FormatVideo
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(s.cfg.Dir, fetch.FileName(platform, sourceURL, format))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, err
	}

	s.logger.Info("staged inline payload",
		slog.String("path", path),
		slog.Int("size", len(body)))
	return &domain.DownloadedFile{Path: path, Size: int64(len(body)), Format: format}, nil
}

// isMediaPayload reports whether the response carries media bytes rather
// than an HTML page, judged by content type or file signature.
func isMediaPayload(contentType string, body []byte) bool {
	if strings.Contains(contentType, "video/") || strings.Contains(contentType, "image/") {
		return true
	}
	return sniffSignature(body)
}

// sniffSignature checks the payload head for known media signatures:
// MP4 brand boxes, JPEG, PNG and the EBML header used by WebM.
func sniffSignature(body []byte) bool {
	if len(body) <= 32 {
		return false
	}
	head := body[:32]
	switch {
	case bytes.Contains(head, []byte("ftyp")):
		return true
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8}):
		return true
	case bytes.HasPrefix(head, []byte("\x89PNG")):
		return true
	case bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return true
	}
	return false
}

// SniffFormat guesses the media format from the payload signature.
func SniffFormat(body []byte) domain.MediaFormat {
	if len(body) > 32 {
		head := body[:32]
		if bytes.Contains(head, []byte("ftyp")) || bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
			return domain.FormatVideo
		}
	}
	return domain.FormatPhoto
}
