package strategy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
)

var facebookVideoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)href="(https?://[^"]+facebook[^"]*\.mp4[^"]*)"`),
	regexp.MustCompile(`(?i)href="(https?://[^"]+video[^"]*\.mp4[^"]*)"`),
	regexp.MustCompile(`(?i)src="(https?://[^"]+\.mp4[^"]*)"`),
	regexp.MustCompile(`(?i)url["']?\s*[:=]\s*["'](https?://[^"']+facebook[^"']+)["']`),
}

// Facebook chains the dedicated Facebook extraction services: the JSON
// APIs first, then legacy page-based downloaders.
type Facebook struct {
	sssBase     string
	fdlBase     string
	legacyBases []string
	client      *http.Client
	fetcher     *fetch.Fetcher
	userAgent   string
	logger      *slog.Logger
}

var defaultFacebookLegacy = []string{
	"https://fdown.net/download.php?url=",
	"https://getfb.net/facebook-video-downloader?url=",
	"https://fbdown.net/download?url=",
}

func NewFacebook(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) *Facebook {
	return &Facebook{
		sssBase:     "https://sssfacebook.com/api?url=",
		fdlBase:     "https://fdownloader.net/api?url=",
		legacyBases: defaultFacebookLegacy,
		client:      newServiceClient(cfg.Download, cfg.Download.MirrorTimeout),
		fetcher:     fetcher,
		userAgent:   cfg.Download.DesktopUserAgent,
		logger:      logger.With(slog.String("strategy", "facebook")),
	}
}

func (s *Facebook) Name() string { return "facebook" }

func (s *Facebook) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	if file, err := s.viaSSSFacebook(ctx, req); err == nil {
		return file, nil
	} else {
		s.logger.Warn("sssfacebook failed", slog.String("error", err.Error()))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if file, err := s.viaFDownloader(ctx, req); err == nil {
		return file, nil
	} else {
		s.logger.Warn("fdownloader failed", slog.String("error", err.Error()))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	for _, base := range s.legacyBases {
		file, err := s.viaLegacy(ctx, base, req)
		if err != nil {
			s.logger.Warn("legacy service failed",
				slog.String("service", base),
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

func (s *Facebook) viaSSSFacebook(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	var parsed struct {
		Status string       `json:"status"`
		Data   []mirrorItem `json:"data"`
	}
	if err := s.getJSON(ctx, s.sssBase+url.QueryEscape(req.URL), &parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "success" || len(parsed.Data) == 0 {
		return nil, domain.ErrNoDirectLink
	}
	mediaURL := parsed.Data[0].mediaURL()
	if mediaURL == "" {
		return nil, domain.ErrNoDirectLink
	}
	format := req.Format
	if strings.Contains(mediaURL, "image") {
		format = domain.FormatPhoto
	}
	return s.fetcher.Fetch(ctx, mediaURL, format, domain.PlatformFacebook)
}

func (s *Facebook) viaFDownloader(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	var parsed mirrorItem
	if err := s.getJSON(ctx, s.fdlBase+url.QueryEscape(req.URL), &parsed); err != nil {
		return nil, err
	}
	mediaURL := parsed.mediaURL()
	if mediaURL == "" {
		return nil, domain.ErrNoDirectLink
	}
	return s.fetcher.Fetch(ctx, mediaURL, req.Format, domain.PlatformFacebook)
}

func (s *Facebook) viaLegacy(ctx context.Context, base string, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+url.QueryEscape(req.URL), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Some of these services just redirect to the file.
	if final := resp.Request.URL.String(); fetch.HasMediaExtension(final) {
		return s.fetcher.Fetch(ctx, final, req.Format, domain.PlatformFacebook)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	html := string(body)

	for _, pattern := range facebookVideoPatterns {
		for _, m := range pattern.FindAllStringSubmatch(html, -1) {
			candidate := m[1]
			lower := strings.ToLower(candidate)
			if !strings.Contains(lower, ".mp4") && !strings.Contains(lower, "video") {
				continue
			}
			if strings.Contains(lower, "login") || strings.Contains(lower, "auth") || strings.Contains(lower, "error") {
				continue
			}
			return s.fetcher.Fetch(ctx, candidate, req.Format, domain.PlatformFacebook)
		}
	}
	return nil, domain.ErrNoDirectLink
}

func (s *Facebook) getJSON(ctx context.Context, rawURL string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &domain.HTTPStatusError{Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
