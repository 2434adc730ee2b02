package strategy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:shorts/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`(?:youtu\.be/)([0-9A-Za-z_-]{11})`),
}

// invidiousResponse covers both the Invidious and the Piped stream
// listing formats. Instances of either kind share the endpoint table.
type invidiousResponse struct {
	FormatStreams   []streamFormat `json:"formatStreams"`
	AdaptiveFormats []streamFormat `json:"adaptiveFormats"`
	VideoStreams    []streamFormat `json:"videoStreams"`
}

type streamFormat struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// YouTube resolves videos through public Invidious and Piped frontends,
// which serve stream URLs without an API key.
type YouTube struct {
	instances []string
	client    *http.Client
	fetcher   *fetch.Fetcher
	userAgent string
	logger    *slog.Logger
}

func NewYouTube(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) *YouTube {
	return &YouTube{
		instances: cfg.Endpoints.Invidious,
		client:    newServiceClient(cfg.Download, cfg.Download.MirrorTimeout),
		fetcher:   fetcher,
		userAgent: cfg.Download.DesktopUserAgent,
		logger:    logger.With(slog.String("strategy", "youtube")),
	}
}

func (s *YouTube) Name() string { return "youtube" }

// ExtractVideoID pulls the 11-character video ID out of any YouTube URL
// shape, or returns "" when none is present.
func ExtractVideoID(rawURL string) string {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

func (s *YouTube) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	videoID := ExtractVideoID(req.URL)
	if videoID == "" {
		return nil, domain.ErrNoDirectLink
	}

	for _, instance := range s.instances {
		file, err := s.tryInstance(ctx, instance+videoID, req)
		if err != nil {
			s.logger.Warn("instance failed",
				slog.String("instance", instance),
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

func (s *YouTube) tryInstance(ctx context.Context, apiURL string, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "video/") || strings.Contains(contentType, "application/octet-stream") {
		return s.fetcher.Fetch(ctx, apiURL, req.Format, domain.PlatformYouTube)
	}
	if !strings.Contains(contentType, "json") {
		return nil, domain.ErrNoDirectLink
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	var parsed invidiousResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	formats := append(parsed.FormatStreams, parsed.AdaptiveFormats...)
	for _, f := range formats {
		if f.URL != "" && strings.Contains(f.Type, "video") && strings.Contains(f.Type, "mp4") {
			return s.fetcher.Fetch(ctx, f.URL, req.Format, domain.PlatformYouTube)
		}
	}
	for _, f := range parsed.VideoStreams {
		if f.URL != "" {
			return s.fetcher.Fetch(ctx, f.URL, req.Format, domain.PlatformYouTube)
		}
	}
	return nil, domain.ErrNoDirectLink
}
