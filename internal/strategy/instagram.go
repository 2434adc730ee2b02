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

var (
	shortcodePattern  = regexp.MustCompile(`/(?:p|reel|tv)/([^/?]+)`)
	sharedDataPattern = regexp.MustCompile(`window\._sharedData\s*=\s*(\{.+?\});`)
	ogImagePattern    = regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`)

	savefromPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)href="(https?://[^"]+instagram[^"]+\.(?:mp4|jpg|jpeg)[^"]*)"`),
		regexp.MustCompile(`(?i)data-url="(https?://[^"]+)"`),
		regexp.MustCompile(`(?i)value="(https?://[^"]+instagram[^"]+)"`),
	}
)

// mirrorItem is the common shape of the JSON mirrors' media entries.
type mirrorItem struct {
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	Src         string `json:"src"`
}

func (i mirrorItem) mediaURL() string {
	return firstNonEmpty(i.URL, i.DownloadURL, i.Src)
}

// mirrorResponse accepts both envelope styles the mirrors answer with:
// a success flag with a data list, or a flat object with the URL inline.
type mirrorResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	mirrorItem
	Type string `json:"type"`
}

// Instagram resolves posts without authentication: JSON mirror services
// first, then the post page itself, then savefrom as a last resort.
type Instagram struct {
	mirrors      []string
	pageBase     string
	savefromBase string
	client       *http.Client
	fetcher      *fetch.Fetcher
	userAgent    string
	logger       *slog.Logger
}

var defaultInstagramMirrors = []string{
	"https://instadownloader.net/api?url=",
	"https://ddinstagram.com/api?url=",
	"https://instasave.com/api?url=",
	"https://saveinstagram.com/api?url=",
}

func NewInstagram(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) *Instagram {
	return &Instagram{
		mirrors:      defaultInstagramMirrors,
		pageBase:     "https://www.instagram.com",
		savefromBase: "https://uk.savefrom.net/download?url=",
		client:       newServiceClient(cfg.Download, cfg.Download.MirrorTimeout),
		fetcher:      fetcher,
		userAgent:    cfg.Download.DesktopUserAgent,
		logger:       logger.With(slog.String("strategy", "instagram")),
	}
}

func (s *Instagram) Name() string { return "instagram" }

func (s *Instagram) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	m := shortcodePattern.FindStringSubmatch(req.URL)
	if m == nil {
		return nil, domain.ErrNoDirectLink
	}
	shortcode := m[1]
	postURL := s.pageBase + "/p/" + shortcode + "/"

	for _, mirror := range s.mirrors {
		file, err := s.viaMirror(ctx, mirror, postURL, req)
		if err != nil {
			s.logger.Warn("mirror failed",
				slog.String("mirror", mirror),
				slog.String("error", err.Error()))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		return file, nil
	}

	if file, err := s.viaPageScrape(ctx, postURL, req); err == nil {
		return file, nil
	} else {
		s.logger.Warn("page scrape failed", slog.String("error", err.Error()))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if file, err := s.viaSavefrom(ctx, req); err == nil {
		return file, nil
	} else {
		s.logger.Warn("savefrom failed", slog.String("error", err.Error()))
	}
	return nil, domain.ErrAllMirrorsExhausted
}

func (s *Instagram) viaMirror(ctx context.Context, mirror, postURL string, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, mirror+postURL, nil)
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed mirrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	mediaURL := parsed.mediaURL()
	if mediaURL == "" && len(parsed.Data) > 0 {
		var items []mirrorItem
		if err := json.Unmarshal(parsed.Data, &items); err == nil && len(items) > 0 {
			mediaURL = items[0].mediaURL()
		}
	}
	if mediaURL == "" {
		return nil, domain.ErrNoDirectLink
	}

	lower := strings.ToLower(mediaURL)
	if strings.Contains(lower, "login") || strings.Contains(lower, "auth") {
		return nil, domain.ErrNoDirectLink
	}
	return s.fetcher.Fetch(ctx, mediaURL, req.Format, domain.PlatformInstagram)
}

// sharedData is the subset of the embedded page state holding post media.
type sharedData struct {
	EntryData struct {
		PostPage []struct {
			Graphql struct {
				ShortcodeMedia struct {
					Typename   string `json:"__typename"`
					DisplayURL string `json:"display_url"`
					VideoURL   string `json:"video_url"`
				} `json:"shortcode_media"`
			} `json:"graphql"`
		} `json:"PostPage"`
	} `json:"entry_data"`
}

func (s *Instagram) viaPageScrape(ctx context.Context, postURL string, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, postURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	html := string(body)

	if m := sharedDataPattern.FindStringSubmatch(html); m != nil {
		var data sharedData
		if err := json.Unmarshal([]byte(m[1]), &data); err == nil && len(data.EntryData.PostPage) > 0 {
			media := data.EntryData.PostPage[0].Graphql.ShortcodeMedia
			if media.VideoURL != "" && req.Format == domain.FormatVideo {
				return s.fetcher.Fetch(ctx, media.VideoURL, req.Format, domain.PlatformInstagram)
			}
			if media.Typename == "GraphImage" && media.DisplayURL != "" {
				return s.fetcher.Fetch(ctx, media.DisplayURL, domain.FormatPhoto, domain.PlatformInstagram)
			}
		}
	}

	if m := ogImagePattern.FindStringSubmatch(html); m != nil {
		if strings.Contains(m[1], "instagram") {
			return s.fetcher.Fetch(ctx, m[1], domain.FormatPhoto, domain.PlatformInstagram)
		}
	}
	return nil, domain.ErrNoDirectLink
}

func (s *Instagram) viaSavefrom(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.savefromBase+url.QueryEscape(req.URL), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	html := string(body)

	for _, pattern := range savefromPatterns {
		for _, m := range pattern.FindAllStringSubmatch(html, -1) {
			candidate := m[1]
			lower := strings.ToLower(candidate)
			if !strings.Contains(lower, "instagram") {
				continue
			}
			if strings.Contains(lower, "login") || strings.Contains(lower, "auth") {
				continue
			}
			return s.fetcher.Fetch(ctx, candidate, req.Format, domain.PlatformInstagram)
		}
	}
	return nil, domain.ErrNoDirectLink
}
