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
	ssstikTokenPattern = regexp.MustCompile(`name="_token" value="([^"]+)"`)
	ssstikVideoPattern = regexp.MustCompile(`href="(https?://[^"]+\.mp4[^"]*)"`)
	snaptikURLPattern  = regexp.MustCompile(`data-video-url="([^"]+)"`)
)

// tikwmResponse is the TikWM API envelope. Video URLs show up under
// several field names depending on the clip.
type tikwmResponse struct {
	Code int `json:"code"`
	Data struct {
		HDPlay string `json:"hdplay"`
		Play   string `json:"play"`
		WMPlay string `json:"wmplay"`
		Video0 string `json:"video_0"`
	} `json:"data"`
}

// TikTok tries the dedicated TikTok extraction services in order of
// reliability: TikWM, then SSSTik, then SnapTik.
type TikTok struct {
	tikwmBase   string
	ssstikBase  string
	snaptikBase string
	client      *http.Client
	fetcher     *fetch.Fetcher
	userAgent   string
	logger      *slog.Logger
}

func NewTikTok(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) *TikTok {
	return &TikTok{
		tikwmBase:   "https://www.tikwm.com",
		ssstikBase:  "https://ssstik.io",
		snaptikBase: "https://snaptik.app",
		client:      newServiceClient(cfg.Download, cfg.Download.MirrorTimeout),
		fetcher:     fetcher,
		userAgent:   cfg.Download.DesktopUserAgent,
		logger:      logger.With(slog.String("strategy", "tiktok")),
	}
}

func (t *TikTok) Name() string { return "tiktok" }

func (t *TikTok) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	type attempt struct {
		name string
		run  func(context.Context, domain.DownloadRequest) (*domain.DownloadedFile, error)
	}
	attempts := []attempt{
		{"tikwm", t.viaTikWM},
		{"ssstik", t.viaSSSTik},
		{"snaptik", t.viaSnapTik},
	}

	for _, a := range attempts {
		file, err := a.run(ctx, req)
		if err != nil {
			t.logger.Warn("service failed",
				slog.String("service", a.name),
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

func (t *TikTok) viaTikWM(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	form := url.Values{
		"url":    {req.URL},
		"count":  {"1"},
		"cursor": {"0"},
		"web":    {"1"},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tikwmBase+"/api/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	var parsed tikwmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Code != 0 {
		return nil, domain.ErrNoDirectLink
	}

	videoURL := firstNonEmpty(parsed.Data.HDPlay, parsed.Data.Play, parsed.Data.WMPlay, parsed.Data.Video0)
	if videoURL == "" {
		return nil, domain.ErrNoDirectLink
	}
	if strings.HasPrefix(videoURL, "/") {
		videoURL = t.tikwmBase + videoURL
	}
	return t.fetcher.Fetch(ctx, videoURL, req.Format, domain.PlatformTikTok)
}

func (t *TikTok) viaSSSTik(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	// The download form needs a per-session token scraped from the page.
	tokenReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.ssstikBase+"/ru", nil)
	if err != nil {
		return nil, err
	}
	tokenResp, err := t.client.Do(tokenReq)
	if err != nil {
		return nil, err
	}
	page, err := io.ReadAll(io.LimitReader(tokenResp.Body, 1<<20))
	tokenResp.Body.Close()
	if err != nil {
		return nil, err
	}
	if tokenResp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: tokenResp.StatusCode}
	}

	m := ssstikTokenPattern.FindSubmatch(page)
	if m == nil {
		return nil, domain.ErrNoDirectLink
	}

	form := url.Values{
		"id":     {req.URL},
		"locale": {"ru"},
		"tt":     {string(m[1])},
	}
	dlReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.ssstikBase+"/abc?url=dl", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	dlReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	dlReq.Header.Set("User-Agent", t.userAgent)

	dlResp, err := t.client.Do(dlReq)
	if err != nil {
		return nil, err
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPStatusError{Code: dlResp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(dlResp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	vm := ssstikVideoPattern.FindSubmatch(body)
	if vm == nil {
		return nil, domain.ErrNoDirectLink
	}
	return t.fetcher.Fetch(ctx, string(vm[1]), req.Format, domain.PlatformTikTok)
}

func (t *TikTok) viaSnapTik(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.snaptikBase+"/abc?url="+url.QueryEscape(req.URL), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(httpReq)
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
	m := snaptikURLPattern.FindSubmatch(body)
	if m == nil {
		return nil, domain.ErrNoDirectLink
	}
	return t.fetcher.Fetch(ctx, string(m[1]), req.Format, domain.PlatformTikTok)
}
