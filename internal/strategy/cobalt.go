package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
)

// cobaltResponse covers the v8 API reply. Older instances answered with
// a stream field instead of url.
type cobaltResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Stream string `json:"stream"`
}

// Cobalt asks a set of cobalt instances to resolve the link. Instances
// are tried in order and the first usable answer wins.
type Cobalt struct {
	instances []string
	client    *http.Client
	fetcher   *fetch.Fetcher
	userAgent string
	logger    *slog.Logger
}

func NewCobalt(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) *Cobalt {
	return &Cobalt{
		instances: cfg.Endpoints.Cobalt,
		client:    newServiceClient(cfg.Download, cfg.Download.MirrorTimeout),
		fetcher:   fetcher,
		userAgent: cfg.Download.DesktopUserAgent,
		logger:    logger.With(slog.String("strategy", "cobalt")),
	}
}

func (c *Cobalt) Name() string { return "cobalt" }

func (c *Cobalt) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	payload, err := json.Marshal(map[string]string{
		"url":          req.URL,
		"downloadMode": "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	for _, instance := range c.instances {
		file, err := c.tryInstance(ctx, instance, payload, req)
		if err != nil {
			c.logger.Warn("instance failed",
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

func (c *Cobalt) tryInstance(ctx context.Context, instance string, payload []byte, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, instance, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "shut down") {
			return nil, fmt.Errorf("instance shut down")
		}
		return nil, &domain.HTTPStatusError{Code: resp.StatusCode}
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var parsed cobaltResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		mediaURL := firstNonEmpty(parsed.URL, parsed.Stream)
		if mediaURL == "" {
			return nil, domain.ErrNoDirectLink
		}
		return c.fetcher.Fetch(ctx, mediaURL, req.Format, req.Platform())
	}

	// Some instances redirect straight to the file.
	if final := resp.Request.URL.String(); final != instance {
		return c.fetcher.Fetch(ctx, final, req.Format, req.Platform())
	}
	return nil, domain.ErrNoDirectLink
}
