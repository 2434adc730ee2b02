// Package pipeline chains the download strategies into per-platform
// plans and runs a request through them until one succeeds.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
	"github.com/MaximPuga/savebot/internal/strategy"
)

// Pipeline resolves download requests. Strategies run in order and a
// failure falls through to the next, except for a context deadline or
// a yt-dlp error no other strategy can recover from.
type Pipeline struct {
	plans    map[domain.Platform][]strategy.Strategy
	fallback []strategy.Strategy
	cfg      config.DownloadConfig
	logger   *slog.Logger
}

// New wires the standard strategy plans. Instagram tries its dedicated
// services before yt-dlp because the binary needs login cookies there;
// everywhere else yt-dlp goes first.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	fetcher := fetch.NewFetcher(cfg.Download, logger)
	resolver := fetch.NewResolver(cfg.Download, fetcher, logger)

	ytdlp := strategy.NewYtDlp(cfg, logger)
	cobalt := strategy.NewCobalt(cfg, fetcher, logger)
	tiktok := strategy.NewTikTok(cfg, fetcher, logger)
	instagram := strategy.NewInstagram(cfg, fetcher, logger)
	facebook := strategy.NewFacebook(cfg, fetcher, logger)
	youtube := strategy.NewYouTube(cfg, fetcher, logger)
	sweep := strategy.NewSweep(cfg, fetcher, resolver, logger)

	plans := map[domain.Platform][]strategy.Strategy{
		domain.PlatformInstagram: {instagram, ytdlp, cobalt, sweep},
		domain.PlatformTikTok:    {ytdlp, tiktok, cobalt, sweep},
		domain.PlatformFacebook:  {ytdlp, facebook, cobalt, sweep},
		domain.PlatformYouTube:   {ytdlp, youtube, cobalt, sweep},
	}
	fallback := []strategy.Strategy{ytdlp, cobalt, sweep}

	return &Pipeline{
		plans:    plans,
		fallback: fallback,
		cfg:      cfg.Download,
		logger:   logger,
	}
}

// NewWithPlans builds a pipeline from explicit plans. Used by tests and
// by callers that need a trimmed strategy set.
func NewWithPlans(cfg config.DownloadConfig, plans map[domain.Platform][]strategy.Strategy, fallback []strategy.Strategy, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		plans:    plans,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
	}
}

// PlanFor returns the strategy chain used for a platform.
func (p *Pipeline) PlanFor(platform domain.Platform) []strategy.Strategy {
	if plan, ok := p.plans[platform]; ok {
		return plan
	}
	return p.fallback
}

// Download runs the request through its platform's strategy chain under
// a per-platform deadline. The first staged file wins; the caller owns
// it and must remove it after use.
func (p *Pipeline) Download(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	platform := req.Platform()
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PlatformTimeout(platform))
	defer cancel()

	logger := p.logger.With(
		slog.String("platform", platform.String()),
		slog.String("format", string(req.Format)))
	logger.Info("resolving request", slog.String("url", req.URL))

	var lastErr error
	for _, s := range p.PlanFor(platform) {
		file, err := s.Fetch(ctx, req)
		if err == nil {
			logger.Info("strategy succeeded",
				slog.String("strategy", s.Name()),
				slog.String("path", file.Path),
				slog.Int64("size", file.Size))
			return file, nil
		}

		lastErr = err
		logger.Warn("strategy failed",
			slog.String("strategy", s.Name()),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			return nil, domain.NewDownloadError(platform, s.Name(), domain.ErrTimeout)
		}

		// A yt-dlp failure outside the known recoverable classes means
		// the media itself is gone or blocked; the service strategies
		// would only burn their quotas on it.
		if _, ok := s.(*strategy.YtDlp); ok && !strategy.IsRecoverable(err) {
			return nil, domain.NewDownloadError(platform, s.Name(), err)
		}
	}

	if lastErr == nil {
		lastErr = domain.ErrAllStrategiesExhausted
	} else if !errors.Is(lastErr, domain.ErrAllStrategiesExhausted) {
		lastErr = errors.Join(domain.ErrAllStrategiesExhausted, lastErr)
	}
	return nil, domain.NewDownloadError(platform, "download", lastErr)
}
