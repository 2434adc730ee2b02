package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MaximPuga/savebot/internal/config"
	"github.com/MaximPuga/savebot/internal/domain"
	"github.com/MaximPuga/savebot/internal/fetch"
)

// fallbackTriggers mark yt-dlp failures that the other strategies stand
// a chance of recovering from.
var fallbackTriggers = []string{
	"rate-limit", "login required", "403", "sigi state",
	"unable to extract", "file is empty", "fragment", "forbidden",
}

// YtDlp drives the yt-dlp binary. Each run downloads into a private
// subdirectory so the resulting file can be located without knowing the
// name yt-dlp chose.
type YtDlp struct {
	cfg      config.YtDlpConfig
	download config.DownloadConfig
	logger   *slog.Logger
}

func NewYtDlp(cfg *config.Config, logger *slog.Logger) *YtDlp {
	return &YtDlp{
		cfg:      cfg.YtDlp,
		download: cfg.Download,
		logger:   logger.With(slog.String("strategy", "ytdlp")),
	}
}

func (y *YtDlp) Name() string { return "ytdlp" }

func (y *YtDlp) Fetch(ctx context.Context, req domain.DownloadRequest) (*domain.DownloadedFile, error) {
	platform := req.Platform()
	runDir := filepath.Join(y.download.Dir, "ytdlp-"+uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	args := y.buildArgs(runDir, platform, req)
	cmd := exec.CommandContext(ctx, y.cfg.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	y.logger.Info("running yt-dlp",
		slog.String("platform", platform.String()),
		slog.String("dir", runDir))

	if err := cmd.Run(); err != nil {
		os.RemoveAll(runDir)
		if ctx.Err() != nil {
			return nil, domain.ErrTimeout
		}
		return nil, y.classify(err, stderr.String())
	}

	file, err := y.findOutput(runDir, req.Format)
	if err != nil {
		os.RemoveAll(runDir)
		return nil, err
	}

	// Move the chosen file out of the run directory so the whole
	// directory, sibling outputs included, can be dropped. The caller
	// only ever removes the single file it receives.
	dest := filepath.Join(y.download.Dir, fetch.FileName(platform, req.URL, req.Format))
	if err := os.Rename(file.Path, dest); err != nil {
		os.RemoveAll(runDir)
		return nil, fmt.Errorf("move output: %w", err)
	}
	file.Path = dest
	os.RemoveAll(runDir)

	y.logger.Info("yt-dlp finished",
		slog.String("path", file.Path),
		slog.Int64("size", file.Size))
	return file, nil
}

func (y *YtDlp) buildArgs(runDir string, platform domain.Platform, req domain.DownloadRequest) []string {
	args := []string{
		"--no-playlist",
		"--geo-bypass",
		"--no-check-certificate",
		"--retries", "3",
		"--socket-timeout", "60",
		"--max-filesize", fmt.Sprintf("%d", y.download.MaxFileSize),
		"--output", filepath.Join(runDir, "%(title).80s.%(ext)s"),
	}

	if proxy := y.download.PickProxy(); proxy != "" {
		args = append(args, "--proxy", proxy)
		y.logger.Info("using proxy", slog.String("proxy", config.MaskProxy(proxy)))
	}

	switch platform {
	case domain.PlatformTikTok:
		args = append(args,
			"--format", "best[filesize<50M][ext=mp4]/worst[ext=mp4]",
			"--user-agent", y.download.MobileUserAgent,
			"--add-header", "Referer:https://www.tiktok.com/",
			"--extractor-args", "tiktok:api_hostname=api16-normal-c-useast1a.tiktokv.com;app_name=musical_ly",
		)
		args = y.appendCookies(args, y.cfg.TikTokCookies)
	case domain.PlatformInstagram:
		args = append(args,
			"--format", "best[filesize<50M][ext=mp4]/worst[ext=mp4]",
			"--user-agent", y.download.DesktopUserAgent,
			"--add-header", "Referer:https://www.instagram.com/",
		)
		args = y.appendCookies(args, y.cfg.InstagramCookies)
	case domain.PlatformPinterest:
		args = append(args,
			"--format", "best[ext=jpg]/best[ext=jpeg]/best[ext=png]/best",
			"--user-agent", y.download.DesktopUserAgent,
		)
		args = y.appendCookies(args, y.cfg.PinterestCookies)
	case domain.PlatformFacebook:
		args = append(args,
			"--format", "best[filesize<50M][ext=mp4]/worst[ext=mp4]",
			"--user-agent", y.download.DesktopUserAgent,
		)
		args = y.appendCookies(args, y.cfg.FacebookCookies)
	case domain.PlatformYouTube:
		// Plain https formats only: HLS fragments tend to 403.
		args = append(args,
			"--format", "worst[protocol=https][ext=mp4]/worst[protocol=https]/worst[ext=mp4]/worst",
			"--extractor-args", "youtube:player_client=android,web;player_skip=webpage,configs,js",
		)
	default:
		args = append(args,
			"--format", "best[filesize<50M][ext=mp4]/worst[ext=mp4]/best",
			"--user-agent", y.download.DesktopUserAgent,
		)
	}

	if req.Format == domain.FormatPhoto {
		args = append(args,
			"--write-thumbnail",
			"--format", "best[ext=jpg]/best[ext=jpeg]/best[ext=png]/best",
		)
	}

	return append(args, req.URL)
}

func (y *YtDlp) appendCookies(args []string, path string) []string {
	if path == "" {
		return args
	}
	if _, err := os.Stat(path); err != nil {
		return args
	}
	return append(args, "--cookies", path)
}

// findOutput locates the downloaded file in the run directory. yt-dlp
// names output after the media title, so the directory is scanned for
// the largest file that passes the minimum size check.
func (y *YtDlp) findOutput(runDir string, format domain.MediaFormat) (*domain.DownloadedFile, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, err
	}

	var best string
	var bestSize int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(runDir, entry.Name())
			bestSize = info.Size()
		}
	}

	if best == "" || bestSize <= y.download.MinFileSize {
		return nil, domain.ErrTooSmall
	}
	return &domain.DownloadedFile{Path: best, Size: bestSize, Format: format}, nil
}

func (y *YtDlp) classify(runErr error, stderr string) error {
	lower := strings.ToLower(stderr)
	for _, trigger := range fallbackTriggers {
		if strings.Contains(lower, trigger) {
			return fmt.Errorf("yt-dlp: %s: %w", trigger, runErr)
		}
	}
	tail := stderr
	if len(tail) > 200 {
		tail = tail[len(tail)-200:]
	}
	if tail == "" {
		return fmt.Errorf("yt-dlp: %w", runErr)
	}
	return fmt.Errorf("yt-dlp: %w: %s", runErr, strings.TrimSpace(tail))
}

// IsRecoverable reports whether a yt-dlp failure looks like one that the
// service-based strategies can work around.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, domain.ErrTooSmall) {
		return true
	}
	// A missing binary is an installation problem, not a verdict on
	// the media.
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, trigger := range fallbackTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
