package config

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/MaximPuga/savebot/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Ops       OpsConfig       `yaml:"ops"`
	Download  DownloadConfig  `yaml:"download"`
	Worker    WorkerConfig    `yaml:"worker"`
	YtDlp     YtDlpConfig     `yaml:"ytdlp"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	Token     string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	TokenFile string `yaml:"token_file" envconfig:"TELEGRAM_TOKEN_FILE" default:"token.txt"`
	Debug     bool   `yaml:"debug" envconfig:"TELEGRAM_DEBUG"`
}

// OpsConfig holds the health/stats HTTP server configuration.
type OpsConfig struct {
	Host string `yaml:"host" envconfig:"OPS_HOST" default:"0.0.0.0"`
	Port int    `yaml:"port" envconfig:"OPS_PORT" default:"8086"`
}

// Address returns the ops server address in host:port format.
func (c *OpsConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DownloadConfig holds media download configuration.
type DownloadConfig struct {
	Dir              string        `yaml:"dir" envconfig:"DOWNLOAD_DIR"`
	MinFileSize      int64         `yaml:"min_file_size" envconfig:"MIN_FILE_SIZE" default:"1024"`
	MaxFileSize      int64         `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"52428800"` // 50MB Telegram limit
	FetchTimeout     time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" default:"60s"`
	MirrorTimeout    time.Duration `yaml:"mirror_timeout" envconfig:"MIRROR_TIMEOUT" default:"25s"`
	MaxRedirects     int           `yaml:"max_redirects" envconfig:"MAX_REDIRECTS" default:"3"`
	DesktopUserAgent string        `yaml:"desktop_user_agent" envconfig:"DESKTOP_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	MobileUserAgent  string        `yaml:"mobile_user_agent" envconfig:"MOBILE_USER_AGENT" default:"Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"`
	Proxies          []string      `yaml:"proxies" envconfig:"PROXIES"`
	Proxy            string        `yaml:"proxy" envconfig:"PROXY_URL"`

	// Per-platform deadlines bounding the whole strategy chain.
	DefaultTimeout   time.Duration `yaml:"default_timeout" envconfig:"TIMEOUT_DEFAULT" default:"90s"`
	TikTokTimeout    time.Duration `yaml:"tiktok_timeout" envconfig:"TIMEOUT_TIKTOK" default:"120s"`
	PinterestTimeout time.Duration `yaml:"pinterest_timeout" envconfig:"TIMEOUT_PINTEREST" default:"120s"`
	FacebookTimeout  time.Duration `yaml:"facebook_timeout" envconfig:"TIMEOUT_FACEBOOK" default:"120s"`
	InstagramTimeout time.Duration `yaml:"instagram_timeout" envconfig:"TIMEOUT_INSTAGRAM" default:"180s"`
}

// PlatformTimeout returns the strategy-chain deadline for a platform.
func (c *DownloadConfig) PlatformTimeout(p domain.Platform) time.Duration {
	switch p {
	case domain.PlatformTikTok:
		return c.TikTokTimeout
	case domain.PlatformPinterest:
		return c.PinterestTimeout
	case domain.PlatformFacebook:
		return c.FacebookTimeout
	case domain.PlatformInstagram:
		return c.InstagramTimeout
	default:
		return c.DefaultTimeout
	}
}

// PickProxy selects a proxy at random for a request, or "" when none are
// configured. Selection is per call: strategies within one request may end
// up on different proxies.
func (c *DownloadConfig) PickProxy() string {
	if len(c.Proxies) > 0 {
		return c.Proxies[rand.Intn(len(c.Proxies))]
	}
	return c.Proxy
}

// WorkerConfig holds download worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"500ms"`
}

// YtDlpConfig holds configuration for the external extraction binary.
type YtDlpConfig struct {
	Binary           string `yaml:"binary" envconfig:"YTDLP_BINARY" default:"yt-dlp"`
	InstagramCookies string `yaml:"instagram_cookies" envconfig:"INSTAGRAM_COOKIES_FILE" default:"instagram_cookies.txt"`
	TikTokCookies    string `yaml:"tiktok_cookies" envconfig:"TIKTOK_COOKIES_FILE" default:"tiktok_cookies.txt"`
	FacebookCookies  string `yaml:"facebook_cookies" envconfig:"FACEBOOK_COOKIES_FILE" default:"facebook_cookies.txt"`
	PinterestCookies string `yaml:"pinterest_cookies" envconfig:"PINTEREST_COOKIES_FILE" default:"pinterest_cookies.txt"`
}

// EndpointsConfig holds the third-party service tables. These rot quickly
// (mirrors go offline, response shapes change) so they are configuration,
// not code.
type EndpointsConfig struct {
	Cobalt    []string `yaml:"cobalt"`
	Invidious []string `yaml:"invidious"`
	TikTok    []string `yaml:"tiktok"`
	Instagram []string `yaml:"instagram"`
	Pinterest []string `yaml:"pinterest"`
	Facebook  []string `yaml:"facebook"`
	Universal []string `yaml:"universal"`
}

// SweepList returns the alternative-API endpoint list for a platform,
// falling back to the universal list.
func (c *EndpointsConfig) SweepList(p domain.Platform) []string {
	switch p {
	case domain.PlatformTikTok:
		return c.TikTok
	case domain.PlatformInstagram:
		return c.Instagram
	case domain.PlatformPinterest:
		return c.Pinterest
	case domain.PlatformFacebook:
		return c.Facebook
	default:
		return c.Universal
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.applyDefaults()

	// Token file is a fallback for deployments that cannot set env vars.
	if cfg.Telegram.Token == "" && cfg.Telegram.TokenFile != "" {
		if data, err := os.ReadFile(cfg.Telegram.TokenFile); err == nil {
			cfg.Telegram.Token = strings.TrimSpace(string(data))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Download.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Download.Dir = filepath.Join(home, "Downloads", "telegram_bot")
	}

	if len(c.Endpoints.Cobalt) == 0 {
		c.Endpoints.Cobalt = defaultCobaltInstances
	}
	if len(c.Endpoints.Invidious) == 0 {
		c.Endpoints.Invidious = defaultInvidiousInstances
	}
	if len(c.Endpoints.TikTok) == 0 {
		c.Endpoints.TikTok = defaultTikTokAPIs
	}
	if len(c.Endpoints.Instagram) == 0 {
		c.Endpoints.Instagram = defaultInstagramAPIs
	}
	if len(c.Endpoints.Pinterest) == 0 {
		c.Endpoints.Pinterest = defaultPinterestAPIs
	}
	if len(c.Endpoints.Facebook) == 0 {
		c.Endpoints.Facebook = defaultFacebookAPIs
	}
	if len(c.Endpoints.Universal) == 0 {
		c.Endpoints.Universal = defaultUniversalAPIs
	}
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Download.MinFileSize <= 0 {
		return fmt.Errorf("MIN_FILE_SIZE must be positive")
	}
	if c.Download.MaxRedirects <= 0 {
		return fmt.Errorf("MAX_REDIRECTS must be positive")
	}
	return nil
}

// MaskProxy hides credentials in a proxy URL for logging.
func MaskProxy(proxy string) string {
	if proxy == "" {
		return ""
	}
	at := strings.LastIndex(proxy, "@")
	if at < 0 {
		return proxy
	}
	scheme := "proxy"
	if i := strings.Index(proxy, "://"); i >= 0 && i < at {
		scheme = proxy[:i]
	}
	return scheme + "://***@" + proxy[at+1:]
}
