package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from an optional config
// file and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	FetchTimeoutSeconds int           `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	UserAgent           string        `mapstructure:"user_agent"`

	SourceLanguage string  `mapstructure:"source_language"`
	TargetLanguage string  `mapstructure:"target_language"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	APIKey         string  `mapstructure:"deepseek_api_key"`
	APIBaseURL     string  `mapstructure:"deepseek_base_url"`
	Model          string  `mapstructure:"deepseek_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`

	RenderEnabled        bool          `mapstructure:"render_enabled"`
	RenderDomains        []string      `mapstructure:"render_domains"`
	RenderMinContent     int           `mapstructure:"render_min_content_chars"`
	RenderTimeoutSeconds int           `mapstructure:"render_timeout_seconds"`
	RenderTimeout        time.Duration `mapstructure:"-"`
	RenderSettleMs       int           `mapstructure:"render_settle_ms"`
	RenderSettle         time.Duration `mapstructure:"-"`
	RenderContentHosts   []string      `mapstructure:"render_content_hosts"`
	ChromePath           string        `mapstructure:"chrome_path"`

	ImageFormats          []string `mapstructure:"image_allowed_formats"`
	ImageMaxSizeMB        int      `mapstructure:"image_max_size_mb"`
	ImageConcurrency      int      `mapstructure:"image_concurrency"`
	ImagePrefix           string   `mapstructure:"image_filename_prefix"`
	ImageNoiseMarkers     []string `mapstructure:"image_noise_markers"`
	ImageContentPathHints []string `mapstructure:"image_content_path_hints"`

	VaultPath         string `mapstructure:"vault_path"`
	AttachmentsFolder string `mapstructure:"attachments_folder"`
	ArticlesFolder    string `mapstructure:"articles_folder"`

	StorageType           string        `mapstructure:"storage_type"`
	BBoltPath             string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds     int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL            time.Duration `mapstructure:"-"`
	StorageCleanup        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and an optional config
// file (YAML). Environment variables win over file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("app_name", "transknowledge")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("fetch_timeout_seconds", 30)
	v.SetDefault("user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	v.SetDefault("source_language", "English")
	v.SetDefault("target_language", "Chinese")
	v.SetDefault("chunk_size", 3000)
	// Keys without a meaningful default still need registering, or
	// AutomaticEnv never surfaces their environment values to Unmarshal.
	v.SetDefault("deepseek_api_key", "")
	v.SetDefault("deepseek_base_url", "https://api.deepseek.com")
	v.SetDefault("deepseek_model", "deepseek-chat")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.3)

	v.SetDefault("render_enabled", true)
	v.SetDefault("render_domains", []string{})
	v.SetDefault("render_min_content_chars", 500)
	v.SetDefault("render_timeout_seconds", 60)
	v.SetDefault("render_settle_ms", 2000)
	v.SetDefault("render_content_hosts", []string{"codepen.io", "codesandbox.io", "stackblitz.com", "v0.dev"})
	v.SetDefault("chrome_path", "")

	v.SetDefault("image_allowed_formats", []string{"jpg", "jpeg", "png", "gif", "webp", "svg"})
	v.SetDefault("image_max_size_mb", 10)
	v.SetDefault("image_concurrency", 5)
	v.SetDefault("image_filename_prefix", "img")
	v.SetDefault("image_noise_markers", []string{"logo", "icon", "avatar", "gravatar", "tracking", "ad.", "advertisement", ".gif?"})
	v.SetDefault("image_content_path_hints", []string{"/content/", "/article/", "/post/", "/image/"})

	v.SetDefault("vault_path", "")
	v.SetDefault("attachments_folder", "Attachments")
	v.SetDefault("articles_folder", "Articles/Translations")

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/notes.db")
	v.SetDefault("storage_ttl_seconds", int64((90*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive)")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk_size (must be positive)")
	}
	if cfg.RenderMinContent < 0 {
		return nil, fmt.Errorf("invalid render_min_content_chars (must not be negative)")
	}
	if cfg.RenderTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid render_timeout_seconds (must be positive)")
	}
	if cfg.ImageConcurrency <= 0 {
		return nil, fmt.Errorf("invalid image_concurrency (must be positive)")
	}
	if cfg.ImageMaxSizeMB <= 0 {
		return nil, fmt.Errorf("invalid image_max_size_mb (must be positive)")
	}
	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive)")
	}

	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	cfg.RenderTimeout = time.Duration(cfg.RenderTimeoutSeconds) * time.Second
	cfg.RenderSettle = time.Duration(cfg.RenderSettleMs) * time.Millisecond
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanup = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}
