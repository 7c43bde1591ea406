package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Storage   StorageConfig    `yaml:"storage"`
	Limits    LimitsConfig     `yaml:"limits"`
	YtDLP     YtDLPConfig      `yaml:"ytdlp"`
	Platforms []PlatformConfig `yaml:"platforms"`
	Redis     RedisConfig      `yaml:"redis"`
	Cleanup   CleanupConfig    `yaml:"cleanup"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Mode           string        `yaml:"mode"` // debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
	BufferSize     int           `yaml:"buffer_size"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	BasePath       string `yaml:"base_path"`
	MinFreeMB      int    `yaml:"min_free_mb"`
	MaxVideoSizeMB int    `yaml:"max_video_size_mb"`
}

// LimitsConfig 准入限制配置
type LimitsConfig struct {
	RateLimit       int           `yaml:"rate_limit"`
	RateWindow      time.Duration `yaml:"rate_window"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	GlobalRPS       float64       `yaml:"global_rps"`
	GlobalBurst     int           `yaml:"global_burst"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// YtDLPConfig yt-dlp 配置
type YtDLPConfig struct {
	Format          string        `yaml:"format"`
	UserAgent       string        `yaml:"user_agent"`
	Retries         int           `yaml:"retries"`
	FragmentRetries int           `yaml:"fragment_retries"`
	CookieFile      string        `yaml:"cookie_file"`
	Timeout         time.Duration `yaml:"timeout"` // 0 表示不限制
	AutoInstall     bool          `yaml:"auto_install"`
}

// PlatformConfig 平台配置, 按列表顺序匹配
type PlatformConfig struct {
	Name           string   `yaml:"name"`
	Enabled        bool     `yaml:"enabled"`
	Domains        []string `yaml:"domains"`
	OutputTemplate string   `yaml:"output_template"`
	UseCookies     bool     `yaml:"use_cookies"`
}

// RedisConfig Redis 配置, Addr 为空时禁用事件发布
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Channel  string `yaml:"channel"`
}

// CleanupConfig 清理配置, Enabled 未设置时默认开启
type CleanupConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// DefaultUserAgent 默认 User-Agent
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultPlatforms 默认平台列表
func DefaultPlatforms() []PlatformConfig {
	return []PlatformConfig{
		{
			Name:           "youtube",
			Enabled:        true,
			Domains:        []string{"youtube.com", "youtu.be"},
			OutputTemplate: "%(title)s.%(ext)s",
			UseCookies:     true,
		},
		{
			Name:           "instagram",
			Enabled:        true,
			Domains:        []string{"instagram.com"},
			OutputTemplate: "%(title)s.%(ext)s",
			UseCookies:     true,
		},
		{
			Name:           "facebook",
			Enabled:        true,
			Domains:        []string{"facebook.com", "fb.watch"},
			OutputTemplate: "%(id)s.%(ext)s",
			UseCookies:     true,
		},
		{
			Name:           "twitter",
			Enabled:        true,
			Domains:        []string{"twitter.com", "x.com"},
			OutputTemplate: "%(title)s.%(ext)s",
		},
	}
}

// LoadConfig 加载配置文件, 文件不存在时只使用默认值
func LoadConfig(configPath string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	var cfg Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 从环境变量覆盖配置
func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.Server.Mode = mode
	}
	if dir := os.Getenv("DOWNLOAD_DIR"); dir != "" {
		cfg.Storage.BasePath = dir
	}

	// Redis
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}
}

// applyDefaults 设置默认值
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.BufferSize == 0 {
		cfg.Server.BufferSize = 32768 // 32KB
	}

	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "downloads"
	}
	if cfg.Storage.MinFreeMB == 0 {
		cfg.Storage.MinFreeMB = 100
	}
	if cfg.Storage.MaxVideoSizeMB == 0 {
		cfg.Storage.MaxVideoSizeMB = 50
	}

	if cfg.Limits.RateLimit == 0 {
		cfg.Limits.RateLimit = 5
	}
	if cfg.Limits.RateWindow == 0 {
		cfg.Limits.RateWindow = time.Minute
	}
	if cfg.Limits.MaxConcurrent == 0 {
		cfg.Limits.MaxConcurrent = 2
	}
	if cfg.Limits.GlobalRPS == 0 {
		cfg.Limits.GlobalRPS = 50
	}
	if cfg.Limits.GlobalBurst == 0 {
		cfg.Limits.GlobalBurst = 100
	}
	if cfg.Limits.JanitorInterval == 0 {
		cfg.Limits.JanitorInterval = 2 * time.Minute
	}

	if cfg.YtDLP.Format == "" {
		cfg.YtDLP.Format = "best"
	}
	if cfg.YtDLP.UserAgent == "" {
		cfg.YtDLP.UserAgent = DefaultUserAgent
	}
	if cfg.YtDLP.Retries == 0 {
		cfg.YtDLP.Retries = 10
	}
	if cfg.YtDLP.FragmentRetries == 0 {
		cfg.YtDLP.FragmentRetries = 10
	}
	if cfg.YtDLP.CookieFile == "" {
		cfg.YtDLP.CookieFile = "cookies.txt"
	}

	if len(cfg.Platforms) == 0 {
		cfg.Platforms = DefaultPlatforms()
	}
	for i := range cfg.Platforms {
		if cfg.Platforms[i].OutputTemplate == "" {
			cfg.Platforms[i].OutputTemplate = "%(title)s.%(ext)s"
		}
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "downloads:events"
	}

	if cfg.Cleanup.Enabled == nil {
		enabled := true
		cfg.Cleanup.Enabled = &enabled
	}
	if cfg.Cleanup.Interval == 0 {
		cfg.Cleanup.Interval = 10 * time.Minute
	}
	if cfg.Cleanup.MaxAge == 0 {
		cfg.Cleanup.MaxAge = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Limits.RateLimit < 0 || c.Limits.MaxConcurrent < 0 {
		return errors.New("limits must not be negative")
	}
	seen := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Name == "" {
			return errors.New("platform name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate platform: %s", p.Name)
		}
		seen[p.Name] = true
		if p.Enabled && len(p.Domains) == 0 {
			return fmt.Errorf("platform %s has no domains", p.Name)
		}
	}
	return nil
}

// PlatformDir 平台下载目录
func (c *StorageConfig) PlatformDir(platform string) string {
	return filepath.Join(c.BasePath, platform)
}

// MaxVideoSizeBytes 最大文件大小(字节)
func (c *StorageConfig) MaxVideoSizeBytes() int64 {
	return int64(c.MaxVideoSizeMB) * 1024 * 1024
}

// IsEnabled 是否启用清理
func (c *CleanupConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
