package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultKeyPrefix      = "scribesync"
	DefaultRewriteTimeout = 30
	DefaultMaxRetries     = 3
	DefaultRetryBaseMs    = 500
	DefaultQwenBaseURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultQwenModel      = "qwen-plus"
	DefaultDeepSeekURL    = "https://api.deepseek.com/v1"
	DefaultDeepSeekModel  = "deepseek-chat"
)

type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
	Rewrite RewriteConfig `toml:"rewrite"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
	AdminToken   string `toml:"admin_token"`
}

// StorageConfig selects the key-value backend. When Redis is disabled the
// service keeps everything in process memory and loses it on restart.
type StorageConfig struct {
	Redis RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type RewriteConfig struct {
	TimeoutSeconds int          `toml:"timeout_seconds"`
	MaxRetries     int          `toml:"max_retries"`
	RetryBaseMs    int          `toml:"retry_base_ms"`
	Qwen           VendorConfig `toml:"qwen"`
	DeepSeek       VendorConfig `toml:"deepseek"`
}

type VendorConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

func (c RewriteConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultRewriteTimeout
	}
	return time.Duration(seconds) * time.Second
}

func (c RewriteConfig) RetryBase() time.Duration {
	ms := c.RetryBaseMs
	if ms <= 0 {
		ms = DefaultRetryBaseMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (c AuthConfig) ExpiresIn() time.Duration {
	d, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultJWTExpiresIn)
	}
	return d
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Storage: StorageConfig{
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultKeyPrefix,
			},
		},
		Rewrite: RewriteConfig{
			TimeoutSeconds: DefaultRewriteTimeout,
			MaxRetries:     DefaultMaxRetries,
			RetryBaseMs:    DefaultRetryBaseMs,
			Qwen: VendorConfig{
				BaseURL: DefaultQwenBaseURL,
				Model:   DefaultQwenModel,
			},
			DeepSeek: VendorConfig{
				BaseURL: DefaultDeepSeekURL,
				Model:   DefaultDeepSeekModel,
			},
		},
	}

	// Only the default path may be absent; a path the caller named must exist.
	explicit := path != ""
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
