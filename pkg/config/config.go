// Package config loads the bot's settings from defaults, an optional YAML
// file and WIKIGUIDE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/small-frappuccino/wikiguide/pkg/errutil"
	"github.com/small-frappuccino/wikiguide/pkg/util"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "WIKIGUIDE"
	TokenEnv  = EnvPrefix + "_DISCORD_TOKEN"

	BackendSQLite = "sqlite"
	BackendYAML   = "yaml"
)

var ErrMissingToken = errors.New("discord token is not set (" + TokenEnv + ")")

type Config struct {
	DiscordToken string           `mapstructure:"discord_token"`
	Theme        string           `mapstructure:"theme"`
	Content      ContentConfig    `mapstructure:"content"`
	Cache        CacheConfig      `mapstructure:"cache"`
	Redis        RedisConfig      `mapstructure:"redis"`
	Pagination   PaginationConfig `mapstructure:"pagination"`
	Registry     RegistryConfig   `mapstructure:"registry"`
	Log          LogConfig        `mapstructure:"log"`
	Control      ControlConfig    `mapstructure:"control"`
	Gateway      GatewayConfig    `mapstructure:"gateway"`
}

type ContentConfig struct {
	Language  string `mapstructure:"language" validate:"required"`
	UserAgent string `mapstructure:"user_agent" validate:"required"`
	// Endpoint overrides the API URL derived from Language.
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// LookupTimeout bounds one query end to end, Redis and retries included.
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" validate:"gt=0"`
}

type CacheConfig struct {
	Capacity int `mapstructure:"capacity" validate:"gt=0"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url" validate:"omitempty,url"`
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type PaginationConfig struct {
	PageSize     int           `mapstructure:"page_size" validate:"gt=0,lte=4096"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout" validate:"gt=0"`
}

type RegistryConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite yaml"`
	Path    string `mapstructure:"path" validate:"required"`
}

type LogConfig struct {
	Dir       string `mapstructure:"dir"`
	Level     string `mapstructure:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB int    `mapstructure:"max_size_mb" validate:"gt=0"`
	Console   bool   `mapstructure:"console"`
}

type ControlConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type GatewayConfig struct {
	// SlowThreshold is how long a gateway handler may run before it is logged.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord_token", "")
	v.SetDefault("theme", "default")
	v.SetDefault("content.language", "en")
	v.SetDefault("content.user_agent", "WikiGuide/1.0 (Discord bot)")
	v.SetDefault("content.endpoint", "")
	v.SetDefault("content.timeout", 10*time.Second)
	v.SetDefault("content.lookup_timeout", 15*time.Second)
	v.SetDefault("cache.capacity", 128)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", time.Hour)
	v.SetDefault("pagination.page_size", 2000)
	v.SetDefault("pagination.idle_timeout", 60*time.Second)
	v.SetDefault("pagination.reply_timeout", 30*time.Second)
	v.SetDefault("registry.backend", BackendSQLite)
	v.SetDefault("registry.path", "data/registry.db")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.console", true)
	v.SetDefault("control.addr", "")
	v.SetDefault("gateway.slow_threshold", 200*time.Millisecond)
}

// Load reads configuration. An empty path searches ./wikiguide.yaml and
// $HOME/.config/wikiguide/wikiguide.yaml; a missing file is not an error
// unless path was given explicitly. The result is not validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := errutil.HandleConfigError("read", path, v.ReadInConfig); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("wikiguide")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wikiguide")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if v.GetString("discord_token") == "" {
		if token, err := util.LoadEnvWithLocalBinFallback(TokenEnv); err == nil {
			v.Set("discord_token", token)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Registry.Backend = strings.ToLower(strings.TrimSpace(cfg.Registry.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	return &cfg, nil
}

// Validate checks every field except the token.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireToken reports ErrMissingToken when no bot token was found.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.DiscordToken) == "" {
		return ErrMissingToken
	}
	return nil
}
