// Package config loads palette and paletted settings from defaults, an
// optional YAML file and PALETTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/palette/internal/entitlement"
	"github.com/HerbHall/palette/internal/remote"
	"github.com/HerbHall/palette/internal/theme"
)

// EnvPrefix is prepended to every environment override,
// e.g. PALETTE_REMOTE_BASE_URL.
const EnvPrefix = "PALETTE"

// Config is the full settings tree.
type Config struct {
	Logging     Logging            `mapstructure:"logging"`
	Cache       Cache              `mapstructure:"cache"`
	Remote      remote.Config      `mapstructure:"remote"`
	Entitlement entitlement.Config `mapstructure:"entitlement"`
	Theme       Theme              `mapstructure:"theme"`
	Auth        Auth               `mapstructure:"auth"`
	Server      Server             `mapstructure:"server"`
	Database    Database           `mapstructure:"database"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Cache struct {
	Path string `mapstructure:"path"`
}

type Theme struct {
	DefaultColorMode string `mapstructure:"default_color_mode"`
}

// ColorMode returns the configured default color mode.
func (t Theme) ColorMode() theme.ColorMode {
	mode, ok := theme.ParseColorMode(t.DefaultColorMode)
	if !ok {
		return theme.Dark
	}
	return mode
}

// Auth covers both sides: Token is the CLI's bearer credential, the rest
// configures paletted's token issuance.
type Auth struct {
	Token          string        `mapstructure:"token"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type Server struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address as host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Database struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("cache.path", "./data/palette-cache.db")

	rc := remote.DefaultConfig()
	v.SetDefault("remote.base_url", rc.BaseURL)
	v.SetDefault("remote.preferences_path", rc.PreferencesPath)
	v.SetDefault("remote.entitlement_path", rc.EntitlementPath)
	v.SetDefault("remote.watch_path", rc.WatchPath)
	v.SetDefault("remote.timeout", rc.Timeout)

	ec := entitlement.DefaultConfig()
	v.SetDefault("entitlement.retries", ec.Retries)
	v.SetDefault("entitlement.retry_interval", ec.RetryInterval)

	v.SetDefault("theme.default_color_mode", string(theme.Dark))

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", 24*time.Hour)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("database.path", "./data/palette.db")
}

// Load reads configuration. With an empty configPath it looks for
// palette.yaml in ., ./configs and /etc/palette; a missing file is fine.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("palette")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/palette")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would fail later at use.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := theme.ParseColorMode(c.Theme.DefaultColorMode); !ok {
		errs = append(errs, fmt.Errorf("theme.default_color_mode: %q is not light or dark", c.Theme.DefaultColorMode))
	}
	if c.Entitlement.Retries < 0 {
		errs = append(errs, fmt.Errorf("entitlement.retries: must not be negative"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}
