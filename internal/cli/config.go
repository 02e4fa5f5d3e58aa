package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/packshelf/packshelf/pkg/buildinfo"
	"github.com/packshelf/packshelf/pkg/provider"
)

// Config is the TOML configuration file surface. All fields are optional;
// zero values fall back to the defaults below.
type Config struct {
	UserAgent          string                       `toml:"user_agent"`
	Timeout            duration                     `toml:"timeout"`
	CacheLength        duration                     `toml:"cache_length"`
	Debug              bool                         `toml:"debug"`
	InstallPrereleases bool                         `toml:"install_prereleases"`
	HTTPProxy          string                       `toml:"http_proxy"`
	HTTPSProxy         string                       `toml:"https_proxy"`
	ProxyUsername      string                       `toml:"proxy_username"`
	ProxyPassword      string                       `toml:"proxy_password"`
	QueryStringParams  map[string]map[string]string `toml:"query_string_params"`
	Cache              CacheConfig                  `toml:"cache"`
}

// CacheConfig selects the HTTP cache backend.
type CacheConfig struct {
	// Backend is one of "file" (default), "redis" or "none".
	Backend string `toml:"backend"`

	// RedisURL is the redis:// connection URL for the redis backend.
	RedisURL string `toml:"redis_url"`
}

// duration wraps time.Duration so TOML files can use strings like "30s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		UserAgent:   appName + "/" + buildinfo.Version,
		Timeout:     duration(30 * time.Second),
		CacheLength: duration(4 * time.Hour),
		Cache:       CacheConfig{Backend: "file"},
	}
}

// LoadConfig reads the TOML config file at path. An empty path falls back
// to ~/.config/packshelf/config.toml; a missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings maps the config onto the provider settings contract.
func (c Config) Settings() provider.Settings {
	return provider.Settings{
		CacheLength:        time.Duration(c.CacheLength),
		Debug:              c.Debug,
		Timeout:            time.Duration(c.Timeout),
		UserAgent:          c.UserAgent,
		HTTPProxy:          c.HTTPProxy,
		HTTPSProxy:         c.HTTPSProxy,
		ProxyUsername:      c.ProxyUsername,
		ProxyPassword:      c.ProxyPassword,
		QueryStringParams:  c.QueryStringParams,
		InstallPrereleases: c.InstallPrereleases,
	}
}

// configDir returns the config directory using XDG standard (~/.config/packshelf/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
