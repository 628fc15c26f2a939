package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved jobdeck configuration.
type Config struct {
	APIURL     string
	Token      string
	CacheTTL   time.Duration
	LogFile    string
	LogBackend string
	LogLevel   string
}

const (
	defaultConfigPath = "~/.config/jobdeck/config.toml"
	defaultLogFile    = "~/.local/state/jobdeck/jobdeck.log"
	defaultAPIURL     = "127.0.0.1:8080"
	defaultCacheTTL   = 5 * time.Minute
	defaultLogBackend = "zap"
	defaultLogLevel   = "info"
)

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		APIURL:     defaultAPIURL,
		CacheTTL:   defaultCacheTTL,
		LogFile:    mustExpand(defaultLogFile),
		LogBackend: defaultLogBackend,
		LogLevel:   defaultLogLevel,
	}
}

// Load reads the TOML config at path, falling back to defaults when the file
// is missing or a key is empty.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL     string `toml:"api_url"`
		Token      string `toml:"token"`
		CacheTTL   string `toml:"cache_ttl"`
		LogFile    string `toml:"log_file"`
		LogBackend string `toml:"log_backend"`
		LogLevel   string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg.Apply(Overrides{
		APIURL:     raw.APIURL,
		Token:      raw.Token,
		CacheTTL:   raw.CacheTTL,
		LogFile:    raw.LogFile,
		LogBackend: raw.LogBackend,
		LogLevel:   raw.LogLevel,
	})
}

// Overrides carries string values from a higher-precedence layer such as the
// environment or command-line flags. Blank fields are ignored.
type Overrides struct {
	APIURL     string
	Token      string
	CacheTTL   string
	LogFile    string
	LogBackend string
	LogLevel   string
}

// Apply returns c with every non-blank override applied.
func (c Config) Apply(o Overrides) (Config, error) {
	if v := strings.TrimSpace(o.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(o.Token); v != "" {
		c.Token = v
	}
	if v := strings.TrimSpace(o.CacheTTL); v != "" {
		ttl, err := ParseTTL(v)
		if err != nil {
			return Config{}, err
		}
		c.CacheTTL = ttl
	}
	if v := strings.TrimSpace(o.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(o.LogBackend); v != "" {
		c.LogBackend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return c, nil
}

// ParseTTL accepts a Go duration ("5m", "90s") or a whole number of seconds.
func ParseTTL(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	var ttl time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		ttl = time.Duration(secs) * time.Second
	} else {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("parse cache_ttl %q: %w", value, err)
		}
		ttl = d
	}
	if ttl < time.Second {
		return 0, fmt.Errorf("cache_ttl %q must be at least 1s", value)
	}
	return ttl, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
