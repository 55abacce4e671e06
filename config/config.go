// Package config loads Heimdall settings from TOML or YAML files, the
// environment and command line flags, in increasing order of precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Settings is the full server configuration.
type Settings struct {
	Server    ServerSettings    `toml:"server" yaml:"server"`
	Data      DataSettings      `toml:"data" yaml:"data"`
	Log       LogSettings       `toml:"log" yaml:"log"`
	TMDB      TMDBSettings      `toml:"tmdb" yaml:"tmdb"`
	Lyrics    LyricsSettings    `toml:"lyrics" yaml:"lyrics"`
	Extractor ExtractorSettings `toml:"extractor" yaml:"extractor"`
	Auth      AuthSettings      `toml:"auth" yaml:"auth"`
}

// ServerSettings contains HTTP server settings.
type ServerSettings struct {
	Addr           string   `toml:"addr" yaml:"addr"`
	FrontendDir    string   `toml:"frontend_dir" yaml:"frontend_dir"`
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
}

// DataSettings controls where JSON state files live.
type DataSettings struct {
	Dir           string `toml:"dir" yaml:"dir"`
	Portable      bool   `toml:"portable" yaml:"portable"`
	MigrateLegacy bool   `toml:"migrate_legacy" yaml:"migrate_legacy"`
}

// LogSettings controls console and rotating file output.
type LogSettings struct {
	Level      string `toml:"level" yaml:"level"`
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Console    bool   `toml:"console" yaml:"console"`
}

// TMDBSettings configures the metadata provider.
type TMDBSettings struct {
	APIKey   string   `toml:"api_key" yaml:"api_key"`
	BaseURL  string   `toml:"base_url" yaml:"base_url"`
	Language string   `toml:"language" yaml:"language"`
	Timeout  Duration `toml:"timeout" yaml:"timeout"`
	Attempts uint     `toml:"attempts" yaml:"attempts"`
}

// LyricsSettings ranks the lyrics providers; the first one is tried first.
type LyricsSettings struct {
	Providers []LyricsProvider `toml:"providers" yaml:"providers"`
}

// LyricsProvider selects one lyrics source.
type LyricsProvider struct {
	Name    string   `toml:"name" yaml:"name"`
	BaseURL string   `toml:"base_url" yaml:"base_url"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// ExtractorSettings configures yt-dlp.
type ExtractorSettings struct {
	Binary        string   `toml:"binary" yaml:"binary"`
	SearchLimit   int      `toml:"search_limit" yaml:"search_limit"`
	SearchPool    int      `toml:"search_pool" yaml:"search_pool"`
	SearchTimeout Duration `toml:"search_timeout" yaml:"search_timeout"`
	StreamTimeout Duration `toml:"stream_timeout" yaml:"stream_timeout"`
}

// AuthSettings configures sessions and the login limiter.
type AuthSettings struct {
	SessionTTL         Duration `toml:"session_ttl" yaml:"session_ttl"`
	CookieName         string   `toml:"cookie_name" yaml:"cookie_name"`
	SecureCookie       bool     `toml:"secure_cookie" yaml:"secure_cookie"`
	LoginRatePerMinute int      `toml:"login_rate_per_minute" yaml:"login_rate_per_minute"`
	LoginBurst         int      `toml:"login_burst" yaml:"login_burst"`
}

// Duration is a time.Duration written as "5s" or "720h" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the settings of the embedded example config.
func Default() Settings {
	var s Settings
	if err := toml.Unmarshal(exampleConf, &s); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return s
}

// Load reads path over the defaults. The format follows the extension:
// .yaml/.yml is YAML, anything else TOML. An empty path returns defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}

	// A provider list in the file replaces the default ranking instead of
	// being merged into it element by element.
	defaults := s.Lyrics.Providers
	s.Lyrics.Providers = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = toml.Unmarshal(data, &s)
	}
	if err != nil {
		return s, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if s.Lyrics.Providers == nil {
		s.Lyrics.Providers = defaults
	}
	return s, nil
}

// FindConfigFile returns the first existing config file among the usual
// locations, or "" when there is none.
func FindConfigFile(dataDir string) string {
	var dirs []string
	if dataDir != "" {
		dirs = append(dirs, dataDir)
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		dirs = append(dirs, filepath.Join(configHome, "heimdall"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "heimdall"))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// CreateConfigFile writes the example config to path.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
