package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvTMDBKey     = "TMDB_API_KEY"
	EnvDataDir     = "HEIMDALL_DATA_DIR"
	EnvPortable    = "HEIMDALL_PORTABLE"
	EnvAddr        = "HEIMDALL_ADDR"
	EnvFrontendDir = "HEIMDALL_FRONTEND_DIR"
	EnvLogLevel    = "HEIMDALL_LOG_LEVEL"
)

// LegacyFiles are the state files carried over from an older data dir.
var LegacyFiles = []string{"users.json", "profiles.json", "watchlist.json"}

// ApplyEnv overrides s with any of the recognised variables that are set.
func ApplyEnv(s *Settings, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvTMDBKey)); v != "" {
		s.TMDB.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvDataDir)); v != "" {
		s.Data.Dir = v
	}
	if v := getenv(EnvPortable); v != "" {
		s.Data.Portable = truthy(v)
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		s.Server.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvFrontendDir)); v != "" {
		s.Server.FrontendDir = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		s.Log.Level = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Paths carries the host facts ChooseDataDir depends on.
type Paths struct {
	ExeDir  string
	AppData string
	Home    string
}

// HostPaths inspects the running process.
func HostPaths() Paths {
	p := Paths{AppData: os.Getenv("APPDATA")}
	if exe, err := os.Executable(); err == nil {
		p.ExeDir = filepath.Dir(exe)
	}
	if home, err := os.UserHomeDir(); err == nil {
		p.Home = home
	}
	return p
}

// LegacyDir is the per-user data dir used by older releases.
func (p Paths) LegacyDir() string {
	base := p.AppData
	if base == "" {
		base = p.Home
	}
	return filepath.Join(base, "Heimdall")
}

// ChooseDataDir picks the data dir: an explicit setting wins, then the
// executable's directory in portable mode, then the per-user directory.
func ChooseDataDir(s Settings, p Paths) string {
	if s.Data.Dir != "" {
		return s.Data.Dir
	}
	if s.Data.Portable && p.ExeDir != "" {
		return p.ExeDir
	}
	return p.LegacyDir()
}

// MigrateLegacyData copies LegacyFiles from legacyDir into targetDir when the
// target lacks them. Existing files in targetDir are never overwritten.
func MigrateLegacyData(fs afero.Fs, legacyDir, targetDir string, logger zerolog.Logger) ([]string, error) {
	if filepath.Clean(legacyDir) == filepath.Clean(targetDir) {
		return nil, nil
	}
	if ok, _ := afero.DirExists(fs, legacyDir); !ok {
		return nil, nil
	}
	if err := fs.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var migrated []string
	for _, name := range LegacyFiles {
		src := filepath.Join(legacyDir, name)
		dst := filepath.Join(targetDir, name)
		if ok, _ := afero.Exists(fs, src); !ok {
			continue
		}
		if ok, _ := afero.Exists(fs, dst); ok {
			continue
		}
		if err := copyFile(fs, src, dst); err != nil {
			logger.Warn().Err(err).Str("src", src).Str("dst", dst).Msg("failed to migrate legacy file")
			continue
		}
		logger.Info().Str("src", src).Str("dst", dst).Msg("migrated legacy file")
		migrated = append(migrated, name)
	}
	return migrated, nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = fs.Remove(dst)
		return err
	}
	return out.Close()
}
