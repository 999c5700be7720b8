// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "ANISTREAM_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory, honoring ANISTREAM_CONFIG_PATH.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(".", "config")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the resolve journal file.
func History() string {
	return filepath.Join(Cache(), "history.json")
}

// Temp resolves a volatile directory for transient artifacts such as player sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
