// Package where resolves application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "KINEMA_CONFIG_PATH"

func mkdir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the configuration directory. XDG_CONFIG_HOME on Linux, the
// platform equivalent elsewhere, or KINEMA_CONFIG_PATH when set.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return mkdir(custom)
	}

	return mkdir(filepath.Join(lo.Must(os.UserConfigDir()), constant.Kinema))
}

// Cache is the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return mkdir(filepath.Join(base, constant.Kinema))
}

// Logs is the directory for dated log files.
func Logs() string {
	return mkdir(filepath.Join(Config(), "logs"))
}

// History is the local resume position store.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Queue is the file holding playback reports that could not be delivered.
func Queue() string {
	return filepath.Join(Config(), "report_queue.jsonl")
}

// Intros caches intro windows per item.
func Intros() string {
	return filepath.Join(Cache(), "intros.json")
}

// Temp is a volatile directory for sockets and other transient artifacts.
func Temp() string {
	return mkdir(filepath.Join(os.TempDir(), constant.Kinema))
}
