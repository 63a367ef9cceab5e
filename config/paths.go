package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "lovebug"

// GetConfigDir is where settings.toml and the default plugin scripts live:
// $LOVEBUG_CONFIG_DIR, otherwise ~/.config/lovebug on every platform.
func GetConfigDir() string {
	if dir := os.Getenv("LOVEBUG_CONFIG_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetDefaultDataDir is used until settings.toml names another directory.
func GetDefaultDataDir() string {
	if runtime.GOOS != "windows" {
		return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
	}
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base = filepath.Join(GetHomeDir(), "AppData", "Local")
	}
	return filepath.Join(base, appDirName)
}

func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// GetPluginScriptDir is searched for *.lua plugins when the user config does
// not set plugins.script_directory.
func GetPluginScriptDir() string {
	return filepath.Join(GetConfigDir(), "plugins")
}

func GetHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// ExpandPath resolves a leading ~ and $VARS, then cleans the result.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return GetHomeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		path = filepath.Join(GetHomeDir(), rest)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates path with user-only access.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates dataDir or tightens it to 0700. The
// directory holds credentials.toml and the debug log.
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return EnsureDir(dataDir)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() == 0700 {
		return nil
	}
	return os.Chmod(dataDir, 0700)
}
