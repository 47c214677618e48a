package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no app name is given.
const DefaultAppName = "statusdesk"

// Paths holds the per-user locations of config, data and logs.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	LogDir     string
}

// Options selects the app name and dev-mode suffix.
type Options struct {
	AppName string
	DevMode bool
}

// baseEnv names the env vars that override config and data bases per OS.
type baseEnv struct {
	config string
	data   string
}

// overrides lists the OSes whose bases honor env vars; others keep the user dirs.
var overrides = map[string]baseEnv{
	"linux":   {config: "XDG_CONFIG_HOME", data: "XDG_DATA_HOME"},
	"windows": {config: "APPDATA", data: "LOCALAPPDATA"},
}

// DefaultPaths returns default paths.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the running OS and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	switch runtime.GOOS {
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{}
	for _, names := range overrides {
		env[names.config] = os.Getenv(names.config)
		env[names.data] = os.Getenv(names.data)
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves paths for goos from explicit env values and base dirs.
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, errors.New("empty app name")
	}

	configBase, dataBase := userConfigDir, userDataDir
	if names, ok := overrides[goos]; ok {
		if v := strings.TrimSpace(env[names.config]); v != "" {
			configBase = v
		}
		if v := strings.TrimSpace(env[names.data]); v != "" {
			dataBase = v
		}
	}

	appDataDir := filepath.Join(dataBase, appName)
	return Paths{
		ConfigPath: filepath.Join(configBase, appName, "config.toml"),
		DataDir:    appDataDir,
		DBPath:     filepath.Join(appDataDir, appName+".db"),
		LogDir:     filepath.Join(appDataDir, "log"),
	}, nil
}
