// Package platform locates the config file and event log on the host.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultAppName = "rlab"
	devSuffix      = "-dev"
	configFileName = "config.toml"
	storeFileName  = "storage.json"
)

// Paths lists where one app instance keeps its files.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	StorePath  string
}

// Options selects the app directory. DevMode keeps dev data apart from the real log.
type Options struct {
	AppName string
	DevMode bool
}

// dirName is the per-app directory name under the config and data roots.
func (o Options) dirName() string {
	name := strings.TrimSpace(o.AppName)
	if name == "" {
		name = defaultAppName
	}
	if o.DevMode {
		name += devSuffix
	}
	return name
}

// Host describes the inputs path resolution reads from the machine.
type Host struct {
	GOOS   string
	Home   string
	Getenv func(string) string
}

// CurrentHost reads the running OS, home directory, and environment.
func CurrentHost() (Host, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Host{}, fmt.Errorf("resolve home dir: %w", err)
	}
	return Host{GOOS: runtime.GOOS, Home: home, Getenv: os.Getenv}, nil
}

// Resolve returns the paths for opts on the current host.
func Resolve(opts Options) (Paths, error) {
	host, err := CurrentHost()
	if err != nil {
		return Paths{}, err
	}
	return host.Resolve(opts)
}

// Resolve returns the paths for opts on h.
func (h Host) Resolve(opts Options) (Paths, error) {
	configRoot, dataRoot, err := h.roots()
	if err != nil {
		return Paths{}, err
	}
	name := opts.dirName()
	dataDir := filepath.Join(dataRoot, name)
	return Paths{
		ConfigPath: filepath.Join(configRoot, name, configFileName),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, name+".db"),
		StorePath:  filepath.Join(dataDir, storeFileName),
	}, nil
}

// roots picks the config and data base directories for h.GOOS.
func (h Host) roots() (string, string, error) {
	getenv := h.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	switch h.GOOS {
	case "windows":
		roaming := env("APPDATA")
		if roaming == "" {
			return "", "", errors.New("APPDATA is not set")
		}
		local := env("LOCALAPPDATA")
		if local == "" {
			local = roaming
		}
		return roaming, local, nil
	case "darwin", "ios":
		if h.Home == "" {
			return "", "", errors.New("home dir is not set")
		}
		support := filepath.Join(h.Home, "Library", "Application Support")
		return support, support, nil
	default:
		config, data := env("XDG_CONFIG_HOME"), env("XDG_DATA_HOME")
		if (config == "" || data == "") && h.Home == "" {
			return "", "", errors.New("home dir is not set")
		}
		if config == "" {
			config = filepath.Join(h.Home, ".config")
		}
		if data == "" {
			data = filepath.Join(h.Home, ".local", "share")
		}
		return config, data, nil
	}
}
