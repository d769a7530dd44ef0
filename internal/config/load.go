package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the Waypoint configuration file.
const ConfigFileName = "waypoint.toml"

// FindConfigFile walks up from startDir looking for waypoint.toml. It
// returns the absolute path of the first match, or "" when the filesystem
// root is reached without one.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile parses the TOML file at the given path and returns the
// configuration and TOML metadata. The metadata can be used to detect
// unknown keys via MetaData.Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return &cfg, md, nil
}

// Load locates and resolves the configuration. explicitPath, when set, must
// name an existing file; otherwise waypoint.toml is searched for upward from
// startDir and its absence is not an error. The returned metadata is nil
// when no file was read.
func Load(startDir, explicitPath string, envFn EnvFunc, overrides *CLIOverrides) (*ResolvedConfig, *toml.MetaData, error) {
	path := explicitPath
	if path == "" {
		found, err := FindConfigFile(startDir)
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		path = found
	} else if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	var (
		fileCfg *Config
		meta    *toml.MetaData
	)
	if path != "" {
		cfg, md, err := LoadFromFile(path)
		if err != nil {
			return nil, nil, err
		}
		fileCfg = cfg
		meta = &md
	}

	if envFn == nil {
		envFn = os.LookupEnv
	}
	rc := Resolve(NewDefaults(), fileCfg, envFn, overrides)
	rc.Path = path
	return rc, meta, nil
}
