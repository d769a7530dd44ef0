package config

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the waypoint.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// Environment variables read by Resolve.
const (
	EnvMaxIterations = "WAYPOINT_MAX_ITERATIONS"
	EnvIDPrefix      = "WAYPOINT_ID_PREFIX"
	EnvOutputFormat  = "WAYPOINT_OUTPUT_FORMAT"
	EnvDefinitions   = "WAYPOINT_DEFINITIONS"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "engine.id_prefix"
	Path    string                  // path to the config file used (empty if none)
}

// BaseDir returns the directory relative definition paths are resolved
// against: the directory holding the config file, or "." without one.
func (rc *ResolvedConfig) BaseDir() string {
	if rc.Path == "" {
		return "."
	}
	return filepath.Dir(rc.Path)
}

// CLIOverrides captures flag values that can override configuration.
// A nil field means "not overridden".
type CLIOverrides struct {
	MaxIterations *int
	IDPrefix      *string
	OutputFormat  *string
	Definitions   []string
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// File values override defaults only when set: a zero max_iterations or an
// empty string in the file keeps the default. A malformed
// WAYPOINT_MAX_ITERATIONS is logged and ignored.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}
	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	c := rc.Config

	// Layer 1: defaults.
	setInt(&c.Engine.MaxIterations, defaults.Engine.MaxIterations, "engine.max_iterations", SourceDefault, rc.Sources)
	setString(&c.Engine.IDPrefix, defaults.Engine.IDPrefix, "engine.id_prefix", SourceDefault, rc.Sources)
	setStrings(&c.Definitions.Paths, defaults.Definitions.Paths, "definitions.paths", SourceDefault, rc.Sources)
	setString(&c.Output.Format, defaults.Output.Format, "output.format", SourceDefault, rc.Sources)

	// Layer 2: file.
	if fileConfig != nil {
		if fileConfig.Engine.MaxIterations != 0 {
			setInt(&c.Engine.MaxIterations, fileConfig.Engine.MaxIterations, "engine.max_iterations", SourceFile, rc.Sources)
		}
		mergeString(&c.Engine.IDPrefix, fileConfig.Engine.IDPrefix, "engine.id_prefix", SourceFile, rc.Sources)
		if len(fileConfig.Definitions.Paths) > 0 {
			setStrings(&c.Definitions.Paths, fileConfig.Definitions.Paths, "definitions.paths", SourceFile, rc.Sources)
		}
		mergeString(&c.Output.Format, fileConfig.Output.Format, "output.format", SourceFile, rc.Sources)
	}

	// Layer 3: environment.
	resolveFromEnv(rc, envFn)

	// Layer 4: CLI.
	if overrides.MaxIterations != nil {
		setInt(&c.Engine.MaxIterations, *overrides.MaxIterations, "engine.max_iterations", SourceCLI, rc.Sources)
	}
	if overrides.IDPrefix != nil {
		setString(&c.Engine.IDPrefix, *overrides.IDPrefix, "engine.id_prefix", SourceCLI, rc.Sources)
	}
	if overrides.OutputFormat != nil {
		setString(&c.Output.Format, *overrides.OutputFormat, "output.format", SourceCLI, rc.Sources)
	}
	if len(overrides.Definitions) > 0 {
		setStrings(&c.Definitions.Paths, overrides.Definitions, "definitions.paths", SourceCLI, rc.Sources)
	}

	return rc
}

// Environment variable mapping:
//
//	WAYPOINT_MAX_ITERATIONS -> engine.max_iterations
//	WAYPOINT_ID_PREFIX      -> engine.id_prefix
//	WAYPOINT_OUTPUT_FORMAT  -> output.format
//	WAYPOINT_DEFINITIONS    -> definitions.paths (comma-separated)
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	c := rc.Config

	if val, ok := envFn(EnvMaxIterations); ok {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			logging.New("config").Warn("ignoring malformed environment variable",
				"name", EnvMaxIterations, "value", val)
		} else {
			setInt(&c.Engine.MaxIterations, n, "engine.max_iterations", SourceEnv, rc.Sources)
		}
	}
	if val, ok := envFn(EnvIDPrefix); ok {
		setString(&c.Engine.IDPrefix, val, "engine.id_prefix", SourceEnv, rc.Sources)
	}
	if val, ok := envFn(EnvOutputFormat); ok {
		setString(&c.Output.Format, val, "output.format", SourceEnv, rc.Sources)
	}
	if val, ok := envFn(EnvDefinitions); ok {
		if paths := splitList(val); len(paths) > 0 {
			setStrings(&c.Definitions.Paths, paths, "definitions.paths", SourceEnv, rc.Sources)
		}
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

func setInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// setStrings stores a copy of values.
func setStrings(target *[]string, values []string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = append([]string(nil), values...)
	sources[path] = source
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
