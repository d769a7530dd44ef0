package config

// Config is the top-level configuration structure mapping to waypoint.toml.
type Config struct {
	Engine      EngineConfig      `toml:"engine"`
	Definitions DefinitionsConfig `toml:"definitions"`
	Output      OutputConfig      `toml:"output"`
}

// EngineConfig maps to the [engine] section in waypoint.toml.
type EngineConfig struct {
	// MaxIterations bounds auto transitions per stabilization; 0 is unbounded.
	MaxIterations int    `toml:"max_iterations"`
	IDPrefix      string `toml:"id_prefix"`
}

// DefinitionsConfig maps to the [definitions] section in waypoint.toml.
type DefinitionsConfig struct {
	// Paths are doublestar glob patterns, relative to the directory holding
	// waypoint.toml.
	Paths []string `toml:"paths"`
}

// OutputConfig maps to the [output] section in waypoint.toml.
type OutputConfig struct {
	Format string `toml:"format"`
}

// Output formats accepted by [output] format.
const (
	FormatText = "text"
	FormatJSON = "json"
)
