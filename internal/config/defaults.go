package config

// NewDefaults returns a Config populated with all default values.
func NewDefaults() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxIterations: 0,
		},
		Definitions: DefinitionsConfig{
			Paths: []string{"workflows/**/*.toml", "workflows/**/*.json"},
		},
		Output: OutputConfig{
			Format: FormatText,
		},
	}
}
