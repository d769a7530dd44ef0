package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates the configuration works but may not do what
	// the user expects.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "output.format"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors()) > 0
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings()) > 0
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	return vr.filter(SeverityError)
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	return vr.filter(SeverityWarning)
}

func (vr *ValidationResult) filter(sev ValidationSeverity) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Validate checks the configuration for correctness. baseDir is the
// directory relative definition patterns are expanded from; meta may be nil
// when no file was loaded.
//
// Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData, baseDir string) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateEngine(vr, &cfg.Engine)
	validateDefinitions(vr, &cfg.Definitions, baseDir)
	validateOutput(vr, &cfg.Output)
	validateUnknownKeys(vr, meta)

	return vr
}

func validateEngine(vr *ValidationResult, e *EngineConfig) {
	if e.MaxIterations < 0 {
		addError(vr, "engine.max_iterations",
			fmt.Sprintf("must not be negative, got %d", e.MaxIterations))
	}
	if strings.ContainsAny(e.IDPrefix, " \t\n") {
		addError(vr, "engine.id_prefix", "must not contain whitespace")
	}
}

// validateDefinitions checks every pattern is a valid doublestar glob and
// warns about patterns that currently match no file.
func validateDefinitions(vr *ValidationResult, d *DefinitionsConfig, baseDir string) {
	if len(d.Paths) == 0 {
		addWarning(vr, "definitions.paths", "no definition paths configured")
		return
	}
	for i, pattern := range d.Paths {
		field := fmt.Sprintf("definitions.paths[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			addError(vr, field, "must not be an empty string")
			continue
		}
		full := pattern
		if !filepath.IsAbs(pattern) {
			full = filepath.Join(baseDir, pattern)
		}
		if !doublestar.ValidatePathPattern(full) {
			addError(vr, field, fmt.Sprintf("invalid glob pattern %q", pattern))
			continue
		}
		matches, err := doublestar.FilepathGlob(full, doublestar.WithFilesOnly())
		if err != nil || len(matches) == 0 {
			addWarning(vr, field, fmt.Sprintf("pattern %q matches no files", pattern))
		}
	}
}

func validateOutput(vr *ValidationResult, o *OutputConfig) {
	switch o.Format {
	case FormatText, FormatJSON:
	default:
		addError(vr, "output.format",
			fmt.Sprintf("unrecognized format %q; must be one of: text, json", o.Format))
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}
	for _, key := range meta.Undecoded() {
		addWarning(vr, strings.Join(key, "."), "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
