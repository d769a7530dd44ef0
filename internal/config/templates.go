package config

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
)

//go:embed all:templates
var templateFS embed.FS

const templatesRoot = "templates"

// TemplateVars holds variables available to .tmpl files. Non-template files
// are copied as-is.
type TemplateVars struct {
	// ProjectName is written as a comment at the top of waypoint.toml.
	ProjectName string
	// WorkflowID is the id of the starter workflow document.
	WorkflowID string
	// IDPrefix becomes [engine] id_prefix.
	IDPrefix string
}

// ListTemplates returns the names of the starter projects `waypoint init`
// can render.
func ListTemplates() ([]string, error) {
	entries, err := templateFS.ReadDir(templatesRoot)
	if err != nil {
		return nil, fmt.Errorf("reading templates directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// TemplateExists reports whether a template with the given name exists in the
// embedded filesystem.
func TemplateExists(name string) bool {
	path := templatesRoot + "/" + name
	info, err := fs.Stat(templateFS, path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// RenderTemplate writes the named template's files into destDir. Files whose
// names end in ".tmpl" are executed with vars and written without the
// extension; the rest are copied byte-for-byte. Existing files are skipped
// unless force is set.
//
// Returns the paths written, in walk order.
func RenderTemplate(name string, destDir string, vars TemplateVars, force bool) ([]string, error) {
	if !TemplateExists(name) {
		return nil, fmt.Errorf("template %q not found", name)
	}
	logger := logging.New("config")

	templateDir := templatesRoot + "/" + name
	var created []string

	walkErr := fs.WalkDir(templateFS, templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking template %s: %w", path, err)
		}

		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(filepath.FromSlash(templateDir), filepath.FromSlash(path))
		if err != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, err)
		}

		destRel, isTmpl := strings.CutSuffix(relPath, ".tmpl")
		destFile := filepath.Join(destDir, destRel)

		if _, statErr := os.Stat(destFile); statErr == nil {
			if !force {
				logger.Debug("skipping existing file", "path", destFile)
				return nil
			}
			logger.Debug("overwriting existing file", "path", destFile)
		}

		if mkdirErr := os.MkdirAll(filepath.Dir(destFile), 0o755); mkdirErr != nil {
			return fmt.Errorf("creating directory for %s: %w", destFile, mkdirErr)
		}

		// embed.FS always uses forward slashes.
		embedPath := filepath.ToSlash(path)
		content, readErr := templateFS.ReadFile(embedPath)
		if readErr != nil {
			return fmt.Errorf("reading embedded file %s: %w", embedPath, readErr)
		}

		output := content
		if isTmpl {
			tmpl, parseErr := template.New(d.Name()).Parse(string(content))
			if parseErr != nil {
				return fmt.Errorf("parsing template %s: %w", embedPath, parseErr)
			}
			var buf bytes.Buffer
			if execErr := tmpl.Execute(&buf, vars); execErr != nil {
				return fmt.Errorf("executing template %s: %w", embedPath, execErr)
			}
			output = buf.Bytes()
		}

		if writeErr := os.WriteFile(destFile, output, 0o644); writeErr != nil {
			return fmt.Errorf("writing file %s: %w", destFile, writeErr)
		}

		logger.Debug("created template file", "path", destFile)
		created = append(created, destFile)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return created, nil
}
