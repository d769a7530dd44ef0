package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/compiler"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/config"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// errWorkflowNotFound is returned when a workflow reference matches neither
// a file nor a definition id.
var errWorkflowNotFound = errors.New("workflow not found")

// workspace is the resolved configuration plus the handler registry that
// workflow commands share.
type workspace struct {
	resolved *config.ResolvedConfig
	meta     *toml.MetaData
	registry *compiler.Registry
}

// loadWorkspace resolves configuration from --config or by walking up from
// the working directory. A missing waypoint.toml is not an error.
func loadWorkspace() (*workspace, error) {
	rc, meta, err := config.Load(".", flagConfig, os.LookupEnv, nil)
	if err != nil {
		return nil, err
	}
	logging.New("cli").Debug("configuration resolved", "path", rc.Path, "base", rc.BaseDir())
	return &workspace{
		resolved: rc,
		meta:     meta,
		registry: compiler.NewBuiltinRegistry(),
	}, nil
}

// engine builds an engine from the [engine] section. extra options are
// applied last.
func (w *workspace) engine(logger *log.Logger, extra ...workflow.EngineOption) *workflow.Engine[compiler.Data] {
	cfg := w.resolved.Config.Engine
	opts := []workflow.EngineOption{
		workflow.WithLogger(logger),
		workflow.WithMaxIterations(cfg.MaxIterations),
	}
	if cfg.IDPrefix != "" {
		opts = append(opts, workflow.WithIDPrefix(cfg.IDPrefix))
	}
	return workflow.NewEngine[compiler.Data](append(opts, extra...)...)
}

// discover expands the configured definition patterns.
func (w *workspace) discover() ([]string, error) {
	return compiler.Discover(w.resolved.BaseDir(), w.resolved.Config.Definitions.Paths)
}

// resolve finds the workflow named by ref. A ref naming an existing file is
// compiled directly; anything else is looked up by definition id among the
// configured definition files.
func (w *workspace) resolve(ctx context.Context, ref string) (*compiler.Loaded, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		def, doc, err := compiler.CompileFile(ref, w.registry)
		if err != nil {
			return nil, err
		}
		return &compiler.Loaded{Path: ref, Document: doc, Definition: def}, nil
	}

	paths, err := w.discover()
	if err != nil {
		return nil, err
	}
	loaded, loadErr := compiler.LoadAll(ctx, paths, w.registry)
	if l, ok := compiler.Find(loaded, ref); ok {
		if loadErr != nil {
			logging.New("cli").Warn("some definition files failed to load", "error", loadErr)
		}
		return l, nil
	}
	notFound := fmt.Errorf("%w: %q (searched %d file(s) from %s)", errWorkflowNotFound, ref, len(paths), w.resolved.BaseDir())
	if loadErr != nil {
		return nil, errors.Join(notFound, loadErr)
	}
	return nil, notFound
}

// wantJSON reports whether output should be JSON: either flagged on the
// command or set in [output] format.
func (w *workspace) wantJSON(flag bool) bool {
	return flag || w.resolved.Config.Output.Format == config.FormatJSON
}

// parseContextOverrides decodes --context, accepting a JSON object or
// "@path" to read the object from a file.
func parseContextOverrides(raw string) (compiler.Data, error) {
	if raw == "" {
		return nil, nil
	}
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading context file: %w", err)
		}
		data = b
	}
	var out compiler.Data
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing --context: expected a JSON object: %w", err)
	}
	return out, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// completeWorkflowIDs offers the definition ids found by the configured
// patterns for shell completion of a <workflow> argument.
func completeWorkflowIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ws, err := loadWorkspace()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	paths, err := ws.discover()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	loaded, _ := compiler.LoadAll(ctx, paths, ws.registry)
	ids := make([]string, 0, len(loaded))
	for _, l := range loaded {
		entry := l.Definition.ID
		if l.Document.Description != "" {
			entry += "\t" + l.Document.Description
		}
		ids = append(ids, entry)
	}
	return ids, cobra.ShellCompDirectiveDefault
}
