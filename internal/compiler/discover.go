package compiler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var (
	// ErrInvalidPattern is returned by Discover for a malformed glob.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrDuplicateID is returned when more than one document declares the
	// same workflow id.
	ErrDuplicateID = errors.New("duplicate workflow id")
)

// DuplicateIDError names a workflow id and every file declaring it.
type DuplicateIDError struct {
	ID    string
	Paths []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("workflow id %q is declared by %d files: %s", e.ID, len(e.Paths), strings.Join(e.Paths, ", "))
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// Loaded is one successfully compiled workflow document.
type Loaded struct {
	Path       string
	Document   *Document
	Definition *workflow.Definition[Data]
}

// Discover expands doublestar patterns (e.g. "workflows/**/*.toml") relative
// to root and returns the matching files, sorted and without duplicates.
// Absolute patterns are used as-is.
func Discover(root string, patterns []string) ([]string, error) {
	logger := logging.New("compiler")
	seen := make(map[string]struct{})
	var files []string
	for _, p := range patterns {
		full := p
		if !filepath.IsAbs(p) {
			full = filepath.Join(root, p)
		}
		if !doublestar.ValidatePathPattern(full) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
		matches, err := doublestar.FilepathGlob(full, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", p, err)
		}
		logger.Debug("pattern expanded", "pattern", p, "matches", len(matches))
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadAll parses and compiles paths concurrently. Results keep the order of
// paths. A file that fails does not stop the others: every failure is
// returned joined, alongside the documents that compiled. An id declared by
// several files is ambiguous, so none of those files is returned and a
// *DuplicateIDError is joined instead. Only context cancellation aborts the
// whole load.
func LoadAll(ctx context.Context, paths []string, reg *Registry) ([]*Loaded, error) {
	logger := logging.New("compiler")
	results := make([]*Loaded, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			def, doc, err := CompileFile(path, reg)
			if err != nil {
				failures[i] = err
				logger.Debug("workflow rejected", "path", path, "error", err)
				return nil
			}
			results[i] = &Loaded{Path: path, Document: doc, Definition: def}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	compiled := make([]*Loaded, 0, len(paths))
	for _, l := range results {
		if l != nil {
			compiled = append(compiled, l)
		}
	}

	dups := DuplicateIDs(compiled)
	if len(dups) == 0 {
		return compiled, errors.Join(failures...)
	}
	ambiguous := make(map[string]struct{}, len(dups))
	for _, d := range dups {
		ambiguous[d.ID] = struct{}{}
		failures = append(failures, d)
		logger.Debug("duplicate workflow id", "id", d.ID, "paths", d.Paths)
	}
	loaded := compiled[:0]
	for _, l := range compiled {
		if _, skip := ambiguous[l.Definition.ID]; !skip {
			loaded = append(loaded, l)
		}
	}
	return loaded, errors.Join(failures...)
}

// DuplicateIDs reports every definition id shared by more than one entry of
// loaded, in order of first appearance.
func DuplicateIDs(loaded []*Loaded) []*DuplicateIDError {
	byID := make(map[string]*DuplicateIDError)
	var order []string
	for _, l := range loaded {
		id := l.Definition.ID
		d, ok := byID[id]
		if !ok {
			d = &DuplicateIDError{ID: id}
			byID[id] = d
			order = append(order, id)
		}
		d.Paths = append(d.Paths, l.Path)
	}
	var dups []*DuplicateIDError
	for _, id := range order {
		if d := byID[id]; len(d.Paths) > 1 {
			dups = append(dups, d)
		}
	}
	return dups
}

// Find returns the loaded workflow with the given definition id.
func Find(loaded []*Loaded, id string) (*Loaded, bool) {
	for _, l := range loaded {
		if l.Definition.ID == id {
			return l, true
		}
	}
	return nil, false
}
