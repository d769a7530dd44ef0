package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrUnsupportedFormat is returned when a document file has an extension
// other than .json or .toml.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is the serialized form of a workflow. The same shape is accepted
// as JSON and TOML:
//
//	id = "checkout"
//	initial_state = "cart"
//
//	[[states]]
//	id = "cart"
//	kind = "input"
//
//	[[states.transitions]]
//	event = "pay"
//	target = "paid"
//	guard = { id = "truthy", args = { key = "items" } }
type Document struct {
	ID           string         `json:"id" toml:"id"`
	Description  string         `json:"description,omitempty" toml:"description"`
	InitialState string         `json:"initial_state" toml:"initial_state"`
	Context      map[string]any `json:"context,omitempty" toml:"context"`
	States       []StateDoc     `json:"states" toml:"states"`
}

// StateDoc is one state of a Document. Kind accepts "input", "auto" and
// "terminal" plus the long forms "requires-input" and "auto-progress"; an
// empty kind means input.
type StateDoc struct {
	ID          string          `json:"id" toml:"id"`
	Kind        string          `json:"kind,omitempty" toml:"kind"`
	OnEnter     *HandlerRef     `json:"on_enter,omitempty" toml:"on_enter"`
	OnExit      *HandlerRef     `json:"on_exit,omitempty" toml:"on_exit"`
	Transitions []TransitionDoc `json:"transitions,omitempty" toml:"transitions"`
}

// TransitionDoc is one outgoing transition. An empty Event marks an
// automatic transition.
type TransitionDoc struct {
	ID     string      `json:"id,omitempty" toml:"id"`
	Event  string      `json:"event,omitempty" toml:"event"`
	Target string      `json:"target" toml:"target"`
	Guard  *HandlerRef `json:"guard,omitempty" toml:"guard"`
	Action *HandlerRef `json:"action,omitempty" toml:"action"`
}

// HandlerRef names a registered Handler and the arguments passed to it. In a
// document it is written either as a bare id string or as an object with
// "id" and "args".
type HandlerRef struct {
	ID   string         `json:"id" toml:"id"`
	Args map[string]any `json:"args,omitempty" toml:"args"`
}

// UnmarshalJSON accepts "id" or {"id": ..., "args": {...}}.
func (r *HandlerRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		ID   string         `json:"id"`
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("handler reference must be a string or an object: %w", err)
	}
	r.ID, r.Args = obj.ID, obj.Args
	return nil
}

// UnmarshalTOML accepts "id" or { id = ..., args = {...} }.
func (r *HandlerRef) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		r.ID = v
		return nil
	case map[string]any:
		for key, val := range v {
			switch key {
			case "id":
				id, ok := val.(string)
				if !ok {
					return fmt.Errorf("handler reference id must be a string, got %T", val)
				}
				r.ID = id
			case "args":
				args, ok := val.(map[string]any)
				if !ok {
					return fmt.Errorf("handler reference args must be a table, got %T", val)
				}
				r.Args = args
			default:
				return fmt.Errorf("handler reference: unknown key %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("handler reference must be a string or a table, got %T", data)
	}
}

// ParseJSON decodes a JSON document. Unknown fields are rejected.
func ParseJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing JSON document: %w", err)
	}
	return &doc, nil
}

// ParseTOML decodes a TOML document. Unknown keys are rejected.
func ParseTOML(data []byte) (*Document, error) {
	var doc Document
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML document: %w", err)
	}
	var unknown []string
	for _, k := range meta.Undecoded() {
		if !underFreeform(k) {
			unknown = append(unknown, k.String())
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("parsing TOML document: unknown keys: %s", strings.Join(unknown, ", "))
	}
	return &doc, nil
}

// freeformKeys hold arbitrary user data whose nested keys toml does not
// mark as decoded.
var freeformKeys = map[string]bool{
	"context":  true,
	"args":     true,
	"guard":    true,
	"action":   true,
	"on_enter": true,
	"on_exit":  true,
}

func underFreeform(k toml.Key) bool {
	for _, part := range k[:max(len(k)-1, 0)] {
		if freeformKeys[part] {
			return true
		}
	}
	return false
}

// ParseFile reads path and decodes it according to its extension.
func ParseFile(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow document %s: %w", path, err)
	}

	var doc *Document
	if ext == ".json" {
		doc, err = ParseJSON(data)
	} else {
		doc, err = ParseTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
