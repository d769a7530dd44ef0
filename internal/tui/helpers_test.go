package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/compiler"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// doorJSON is a closed/open door with a lock guarded by a context flag.
const doorJSON = `{
  "id": "door",
  "initial_state": "closed",
  "states": [
    {"id": "closed", "kind": "input", "transitions": [
      {"event": "OPEN", "target": "open"},
      {"event": "LOCK", "target": "locked", "guard": {"id": "truthy", "args": {"key": "has_key"}}}
    ]},
    {"id": "open", "kind": "input", "transitions": [
      {"event": "CLOSE", "target": "closed"}
    ]},
    {"id": "locked", "kind": "terminal"}
  ]
}`

// openDoor opens a session over the door workflow with an engine event
// channel attached.
func openDoor(t testing.TB, data compiler.Data) (*session.Session, chan workflow.Event) {
	t.Helper()
	doc, err := compiler.ParseJSON([]byte(doorJSON))
	require.NoError(t, err)
	def, err := compiler.Compile(doc, compiler.NewBuiltinRegistry())
	require.NoError(t, err)

	events := make(chan workflow.Event, 64)
	eng := workflow.NewEngine[compiler.Data](workflow.WithEventChannel(events))
	s, err := session.Open(context.Background(), eng, def, data)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, events
}

func newTestApp(t testing.TB, data compiler.Data) (App, chan workflow.Event) {
	t.Helper()
	s, events := openDoor(t, data)
	return NewApp(context.Background(), AppConfig{Version: "1.2.3", Session: s, Events: events}), events
}
