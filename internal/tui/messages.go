package tui

import (
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// SnapshotMsg carries a new instance snapshot published by the session.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// EngineEventMsg wraps a lifecycle event emitted by the engine.
type EngineEventMsg struct {
	Event workflow.Event
}

// DispatchedMsg reports the outcome of an event fired from the console.
type DispatchedMsg struct {
	Event        string
	Transitioned bool
	Err          error
}

// AvailableEventsMsg carries the events that can currently fire. It is
// tagged with the session revision it was computed at so stale results can
// be dropped.
type AvailableEventsMsg struct {
	Revision uint64
	Events   []string
	Err      error
}

// ErrorMsg reports a console-level failure for the event log.
type ErrorMsg struct {
	Source string
	Detail string
}
