package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// EventBridge turns session snapshots, engine events and session calls into
// tea.Cmd values. Each read command returns one message; the App re-issues
// it after handling the message to keep draining the channel.
type EventBridge struct {
	ctx     context.Context
	session *session.Session
}

// NewEventBridge creates a bridge bound to ctx and s.
func NewEventBridge(ctx context.Context, s *session.Session) EventBridge {
	return EventBridge{ctx: ctx, session: s}
}

// SnapshotCmd reads one snapshot from ch. It yields nil when ch is closed or
// the context is done.
func (b EventBridge) SnapshotCmd(ch <-chan session.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-b.ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			return SnapshotMsg{Snapshot: snap}
		}
	}
}

// EngineEventCmd reads one engine event from ch.
func (b EventBridge) EngineEventCmd(ch <-chan workflow.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-b.ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return EngineEventMsg{Event: ev}
		}
	}
}

// DispatchCmd fires event on the session.
func (b EventBridge) DispatchCmd(event string) tea.Cmd {
	return func() tea.Msg {
		res, err := b.session.Dispatch(b.ctx, event)
		if err != nil {
			return DispatchedMsg{Event: event, Err: fmt.Errorf("dispatching %s: %w", event, err)}
		}
		return DispatchedMsg{Event: event, Transitioned: res.Transitioned}
	}
}

// AvailableEventsCmd computes the events that can fire at the current
// revision.
func (b EventBridge) AvailableEventsCmd() tea.Cmd {
	return func() tea.Msg {
		rev := b.session.Revision()
		events, err := b.session.AvailableEvents(b.ctx)
		return AvailableEventsMsg{Revision: rev, Events: events, Err: err}
	}
}
