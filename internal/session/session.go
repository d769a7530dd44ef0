// Package session binds one workflow instance to a front end. A Session
// serializes dispatches, keeps the latest snapshot, and tells observers when
// it changes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/compiler"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// ErrClosed is returned by operations on a closed Session.
var ErrClosed = errors.New("session closed")

// Snapshot is the immutable view a Session hands out.
type Snapshot = *workflow.Instance[compiler.Data]

// Session owns one instance of a compiled definition. All methods are safe
// for concurrent use.
type Session struct {
	engine    *workflow.Engine[compiler.Data]
	def       *workflow.Definition[compiler.Data]
	logger    *log.Logger
	startOpts []workflow.StartOption

	mu          sync.Mutex
	inst        Snapshot
	revision    uint64
	subscribers map[int]chan Snapshot
	nextSub     int
	closed      bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger to the session.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithStartOptions passes start options, such as an explicit instance id,
// to the engine when the session opens.
func WithStartOptions(opts ...workflow.StartOption) Option {
	return func(s *Session) { s.startOpts = append(s.startOpts, opts...) }
}

// Open starts an instance of def with a copy of data and stabilizes it once.
func Open(ctx context.Context, eng *workflow.Engine[compiler.Data], def *workflow.Definition[compiler.Data], data compiler.Data, opts ...Option) (*Session, error) {
	s := &Session{
		engine:      eng,
		def:         def,
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}

	inst, err := eng.StartAndStabilize(ctx, def, cloneData(data), s.startOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening session for %q: %w", def.ID, err)
	}
	s.inst = inst
	s.revision = 1
	s.debug("session opened", "instance", inst.InstanceID, "state", inst.CurrentState, "status", inst.Status)
	return s, nil
}

// Definition returns the definition the session executes.
func (s *Session) Definition() *workflow.Definition[compiler.Data] { return s.def }

// Snapshot returns the current instance snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst
}

// Revision returns a counter that increases every time the snapshot or its
// context is replaced.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Dispatch submits event to the instance. Calls are serialized; the result
// of each call reflects every earlier one.
func (s *Session) Dispatch(ctx context.Context, event string) (workflow.DispatchResult[compiler.Data], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return workflow.DispatchResult[compiler.Data]{Instance: s.inst}, ErrClosed
	}

	res := s.engine.Dispatch(ctx, s.def, s.inst, event)
	if res.Instance != s.inst {
		s.replaceLocked(res.Instance)
	}
	s.debug("event dispatched", "event", event, "transitioned", res.Transitioned,
		"state", res.Instance.CurrentState, "status", res.Instance.Status)
	return res, nil
}

// ReplaceContext swaps the instance context for a shallow copy of data. The
// instance is not stabilized: auto transitions that become eligible run on
// the next successful dispatch.
func (s *Session) ReplaceContext(data compiler.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := *s.inst
	next.Context = cloneData(data)
	s.replaceLocked(&next)
	s.debug("context replaced", "keys", len(data))
	return nil
}

// CanFire reports whether event would currently cause a transition.
func (s *Session) CanFire(ctx context.Context, event string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CanFire(ctx, s.def, s.inst, event)
}

// AvailableEvents lists the events that would currently cause a transition.
func (s *Session) AvailableEvents(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AvailableEvents(ctx, s.def, s.inst)
}

// Fingerprint hashes the JSON form of the current snapshot. Two snapshots
// with equal fingerprints render identically.
func (s *Session) Fingerprint() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Fingerprint(s.inst)
}

// Fingerprint hashes the JSON form of inst with xxhash.
func Fingerprint(inst Snapshot) (uint64, error) {
	data, err := json.Marshal(inst)
	if err != nil {
		return 0, fmt.Errorf("fingerprinting snapshot: %w", err)
	}
	return xxhash.Sum64(data), nil
}

// Subscribe returns a channel that receives every new snapshot and a
// function that cancels the subscription. Sends never block: a subscriber
// that falls behind misses intermediate snapshots, and can always catch up
// with Snapshot.
func (s *Session) Subscribe(buffer int) (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close closes all subscriber channels. Later Dispatch and ReplaceContext
// calls return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) replaceLocked(inst Snapshot) {
	s.inst = inst
	s.revision++
	for _, ch := range s.subscribers {
		select {
		case ch <- inst:
		default:
		}
	}
}

func (s *Session) debug(msg string, kvs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(msg, append([]any{"workflow", s.def.ID}, kvs...)...)
}

func cloneData(data compiler.Data) compiler.Data {
	if data == nil {
		return compiler.Data{}
	}
	return maps.Clone(data)
}
