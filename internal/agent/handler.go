package agent

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

// Handler recognises one screen and performs one action on it.
type Handler interface {
	// Name is used for logging and metrics.
	Name() string
	// CanProcess must not mutate state. Handlers gated on a Step check it
	// before looking at the snapshot.
	CanProcess(s *Session, snap *snapshot.Snapshot) bool
	// Process performs exactly one logical action and reports whether it was
	// initiated. A handler completing a Step marks it before returning.
	Process(ctx context.Context, s *Session, snap *snapshot.Snapshot) bool
}

// Screen adapts a pair of functions to Handler.
type Screen struct {
	ID  string
	Can func(s *Session, snap *snapshot.Snapshot) bool
	Do  func(ctx context.Context, s *Session, snap *snapshot.Snapshot) bool
}

func (h Screen) Name() string { return h.ID }

func (h Screen) CanProcess(s *Session, snap *snapshot.Snapshot) bool {
	return h.Can != nil && h.Can(s, snap)
}

func (h Screen) Process(ctx context.Context, s *Session, snap *snapshot.Snapshot) bool {
	return h.Do != nil && h.Do(ctx, s, snap)
}

// Session is the dispatcher-owned state handed to every handler call.
type Session struct {
	Steps   *Tracker
	Actions *tools.Actions
	Logger  zerolog.Logger

	d *Dispatcher
}

// Target is the search string supplied by the host; empty when none.
func (s *Session) Target() string { return s.d.target }

// Request counts SetSearchTarget calls. Handlers key per-search state on it
// so a repeated title still starts a fresh search.
func (s *Session) Request() uint64 { return s.d.request }

// AutoMode reports whether automatic page turning is on.
func (s *Session) AutoMode() bool { return s.d.auto.Load() }

// StartPoll launches a bounded poll flow. It returns false when a flow with
// the same name is already running or the spec is unbounded.
func (s *Session) StartPoll(spec PollSpec) bool { return s.d.startPoll(spec) }

// PollRunning reports whether the named poll flow is active.
func (s *Session) PollRunning(name string) bool {
	p, ok := s.d.polls[name]
	return ok && p.running
}

// StartLoop launches a continuous loop. It returns false when the loop is
// already running or the spec is unbounded.
func (s *Session) StartLoop(spec LoopSpec) bool { return s.d.startLoop(spec) }

// LoopRunning reports whether the named continuous loop is active.
func (s *Session) LoopRunning(name string) bool {
	l, ok := s.d.loops[name]
	return ok && l.running
}

// Device is the platform behind Actions.
func (s *Session) Device() tools.Device { return s.Actions.Device() }
