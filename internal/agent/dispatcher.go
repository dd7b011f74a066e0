package agent

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/metrics"
	"github.com/polzovatel/reader-autopilot/internal/queue"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

// Rand picks an index in [0, n). *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type Config struct {
	// MaxAttempts bounds the attempts made within one generation, the first
	// one included.
	MaxAttempts int
	// RetryDelays is the set a retry delay is drawn from. Every delay must
	// be positive.
	RetryDelays []time.Duration
	// InitialDelays is the set the first attempt after a screen change is
	// delayed by, letting the window settle.
	InitialDelays []time.Duration
	// AllowedSources lists the window sources the dispatcher reacts to.
	AllowedSources []string
	// Rand defaults to a time-seeded source.
	Rand Rand
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if len(c.RetryDelays) == 0 {
		return errors.New("retry delays must not be empty")
	}
	for _, d := range c.RetryDelays {
		if d <= 0 {
			return errors.New("retry delays must be positive")
		}
	}
	for _, d := range c.InitialDelays {
		if d < 0 {
			return errors.New("initial delays must not be negative")
		}
	}
	if len(c.AllowedSources) == 0 {
		return errors.New("allowed sources must not be empty")
	}
	for _, s := range c.AllowedSources {
		if s == "" {
			return errors.New("allowed sources must not contain an empty source")
		}
	}
	return nil
}

// State of the dispatcher.
type State int

const (
	StateIdle State = iota
	StateAttempting
)

func (s State) String() string {
	if s == StateAttempting {
		return "attempting"
	}
	return "idle"
}

// Dispatcher runs the handler chain against fresh snapshots and retries
// failed attempts. Everything except SetAutoMode's flag and Generation is
// touched only from the scheduler's queue.
type Dispatcher struct {
	ctx      context.Context
	cfg      Config
	sched    queue.Scheduler
	dev      tools.Device
	handlers []Handler
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	rnd      Rand

	session  *Session
	steps    *Tracker
	target   string
	request  uint64
	auto     atomic.Bool
	gen      atomic.Uint64
	inTarget bool
	// pending is set while an attempt for the current generation is queued
	// or running.
	pending bool

	polls map[string]*PollLoop
	loops map[string]*ContinuousLoop
}

// NewDispatcher wires a dispatcher. ctx bounds every device call made from
// queued work; handlers are evaluated in slice order.
func NewDispatcher(ctx context.Context, cfg Config, dev tools.Device, sched queue.Scheduler, handlers []Handler, logger zerolog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil || sched == nil {
		return nil, errors.New("device and scheduler are required")
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger = logger.With().Str("comp", "dispatch").Logger()
	d := &Dispatcher{
		ctx:      ctx,
		cfg:      cfg,
		sched:    sched,
		dev:      dev,
		handlers: append([]Handler(nil), handlers...),
		logger:   logger,
		metrics:  m,
		rnd:      rnd,
		steps:    NewTracker(logger.With().Str("comp", "steps").Logger()),
		polls:    make(map[string]*PollLoop),
		loops:    make(map[string]*ContinuousLoop),
	}
	d.session = &Session{
		Steps:   d.steps,
		Actions: tools.New(dev, logger.With().Str("comp", "actions").Logger()),
		Logger:  logger,
		d:       d,
	}
	return d, nil
}

// OnScreenChanged reports that the active window changed. Safe to call from
// any goroutine.
func (d *Dispatcher) OnScreenChanged(source string) {
	d.sched.Post(func() { d.screenChanged(source) })
}

// SetSearchTarget sets the title to search for and restarts the workflow.
// Safe to call from any goroutine.
func (d *Dispatcher) SetSearchTarget(text string) {
	text = strings.TrimSpace(text)
	d.sched.Post(func() {
		d.target = text
		d.request++
		d.steps.ResetAll()
		gen := d.bump()
		d.logger.Info().Str("target", text).Uint64("gen", gen).Msg("search target set")
		if d.inTarget {
			d.schedule(gen, 0, 0)
		}
	})
}

// SetAutoMode turns automatic page turning on or off. The flag flips
// immediately so a loop tick already queued sees it. Safe to call from any
// goroutine.
func (d *Dispatcher) SetAutoMode(on bool) {
	d.auto.Store(on)
	d.sched.Post(func() {
		d.logger.Info().Bool("auto", on).Msg("auto mode changed")
		if !on {
			d.stopLoops("mode_off")
			return
		}
		if d.inTarget {
			d.schedule(d.bump(), 0, 0)
		}
	})
}

// Generation is the current generation token.
func (d *Dispatcher) Generation() uint64 { return d.gen.Load() }

// State reports whether an attempt is queued or running. Call it from the
// queue or after the queue is drained.
func (d *Dispatcher) State() State {
	if d.pending {
		return StateAttempting
	}
	return StateIdle
}

// Session exposes the handler-facing state.
func (d *Dispatcher) Session() *Session { return d.session }

func (d *Dispatcher) screenChanged(source string) {
	if !d.allowed(source) {
		if d.inTarget {
			d.inTarget = false
			gen := d.bump()
			d.steps.ResetScope(ScopeScreen)
			d.stopAll("left_target")
			d.logger.Info().Str("source", source).Uint64("gen", gen).Msg("left target app")
		}
		return
	}
	d.inTarget = true
	gen := d.bump()
	d.steps.ResetScope(ScopeScreen)
	d.logger.Debug().Str("source", source).Uint64("gen", gen).Msg("screen changed")
	d.schedule(gen, 0, d.pick(d.cfg.InitialDelays))
}

func (d *Dispatcher) allowed(source string) bool {
	for _, s := range d.cfg.AllowedSources {
		if s == source {
			return true
		}
	}
	return false
}

func (d *Dispatcher) bump() uint64 {
	gen := d.gen.Add(1)
	d.pending = false
	d.metrics.Generation(gen)
	return gen
}

func (d *Dispatcher) schedule(gen uint64, attempt int, delay time.Duration) {
	d.pending = true
	task := func() { d.attempt(gen, attempt) }
	if delay <= 0 {
		d.sched.Post(task)
		return
	}
	d.sched.PostDelayed(delay, task)
}

func (d *Dispatcher) attempt(gen uint64, n int) {
	if cur := d.gen.Load(); gen != cur {
		d.metrics.RetryStale()
		d.logger.Debug().Uint64("gen", gen).Uint64("current", cur).Int("attempt", n).Msg("discarding stale attempt")
		return
	}
	if d.ctx.Err() != nil {
		d.pending = false
		return
	}
	log := d.logger.With().Uint64("gen", gen).Int("attempt", n+1).Logger()

	snap, err := d.dev.AcquireSnapshot(d.ctx)
	if err != nil || snap == nil {
		log.Debug().Err(err).Msg("no snapshot")
		d.metrics.Attempt("no_snapshot")
		d.fail(gen, n)
		return
	}
	outcome := d.runChain(snap, log)
	d.metrics.Attempt(outcome)
	if outcome == "acted" {
		d.pending = false
		return
	}
	d.fail(gen, n)
}

// runChain invokes Process on the first handler that claims the snapshot and
// releases the snapshot before returning.
func (d *Dispatcher) runChain(snap *snapshot.Snapshot, log zerolog.Logger) string {
	defer snap.Release()
	for _, h := range d.handlers {
		if !h.CanProcess(d.session, snap) {
			continue
		}
		ok := h.Process(d.ctx, d.session, snap)
		d.metrics.HandlerAction(h.Name(), ok)
		if ok {
			log.Info().Str("handler", h.Name()).Msg("handler acted")
			return "acted"
		}
		log.Warn().Str("handler", h.Name()).Msg("handler failed")
		return "action_failed"
	}
	log.Debug().Str("source", snap.Source).Msg("no handler matched")
	return "no_match"
}

func (d *Dispatcher) fail(gen uint64, n int) {
	next := n + 1
	if next >= d.cfg.MaxAttempts {
		d.pending = false
		d.metrics.GaveUp()
		d.logger.Warn().Uint64("gen", gen).Int("attempts", next).Msg("giving up until the next screen change")
		return
	}
	delay := d.pick(d.cfg.RetryDelays)
	d.metrics.RetryScheduled()
	d.logger.Debug().Uint64("gen", gen).Int("attempt", next+1).Dur("delay", delay).Msg("retry scheduled")
	d.schedule(gen, next, delay)
}

func (d *Dispatcher) pick(delays []time.Duration) time.Duration {
	switch len(delays) {
	case 0:
		return 0
	case 1:
		return delays[0]
	}
	return delays[d.rnd.Intn(len(delays))]
}

func (d *Dispatcher) stopAll(reason string) {
	for _, p := range d.polls {
		if p.running {
			d.stopPoll(p, reason)
		}
	}
	d.stopLoops(reason)
}

func (d *Dispatcher) stopLoops(reason string) {
	for _, l := range d.loops {
		if l.running {
			d.stopLoop(l, reason)
		}
	}
}
