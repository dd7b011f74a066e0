package agent

import (
	"context"
	"time"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

// LoopSpec describes an open-ended action loop gated by auto mode.
type LoopSpec struct {
	Name string
	// Delays is the set the pause after a successful tick is drawn from.
	Delays []time.Duration
	// RetryInterval follows a tick that did not act.
	RetryInterval time.Duration
	// MaxFailures consecutive failed ticks stop the loop.
	MaxFailures int
	// Matches reports whether the snapshot shows the screen the loop acts on.
	Matches func(snap *snapshot.Snapshot) bool
	// Act performs the action once.
	Act func(ctx context.Context, s *Session) bool
}

// ContinuousLoop is the state of one loop.
type ContinuousLoop struct {
	spec     LoopSpec
	failures int
	ticks    int
	running  bool
	epoch    uint64
}

// Ticks is the number of ticks that acted in the current or last run.
func (l *ContinuousLoop) Ticks() int { return l.ticks }

func (d *Dispatcher) startLoop(spec LoopSpec) bool {
	if spec.Name == "" || spec.MaxFailures < 1 || spec.RetryInterval <= 0 || spec.Matches == nil || spec.Act == nil {
		d.logger.Error().Str("loop", spec.Name).Msg("refusing unbounded loop")
		return false
	}
	for _, delay := range spec.Delays {
		if delay <= 0 {
			d.logger.Error().Str("loop", spec.Name).Msg("loop delays must be positive")
			return false
		}
	}
	l := d.loops[spec.Name]
	if l == nil {
		l = &ContinuousLoop{}
		d.loops[spec.Name] = l
	}
	if l.running {
		return false
	}
	l.spec = spec
	l.failures = 0
	l.ticks = 0
	l.running = true
	l.epoch++
	epoch := l.epoch
	d.logger.Info().Str("loop", spec.Name).Msg("loop started")
	d.sched.Post(func() { d.loopTick(l, epoch) })
	return true
}

func (d *Dispatcher) loopTick(l *ContinuousLoop, epoch uint64) {
	if !l.running || l.epoch != epoch {
		return
	}
	if !d.auto.Load() {
		d.stopLoop(l, "mode_off")
		return
	}
	if d.ctx.Err() != nil {
		d.stopLoop(l, "canceled")
		return
	}
	log := d.logger.With().Str("loop", l.spec.Name).Logger()

	acted := false
	if d.matches(l) {
		acted = l.spec.Act(d.ctx, d.session)
	} else {
		log.Debug().Msg("loop: not on target screen")
	}
	d.metrics.LoopTick(l.spec.Name, acted)

	if acted {
		l.failures = 0
		l.ticks++
	} else {
		l.failures++
		log.Warn().Int("failures", l.failures).Int("max", l.spec.MaxFailures).Msg("loop tick failed")
		if l.failures >= l.spec.MaxFailures {
			log.Error().Msg("loop aborted after consecutive failures")
			d.stopLoop(l, "failures")
			return
		}
	}
	// The flag may have flipped while acting.
	if !d.auto.Load() {
		d.stopLoop(l, "mode_off")
		return
	}
	delay := l.spec.RetryInterval
	if acted {
		delay = d.pick(l.spec.Delays)
		if delay <= 0 {
			delay = l.spec.RetryInterval
		}
	}
	d.sched.PostDelayed(delay, func() { d.loopTick(l, epoch) })
}

func (d *Dispatcher) matches(l *ContinuousLoop) bool {
	snap, err := d.dev.AcquireSnapshot(d.ctx)
	if err != nil || snap == nil {
		return false
	}
	defer snap.Release()
	return l.spec.Matches(snap)
}

func (d *Dispatcher) stopLoop(l *ContinuousLoop, reason string) {
	if l.running {
		d.logger.Info().Str("loop", l.spec.Name).Str("reason", reason).Msg("loop stopped")
	}
	l.running = false
	l.epoch++
	d.metrics.LoopStopped(l.spec.Name, reason)
}
