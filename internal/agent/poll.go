package agent

import (
	"context"
	"time"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

// PollResult is what one poll check concluded.
type PollResult int

const (
	// PollContinue schedules another check if the bound allows it.
	PollContinue PollResult = iota
	// PollDone means the completing action was performed.
	PollDone
	// PollGone means the screen the flow was waiting on disappeared.
	PollGone
)

func (r PollResult) String() string {
	switch r {
	case PollDone:
		return "done"
	case PollGone:
		return "gone"
	}
	return "continue"
}

// PollSpec describes a bounded wait-then-act flow.
type PollSpec struct {
	Name      string
	MaxChecks int
	Interval  time.Duration
	// Check inspects a fresh snapshot and performs the completing action when
	// its condition holds. It returns PollDone only if that action succeeded.
	Check func(ctx context.Context, s *Session, snap *snapshot.Snapshot) PollResult
}

// PollLoop is the state of one poll flow.
type PollLoop struct {
	spec    PollSpec
	checks  int
	running bool
	epoch   uint64
}

// Checks is the number of checks made by the current or last run.
func (p *PollLoop) Checks() int { return p.checks }

func (d *Dispatcher) startPoll(spec PollSpec) bool {
	if spec.Name == "" || spec.MaxChecks < 1 || spec.Interval <= 0 || spec.Check == nil {
		d.logger.Error().Str("flow", spec.Name).Msg("refusing unbounded poll flow")
		return false
	}
	p := d.polls[spec.Name]
	if p == nil {
		p = &PollLoop{}
		d.polls[spec.Name] = p
	}
	if p.running {
		d.logger.Debug().Str("flow", spec.Name).Msg("poll flow already running")
		return false
	}
	p.spec = spec
	p.checks = 0
	p.running = true
	p.epoch++
	epoch := p.epoch
	d.logger.Info().Str("flow", spec.Name).Int("max_checks", spec.MaxChecks).Dur("interval", spec.Interval).Msg("poll flow started")
	d.sched.Post(func() { d.pollTick(p, epoch) })
	return true
}

func (d *Dispatcher) pollTick(p *PollLoop, epoch uint64) {
	if !p.running || p.epoch != epoch {
		return
	}
	if d.ctx.Err() != nil {
		d.stopPoll(p, "canceled")
		return
	}
	p.checks++
	log := d.logger.With().Str("flow", p.spec.Name).Int("check", p.checks).Logger()

	result := PollContinue
	snap, err := d.dev.AcquireSnapshot(d.ctx)
	if err != nil || snap == nil {
		log.Debug().Err(err).Msg("poll: no snapshot")
	} else {
		result = d.check(p, snap)
	}

	switch result {
	case PollDone:
		log.Info().Msg("poll flow completed")
		d.stopPoll(p, "done")
		return
	case PollGone:
		log.Info().Msg("poll flow condition gone")
		d.stopPoll(p, "gone")
		return
	}
	if p.checks >= p.spec.MaxChecks {
		log.Error().Msg("poll flow timed out")
		d.stopPoll(p, "timeout")
		return
	}
	d.sched.PostDelayed(p.spec.Interval, func() { d.pollTick(p, epoch) })
}

func (d *Dispatcher) check(p *PollLoop, snap *snapshot.Snapshot) PollResult {
	defer snap.Release()
	return p.spec.Check(d.ctx, d.session, snap)
}

func (d *Dispatcher) stopPoll(p *PollLoop, reason string) {
	p.running = false
	p.epoch++
	d.metrics.PollFinished(p.spec.Name, reason)
}
