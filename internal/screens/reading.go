package screens

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

func isReadingPage(cfg Config, snap *snapshot.Snapshot) bool {
	for _, id := range cfg.ReadingPageIDs {
		if snap.Has(snapshot.ByID(id)) {
			return true
		}
	}
	return false
}

// autoReading starts the page-turn loop on the reading page while auto mode
// is on.
func autoReading(cfg Config, log zerolog.Logger) agent.Handler {
	spec := agent.LoopSpec{
		Name:          PageTurnLoop,
		Delays:        cfg.PageTurnDelays,
		RetryInterval: cfg.PageTurnRetry,
		MaxFailures:   cfg.PageTurnMaxFailure,
		Matches:       func(snap *snapshot.Snapshot) bool { return isReadingPage(cfg, snap) },
		Act: func(ctx context.Context, s *agent.Session) bool {
			return s.Actions.Swipe(ctx, cfg.PageTurn)
		},
	}
	return agent.Screen{
		ID: AutoReading,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return s.AutoMode() && !s.LoopRunning(PageTurnLoop) && isReadingPage(cfg, snap)
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("reading page with auto mode on, turning pages")
			return s.StartLoop(spec)
		},
	}
}
