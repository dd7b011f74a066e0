package screens

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

func clickFirst(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot, pred snapshot.Predicate, log zerolog.Logger) bool {
	n := snap.First(pred)
	if n == nil {
		log.Warn().Stringer("pred", pred).Msg("target node not found")
		return false
	}
	return s.Actions.Click(ctx, n)
}

// addToHome dismisses the launcher's "Add to Home screen" dialog.
func addToHome(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: AddToHome,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return !s.Steps.IsCompleted(agent.StepDismissAddToHome) &&
				snap.Has(snapshot.ByID(cfg.AddToHomeTitleID))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("add to home dialog, cancelling")
			if !clickFirst(ctx, s, snap, snapshot.ByID(cfg.AddToHomeCancelID), log) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepDismissAddToHome)
			return true
		},
	}
}

func productPopup(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: ProductPopup,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return snap.Has(snapshot.ByID(cfg.ProductFeatureID)) && snap.Has(snapshot.ByID(cfg.ProductCloseID))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("product popup, closing")
			return clickFirst(ctx, s, snap, snapshot.ByID(cfg.ProductCloseID), log)
		},
	}
}

// afterAd acknowledges the "ad-free time granted" popup shown after an ad.
func afterAd(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: AfterAd,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return snap.Has(snapshot.ByID(cfg.AfterAdCloseID))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("ad-free popup, acknowledging")
			return clickFirst(ctx, s, snap, snapshot.ByID(cfg.AfterAdCloseID), log)
		},
	}
}

// adRetention leaves the "are you sure, you will lose the reward" dialog.
func adRetention(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: AdRetention,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return snap.Has(snapshot.ByDescriptionContains(cfg.RetentionRewardDesc)) &&
				snap.Has(snapshot.ByDescriptionContains(cfg.RetentionExitDesc))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("ad retention dialog, exiting")
			return clickFirst(ctx, s, snap, snapshot.ByDescriptionContains(cfg.RetentionExitDesc), log)
		},
	}
}

// adReward waits on the ad page until the reward is granted, then closes it.
// The close control has no id or text; it is the first image after the
// reward text among that text's siblings.
func adReward(cfg Config, log zerolog.Logger) agent.Handler {
	spec := agent.PollSpec{
		Name:      AdReward,
		MaxChecks: cfg.AdMaxChecks,
		Interval:  cfg.AdInterval,
		Check: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) agent.PollResult {
			if !snap.Has(snapshot.ByTextExact(cfg.AdMarkerText)) {
				return agent.PollGone
			}
			anchors := snap.Find(snapshot.ByTextContains(cfg.AdRewardText))
			if len(anchors) < cfg.AdRewardMarkers {
				return agent.PollContinue
			}
			closeBtn := snapshot.NextSiblingOfKind(anchors[0], cfg.AdCloseKind)
			if closeBtn == nil {
				log.Warn().Str("kind", cfg.AdCloseKind).Msg("reward granted but no close image next to it")
				return agent.PollContinue
			}
			if !s.Actions.Click(ctx, closeBtn) {
				log.Warn().Msg("closing ad failed, will retry next check")
				return agent.PollContinue
			}
			log.Info().Msg("ad closed after reward")
			return agent.PollDone
		},
	}
	return agent.Screen{
		ID: AdReward,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return !s.PollRunning(AdReward) && snap.Has(snapshot.ByTextExact(cfg.AdMarkerText))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			return s.StartPoll(spec)
		},
	}
}

// enterAd starts a rewarded video for ad-free reading time.
func enterAd(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: EnterAd,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return !s.Steps.IsCompleted(agent.StepEnterAd) && snap.Has(snapshot.ByID(cfg.EnterAdID))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("entering rewarded ad")
			if !clickFirst(ctx, s, snap, snapshot.ByID(cfg.EnterAdID), log) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepEnterAd)
			return true
		},
	}
}
