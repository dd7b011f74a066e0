package screens

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

// mainPage opens search from the home page. The category tab tells the home
// page apart from other screens that share the search entry.
func mainPage(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: MainPage,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return s.Target() != "" &&
				!s.Steps.IsCompleted(agent.StepClickMainSearch) &&
				snap.Has(snapshot.ByID(cfg.HomeCategoryID)) &&
				snap.Has(snapshot.ByID(cfg.HomeSearchID))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("home page, opening search")
			if !clickFirst(ctx, s, snap, snapshot.ByID(cfg.HomeSearchID), log) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepClickMainSearch)
			return true
		},
	}
}

func inputNovelName(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: InputNovelName,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			if s.Target() == "" || s.Steps.IsCompleted(agent.StepInputNovelName) {
				return false
			}
			input := snap.First(snapshot.ByID(cfg.SearchInputID))
			return input != nil && input.Text != s.Target()
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			input := snap.First(snapshot.ByID(cfg.SearchInputID))
			if input == nil {
				return false
			}
			if !input.Editable || (cfg.EditTextKind != "" && input.Kind != cfg.EditTextKind) {
				log.Warn().Str("node", input.String()).Msg("search input is not an editable text field")
				return false
			}
			if !s.Actions.SetText(ctx, input, s.Target()) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepInputNovelName)
			return true
		},
	}
}

func searchNovel(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: SearchNovel,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			if s.Steps.IsCompleted(agent.StepClickSearchButton) || !snap.Has(snapshot.ByID(cfg.SearchButtonID)) {
				return false
			}
			input := snap.First(snapshot.ByID(cfg.SearchInputID))
			return input != nil && input.Text != ""
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			log.Info().Msg("search page, submitting")
			if !clickFirst(ctx, s, snap, snapshot.ByID(cfg.SearchButtonID), log) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepClickSearchButton)
			return true
		},
	}
}

// findNovel clicks the result whose title equals the target. When the title
// is not on screen it scrolls the list once and fails, so the dispatcher
// looks again at a fresh snapshot. Scrolling is bounded per search request.
type findNovel struct {
	cfg Config
	log zerolog.Logger

	request uint64
	scrolls int
}

func newFindNovel(cfg Config, log zerolog.Logger) *findNovel {
	return &findNovel{cfg: cfg, log: log}
}

func (h *findNovel) Name() string { return FindNovel }

func (h *findNovel) CanProcess(s *agent.Session, snap *snapshot.Snapshot) bool {
	return s.Target() != "" &&
		!s.Steps.IsCompleted(agent.StepFindAndClickNovel) &&
		snap.Has(snapshot.ByID(h.cfg.ResultListID))
}

func (h *findNovel) Process(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
	target := s.Target()
	if req := s.Request(); req != h.request {
		h.request = req
		h.scrolls = 0
	}
	log := h.log.With().Str("target", target).Logger()

	for _, item := range snap.Find(snapshot.ByID(h.cfg.ResultTitleID)) {
		if item.Text != target {
			continue
		}
		row := snapshot.ClickableAncestor(item)
		if row == nil {
			log.Warn().Msg("result found but nothing around it is clickable")
			return false
		}
		if !s.Actions.Click(ctx, row) {
			return false
		}
		log.Info().Msg("opened result")
		s.Steps.MarkCompleted(agent.StepFindAndClickNovel)
		return true
	}

	if h.scrolls >= h.cfg.MaxResultScroll {
		log.Warn().Int("scrolls", h.scrolls).Msg("result not found, scroll budget spent")
		return false
	}
	h.scrolls++
	log.Debug().Int("scroll", h.scrolls).Msg("result not on screen, scrolling")
	s.Actions.ScrollForward(ctx, snap.First(snapshot.ByID(h.cfg.ResultListID)))
	return false
}

func startReading(cfg Config, log zerolog.Logger) agent.Handler {
	return agent.Screen{
		ID: StartReading,
		Can: func(s *agent.Session, snap *snapshot.Snapshot) bool {
			return !s.Steps.IsCompleted(agent.StepClickStartReading) &&
				snap.Has(snapshot.ByTextExact(cfg.StartReadingText))
		},
		Do: func(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
			n := snap.First(snapshot.ByTextExact(cfg.StartReadingText))
			if n == nil {
				return false
			}
			if row := snapshot.ClickableAncestor(n); row != nil {
				n = row
			}
			log.Info().Msg("book page, starting to read")
			if !s.Actions.Click(ctx, n) {
				return false
			}
			s.Steps.MarkCompleted(agent.StepClickStartReading)
			return true
		},
	}
}
