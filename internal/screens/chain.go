package screens

import (
	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/agent"
)

// Handler names, in chain order.
const (
	AddToHome      = "add-to-home"
	ProductPopup   = "product-popup"
	AfterAd        = "after-ad"
	AdRetention    = "ad-retention"
	AdReward       = "ad-reward"
	EnterAd        = "enter-ad"
	MainPage       = "main-page"
	InputNovelName = "input-novel-name"
	SearchNovel    = "search-novel"
	FindNovel      = "find-novel"
	StartReading   = "start-reading"
	AutoReading    = "auto-reading"

	// PageTurnLoop is the continuous loop started on the reading page.
	PageTurnLoop = "page-turn"
)

// Chain returns the handlers in priority order. Popups that cover other
// screens come first so they are dismissed before anything underneath is
// recognised.
func Chain(cfg Config, logger zerolog.Logger) []agent.Handler {
	log := logger.With().Str("comp", "screens").Logger()
	return []agent.Handler{
		addToHome(cfg, log),
		productPopup(cfg, log),
		afterAd(cfg, log),
		adRetention(cfg, log),
		adReward(cfg, log),
		enterAd(cfg, log),
		mainPage(cfg, log),
		inputNovelName(cfg, log),
		searchNovel(cfg, log),
		newFindNovel(cfg, log),
		startReading(cfg, log),
		autoReading(cfg, log),
	}
}
