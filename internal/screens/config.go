// Package screens is the ordered handler chain for the Tomato novel reader.
package screens

import (
	"errors"
	"time"

	"github.com/polzovatel/reader-autopilot/internal/tools"
)

// Config holds the identifiers and texts each screen is recognised by, plus
// the timing of the two long-running flows.
type Config struct {
	AddToHomeTitleID  string
	AddToHomeCancelID string

	ProductFeatureID string
	ProductCloseID   string

	AfterAdCloseID string

	RetentionRewardDesc string
	RetentionExitDesc   string

	AdMarkerText string
	AdRewardText string
	// AdRewardMarkers is how many reward texts must be on screen before the
	// close image next to the first one is clicked.
	AdRewardMarkers int
	AdCloseKind     string
	AdMaxChecks     int
	AdInterval      time.Duration

	EnterAdID string

	HomeCategoryID string
	HomeSearchID   string

	SearchInputID   string
	EditTextKind    string
	SearchButtonID  string
	ResultTitleID   string
	ResultListID    string
	MaxResultScroll int

	StartReadingText string

	ReadingPageIDs     []string
	PageTurnDelays     []time.Duration
	PageTurnRetry      time.Duration
	PageTurnMaxFailure int
	PageTurn           tools.Gesture
}

// Default is tuned for the com.dragon.read build the identifiers came from.
func Default() Config {
	return Config{
		AddToHomeTitleID:  "com.sec.android.app.launcher:id/add_item_title",
		AddToHomeCancelID: "com.sec.android.app.launcher:id/cancel_button",

		ProductFeatureID: "com.dragon.read:id/d_k",
		ProductCloseID:   "com.dragon.read:id/d_i",

		AfterAdCloseID: "com.dragon.read:id/c7n",

		RetentionRewardDesc: "领取奖励",
		RetentionExitDesc:   "坚持退出",

		AdMarkerText:    "广告",
		AdRewardText:    "领取成功",
		AdRewardMarkers: 2,
		AdCloseKind:     "com.lynx.tasm.ui.image.FlattenUIImage",
		AdMaxChecks:     8,
		AdInterval:      10 * time.Second,

		EnterAdID: "com.dragon.read:id/dsf",

		HomeCategoryID: "com.dragon.read:id/hia",
		HomeSearchID:   "com.dragon.read:id/c8",

		SearchInputID:   "com.dragon.read:id/gfy",
		EditTextKind:    "android.widget.EditText",
		SearchButtonID:  "com.dragon.read:id/gh2",
		ResultTitleID:   "com.dragon.read:id/agf",
		ResultListID:    "com.dragon.read:id/gfz",
		MaxResultScroll: 10,

		StartReadingText: "开始阅读",

		ReadingPageIDs:     []string{"com.dragon.read:id/j0a", "com.dragon.read:id/c9"},
		PageTurnDelays:     []time.Duration{4 * time.Second, 5 * time.Second, 6 * time.Second, 7 * time.Second},
		PageTurnRetry:      2 * time.Second,
		PageTurnMaxFailure: 3,
		PageTurn:           tools.SwipeLeft,
	}
}

func (c Config) Validate() error {
	if c.AdMaxChecks < 1 || c.AdInterval <= 0 {
		return errors.New("ad poll needs a positive check bound and interval")
	}
	if c.AdRewardMarkers < 1 {
		return errors.New("ad reward markers must be at least 1")
	}
	if c.PageTurnMaxFailure < 1 || c.PageTurnRetry <= 0 {
		return errors.New("page turn needs a positive failure bound and retry interval")
	}
	if len(c.PageTurnDelays) == 0 {
		return errors.New("page turn delays must not be empty")
	}
	for _, d := range c.PageTurnDelays {
		if d <= 0 {
			return errors.New("page turn delays must be positive")
		}
	}
	if c.MaxResultScroll < 0 {
		return errors.New("max result scroll must not be negative")
	}
	if len(c.ReadingPageIDs) == 0 {
		return errors.New("reading page ids must not be empty")
	}
	return nil
}
