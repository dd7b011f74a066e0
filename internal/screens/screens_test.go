package screens_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/queue"
	"github.com/polzovatel/reader-autopilot/internal/screens"
	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/testutil"
)

const (
	app      = "com.dragon.read"
	launcher = "com.sec.android.app.launcher"
)

type firstRand struct{}

func (firstRand) Intn(int) int { return 0 }

// counted records the handlers whose Process succeeded.
type counted struct {
	agent.Handler
	acted *[]string
}

func (c counted) Process(ctx context.Context, s *agent.Session, snap *snapshot.Snapshot) bool {
	ok := c.Handler.Process(ctx, s, snap)
	if ok {
		*c.acted = append(*c.acted, c.Name())
	}
	return ok
}

type harness struct {
	cfg   screens.Config
	dev   *testutil.Device
	sched *queue.Manual
	d     *agent.Dispatcher
	acted []string
}

func newHarness(t *testing.T, mutate ...func(*screens.Config)) *harness {
	t.Helper()
	cfg := screens.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	require.NoError(t, cfg.Validate())

	h := &harness{cfg: cfg, dev: testutil.NewDevice(), sched: queue.NewManual()}
	var handlers []agent.Handler
	for _, hd := range screens.Chain(cfg, zerolog.Nop()) {
		handlers = append(handlers, counted{Handler: hd, acted: &h.acted})
	}
	d, err := agent.NewDispatcher(context.Background(), agent.Config{
		MaxAttempts:    3,
		RetryDelays:    []time.Duration{time.Second},
		AllowedSources: []string{app, launcher},
		Rand:           firstRand{},
	}, h.dev, h.sched, handlers, zerolog.Nop(), nil)
	require.NoError(t, err)
	h.d = d
	return h
}

// visit shows root, reports the change and lets the queue settle.
func (h *harness) visit(source string, root *snapshot.Node) {
	h.dev.Source = source
	h.dev.Show(root)
	h.d.OnScreenChanged(source)
	h.sched.Advance(0)
}

func (h *harness) home() *snapshot.Node {
	return testutil.Root(
		testutil.Label(h.cfg.HomeCategoryID, "分类"),
		testutil.Button(h.cfg.HomeSearchID, "搜索"),
	)
}

func (h *harness) searchInput(text string) *snapshot.Node {
	n := testutil.Label(h.cfg.SearchInputID, text)
	n.Kind = h.cfg.EditTextKind
	n.Editable = true
	return n
}

func (h *harness) results(titles ...string) *snapshot.Node {
	list := &snapshot.Node{
		ID: h.cfg.ResultListID, Kind: "androidx.recyclerview.widget.RecyclerView",
		Bounds:  snapshot.Rect{Top: 300, Right: 1080, Bottom: 2400},
		Visible: true, Enabled: true, Scrollable: true,
	}
	for i, title := range titles {
		row := testutil.Button("row:"+title, "")
		row.Bounds = snapshot.Rect{Top: 300 + i*200, Right: 1080, Bottom: 480 + i*200}
		row.Children = []*snapshot.Node{testutil.Label(h.cfg.ResultTitleID, title)}
		list.Children = append(list.Children, row)
	}
	return testutil.Root(list)
}

func TestChainOrder(t *testing.T) {
	var names []string
	for _, h := range screens.Chain(screens.Default(), zerolog.Nop()) {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{
		screens.AddToHome, screens.ProductPopup, screens.AfterAd, screens.AdRetention,
		screens.AdReward, screens.EnterAd, screens.MainPage, screens.InputNovelName,
		screens.SearchNovel, screens.FindNovel, screens.StartReading, screens.AutoReading,
	}, names)
}

func TestSearchWorkflowAcrossThreeScreens(t *testing.T) {
	h := newHarness(t)
	h.d.SetSearchTarget("Example Novel")
	h.sched.Advance(0)

	h.visit(app, h.home())
	h.visit(app, testutil.Root(h.searchInput("")))
	h.visit(app, h.results("Another Novel", "Example Novel"))
	h.sched.RunUntilIdle(100)

	assert.Equal(t, []string{screens.MainPage, screens.InputNovelName, screens.FindNovel}, h.acted)
	assert.Equal(t, []agent.Step{
		agent.StepClickMainSearch, agent.StepInputNovelName, agent.StepFindAndClickNovel,
	}, h.d.Session().Steps.Completed())
	assert.Equal(t, []string{
		"click:" + h.cfg.HomeSearchID,
		"focus:" + h.cfg.SearchInputID,
		"set_text:" + h.cfg.SearchInputID,
		"click:row:Example Novel",
	}, h.dev.Ops())
	assert.Equal(t, h.dev.Acquired(), h.dev.Released())
}

func TestHomeNeedsSearchTarget(t *testing.T) {
	h := newHarness(t)
	h.visit(app, h.home())
	h.sched.RunUntilIdle(100)

	assert.Empty(t, h.acted)
	assert.Equal(t, 3, h.dev.Acquired(), "no match is retried up to the bound")
}

func TestSearchButtonNeedsText(t *testing.T) {
	h := newHarness(t)
	screen := func(text string) *snapshot.Node {
		return testutil.Root(h.searchInput(text), testutil.Button(h.cfg.SearchButtonID, "搜索"))
	}

	h.visit(app, screen(""))
	h.sched.RunUntilIdle(100)
	assert.Empty(t, h.acted)

	h.visit(app, screen("Example Novel"))
	assert.Equal(t, []string{screens.SearchNovel}, h.acted)
	assert.True(t, h.d.Session().Steps.IsCompleted(agent.StepClickSearchButton))
}

func TestInputSkipsFieldAlreadyHoldingTarget(t *testing.T) {
	h := newHarness(t)
	h.d.SetSearchTarget("Example Novel")
	h.visit(app, testutil.Root(h.searchInput("Example Novel")))
	h.sched.RunUntilIdle(100)

	assert.Empty(t, h.acted)
	assert.Empty(t, h.dev.Ops())
}

func TestInputRejectsNonEditableField(t *testing.T) {
	h := newHarness(t)
	h.d.SetSearchTarget("Example Novel")
	field := h.searchInput("")
	field.Editable = false
	h.visit(app, testutil.Root(field))
	h.sched.RunUntilIdle(100)

	assert.Empty(t, h.acted)
	assert.False(t, h.d.Session().Steps.IsCompleted(agent.StepInputNovelName))
}

func TestFindNovelScrollsWithinBudget(t *testing.T) {
	h := newHarness(t, func(c *screens.Config) { c.MaxResultScroll = 2 })
	h.d.SetSearchTarget("Example Novel")
	h.visit(app, h.results("Another Novel"))
	h.sched.RunUntilIdle(100)

	assert.Empty(t, h.acted)
	assert.Equal(t, []string{
		"scroll_forward:" + h.cfg.ResultListID,
		"scroll_forward:" + h.cfg.ResultListID,
	}, h.dev.Ops())

	// A new target gets a fresh budget.
	h.d.SetSearchTarget("Example Novel 2")
	h.sched.RunUntilIdle(100)
	assert.Len(t, h.dev.Ops(), 4)
}

func TestFindNovelResubmittedTargetGetsFreshBudget(t *testing.T) {
	h := newHarness(t, func(c *screens.Config) { c.MaxResultScroll = 2 })
	h.d.SetSearchTarget("Example Novel")
	h.visit(app, h.results("Another Novel"))
	h.sched.RunUntilIdle(100)
	require.Len(t, h.dev.Ops(), 2)

	h.d.SetSearchTarget("Example Novel")
	h.visit(app, h.results("Another Novel"))
	h.sched.RunUntilIdle(100)

	assert.Empty(t, h.acted)
	assert.Len(t, h.dev.Ops(), 4)
	assert.Equal(t, "scroll_forward:"+h.cfg.ResultListID, h.dev.Ops()[3])
}

func TestFindNovelAfterScroll(t *testing.T) {
	h := newHarness(t)
	h.d.SetSearchTarget("Example Novel")
	h.dev.OnInput = func(c testutil.Call) {
		if c.Op == "scroll_forward" {
			h.dev.Show(h.results("Another Novel", "Example Novel"))
		}
	}
	h.visit(app, h.results("Another Novel"))
	h.sched.RunUntilIdle(100)

	assert.Equal(t, []string{screens.FindNovel}, h.acted)
	assert.Equal(t, "click:row:Example Novel", h.dev.Ops()[1])
}

func TestAddToHomeDialogTakesPriority(t *testing.T) {
	h := newHarness(t)
	h.d.SetSearchTarget("Example Novel")
	dialog := testutil.Root(
		testutil.Label(h.cfg.AddToHomeTitleID, "Add to Home screen"),
		testutil.Button(h.cfg.AddToHomeCancelID, "Cancel"),
		testutil.Label(h.cfg.HomeCategoryID, "分类"),
		testutil.Button(h.cfg.HomeSearchID, "搜索"),
	)
	h.visit(launcher, dialog)
	assert.Equal(t, []string{screens.AddToHome}, h.acted)
	assert.True(t, h.d.Session().Steps.IsCompleted(agent.StepDismissAddToHome))

	// The dismissal is per screen: the dialog showing up again is handled again.
	h.visit(launcher, dialog)
	assert.Equal(t, []string{screens.AddToHome, screens.AddToHome}, h.acted)
}

func TestPopups(t *testing.T) {
	cfg := screens.Default()
	retentionExit := testutil.Button("", "")
	retentionExit.Description = "坚持退出"
	retentionReward := testutil.Label("", "")
	retentionReward.Description = "领取奖励"

	cases := []struct {
		name    string
		root    *snapshot.Node
		handler string
		op      string
	}{
		{
			name:    "product",
			root:    testutil.Root(testutil.Label(cfg.ProductFeatureID, "推荐"), testutil.Button(cfg.ProductCloseID, "")),
			handler: screens.ProductPopup,
			op:      "click:" + cfg.ProductCloseID,
		},
		{
			name:    "after ad",
			root:    testutil.Root(testutil.Button(cfg.AfterAdCloseID, "知道了")),
			handler: screens.AfterAd,
			op:      "click:" + cfg.AfterAdCloseID,
		},
		{
			name:    "retention",
			root:    testutil.Root(retentionReward, retentionExit),
			handler: screens.AdRetention,
			op:      "click:坚持退出",
		},
		{
			name:    "enter ad",
			root:    testutil.Root(testutil.Button(cfg.EnterAdID, "看视频免广告")),
			handler: screens.EnterAd,
			op:      "click:" + cfg.EnterAdID,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.visit(app, tc.root)
			assert.Equal(t, []string{tc.handler}, h.acted)
			assert.Equal(t, []string{tc.op}, h.dev.Ops())
		})
	}
}

func TestStartReadingClicksClickableRow(t *testing.T) {
	h := newHarness(t)
	row := testutil.Button("start-row", "")
	row.Children = []*snapshot.Node{testutil.Label("", h.cfg.StartReadingText)}
	h.visit(app, testutil.Root(row))

	assert.Equal(t, []string{screens.StartReading}, h.acted)
	assert.Equal(t, []string{"click:start-row"}, h.dev.Ops())
	assert.True(t, h.d.Session().Steps.IsCompleted(agent.StepClickStartReading))
}

func (h *harness) adPage(rewarded bool) *snapshot.Node {
	marker := testutil.Label("", h.cfg.AdMarkerText)
	if !rewarded {
		return testutil.Root(marker, testutil.Label("", "15秒后可领奖励"))
	}
	anchor := testutil.Label("", h.cfg.AdRewardText)
	other := testutil.Label("", "feedback")
	other.Bounds = snapshot.Rect{Left: 600, Top: 200, Right: 700, Bottom: 260}
	closeImg := testutil.Button("ad-close", "")
	closeImg.Kind = h.cfg.AdCloseKind
	closeImg.Bounds = snapshot.Rect{Left: 980, Top: 200, Right: 1040, Bottom: 260}
	bar := &snapshot.Node{
		Kind: "com.lynx.tasm.behavior.ui.view.UIView", Visible: true, Enabled: true,
		Bounds:   snapshot.Rect{Top: 180, Right: 1080, Bottom: 280},
		Children: []*snapshot.Node{anchor, other, closeImg},
	}
	return testutil.Root(marker, bar, testutil.Label("", "奖励"+h.cfg.AdRewardText))
}

func TestAdRewardPollClosesAdOnce(t *testing.T) {
	h := newHarness(t)
	h.visit(app, h.adPage(false))
	require.Equal(t, []string{screens.AdReward}, h.acted)
	assert.True(t, h.d.Session().PollRunning(screens.AdReward))

	// Later checks see the reward.
	h.sched.Advance(2 * h.cfg.AdInterval)
	assert.Empty(t, h.dev.Ops())
	h.dev.Show(h.adPage(true))
	h.sched.Advance(h.cfg.AdInterval)

	assert.Equal(t, []string{"click:ad-close"}, h.dev.Ops())
	assert.False(t, h.d.Session().PollRunning(screens.AdReward))
	h.sched.RunUntilIdle(100)
	assert.Len(t, h.dev.Ops(), 1)
}

func TestAdRewardPollTimesOut(t *testing.T) {
	h := newHarness(t)
	h.visit(app, h.adPage(false))
	before := h.dev.Acquired()
	h.sched.RunUntilIdle(100)

	assert.Equal(t, h.cfg.AdMaxChecks-1, h.dev.Acquired()-before, "first check ran during the visit")
	assert.False(t, h.d.Session().PollRunning(screens.AdReward))
	assert.Empty(t, h.dev.Ops())
}

func TestAdRewardPollEndsWhenAdLeaves(t *testing.T) {
	h := newHarness(t)
	h.visit(app, h.adPage(false))
	h.dev.Show(testutil.Root(testutil.Label("", "chapter text")))
	h.sched.Advance(h.cfg.AdInterval)

	assert.False(t, h.d.Session().PollRunning(screens.AdReward))
}

func TestAutoReadingTurnsPagesUntilModeOff(t *testing.T) {
	h := newHarness(t)
	reading := testutil.Root(testutil.Label(h.cfg.ReadingPageIDs[1], "第一章"))

	h.visit(app, reading)
	h.sched.RunUntilIdle(100)
	assert.Empty(t, h.acted, "auto mode is off")

	h.d.SetAutoMode(true)
	h.sched.Advance(0)
	require.Equal(t, []string{screens.AutoReading}, h.acted)
	assert.True(t, h.d.Session().LoopRunning(screens.PageTurnLoop))
	assert.Equal(t, []string{"swipe"}, h.dev.Ops())

	h.sched.Advance(h.cfg.PageTurnDelays[0])
	assert.Equal(t, []string{"swipe", "swipe"}, h.dev.Ops())
	calls := h.dev.Calls()
	assert.Equal(t, float64(h.dev.Width)*h.cfg.PageTurn.FromX, calls[0].Points[0].X)

	h.d.SetAutoMode(false)
	h.sched.Advance(time.Minute)
	assert.Len(t, h.dev.Ops(), 2)
	assert.False(t, h.d.Session().LoopRunning(screens.PageTurnLoop))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, screens.Default().Validate())

	cases := map[string]func(*screens.Config){
		"no ad checks":      func(c *screens.Config) { c.AdMaxChecks = 0 },
		"no ad interval":    func(c *screens.Config) { c.AdInterval = 0 },
		"no reward markers": func(c *screens.Config) { c.AdRewardMarkers = 0 },
		"no failure bound":  func(c *screens.Config) { c.PageTurnMaxFailure = 0 },
		"no page delays":    func(c *screens.Config) { c.PageTurnDelays = nil },
		"zero page delay":   func(c *screens.Config) { c.PageTurnDelays = []time.Duration{0} },
		"no reading ids":    func(c *screens.Config) { c.ReadingPageIDs = nil },
		"negative scrolls":  func(c *screens.Config) { c.MaxResultScroll = -1 },
		"no retry interval": func(c *screens.Config) { c.PageTurnRetry = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := screens.Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
