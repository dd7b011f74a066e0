package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

// Action is a node-level operation the device performs natively.
type Action string

const (
	ActionClick         Action = "click"
	ActionFocus         Action = "focus"
	ActionSetText       Action = "set_text"
	ActionScrollForward Action = "scroll_forward"
)

// Point is a screen coordinate.
type Point struct {
	X, Y float64
}

// Device is the host platform: it reads the active window and injects input.
// Implementations never retry internally.
type Device interface {
	AcquireSnapshot(ctx context.Context) (*snapshot.Snapshot, error)
	Perform(ctx context.Context, node *snapshot.Node, action Action, arg string) error
	Tap(ctx context.Context, at Point) error
	Swipe(ctx context.Context, from, to Point, duration time.Duration) error
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// Gesture is a swipe expressed in screen fractions so it survives any
// resolution.
type Gesture struct {
	Name     string
	FromX    float64
	FromY    float64
	ToX      float64
	ToY      float64
	Duration time.Duration
}

var (
	// SwipeLeft turns a page; it stays clear of the screen edges.
	SwipeLeft = Gesture{Name: "swipe_left", FromX: 0.85, FromY: 0.5, ToX: 0.15, ToY: 0.5, Duration: 500 * time.Millisecond}
	// SwipeUp scrolls content down.
	SwipeUp = Gesture{Name: "swipe_up", FromX: 0.5, FromY: 0.8, ToX: 0.5, ToY: 0.2, Duration: 350 * time.Millisecond}
)

// Actions are the primitives handlers call. Every method reports whether the
// action was initiated; none of them retries.
type Actions struct {
	dev    Device
	logger zerolog.Logger
}

func New(dev Device, logger zerolog.Logger) *Actions {
	return &Actions{dev: dev, logger: logger}
}

// Device returns the underlying device.
func (a *Actions) Device() Device { return a.dev }

// Click prefers the native click and falls back to a tap on the node's center.
func (a *Actions) Click(ctx context.Context, node *snapshot.Node) bool {
	if node == nil {
		a.logger.Warn().Msg("click: nil node")
		return false
	}
	if !node.Visible {
		a.logger.Warn().Str("node", node.String()).Msg("click: node not visible")
		return false
	}
	if !node.Enabled {
		a.logger.Warn().Str("node", node.String()).Msg("click: node not enabled")
		return false
	}
	if node.Clickable {
		err := a.dev.Perform(ctx, node, ActionClick, "")
		if err == nil {
			a.logger.Info().Str("node", node.String()).Msg("click: native click")
			return true
		}
		a.logger.Warn().Err(err).Str("node", node.String()).Msg("click: native click failed, falling back to tap")
	}
	return a.tapCenter(ctx, node)
}

// SetText focuses an editable node (focus, then click, then tap) and sets its text.
func (a *Actions) SetText(ctx context.Context, node *snapshot.Node, text string) bool {
	if node == nil {
		a.logger.Warn().Msg("set text: nil node")
		return false
	}
	if !node.Editable {
		a.logger.Warn().Str("node", node.String()).Msg("set text: node not editable")
		return false
	}
	if !a.focus(ctx, node) {
		a.logger.Error().Str("node", node.String()).Msg("set text: could not focus node")
		return false
	}
	if err := a.dev.Perform(ctx, node, ActionSetText, text); err != nil {
		a.logger.Error().Err(err).Str("node", node.String()).Msg("set text failed")
		return false
	}
	a.logger.Info().Str("node", node.String()).Str("text", text).Msg("set text")
	return true
}

// Swipe performs g scaled to the current screen.
func (a *Actions) Swipe(ctx context.Context, g Gesture) bool {
	if g.Duration <= 0 {
		a.logger.Warn().Str("gesture", g.Name).Msg("swipe: duration must be positive")
		return false
	}
	w, h, err := a.dev.ScreenSize(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str("gesture", g.Name).Msg("swipe: screen size unavailable")
		return false
	}
	from := Point{X: float64(w) * g.FromX, Y: float64(h) * g.FromY}
	to := Point{X: float64(w) * g.ToX, Y: float64(h) * g.ToY}
	if err := a.dev.Swipe(ctx, from, to, g.Duration); err != nil {
		a.logger.Warn().Err(err).Str("gesture", g.Name).Msg("swipe failed")
		return false
	}
	a.logger.Debug().
		Str("gesture", g.Name).
		Str("from", fmt.Sprintf("%.0f,%.0f", from.X, from.Y)).
		Str("to", fmt.Sprintf("%.0f,%.0f", to.X, to.Y)).
		Msg("swipe")
	return true
}

// ScrollForward scrolls a list natively when it can, otherwise swipes up.
func (a *Actions) ScrollForward(ctx context.Context, list *snapshot.Node) bool {
	if list != nil && list.Scrollable {
		err := a.dev.Perform(ctx, list, ActionScrollForward, "")
		if err == nil {
			return true
		}
		a.logger.Warn().Err(err).Msg("scroll forward failed, falling back to swipe")
	}
	return a.Swipe(ctx, SwipeUp)
}

func (a *Actions) focus(ctx context.Context, node *snapshot.Node) bool {
	if err := a.dev.Perform(ctx, node, ActionFocus, ""); err == nil {
		return true
	}
	if err := a.dev.Perform(ctx, node, ActionClick, ""); err == nil {
		return true
	}
	// A tap is asynchronous; this only tells us it was dispatched.
	return a.tapCenter(ctx, node)
}

func (a *Actions) tapCenter(ctx context.Context, node *snapshot.Node) bool {
	if node.Bounds.Empty() {
		a.logger.Error().Str("node", node.String()).Msg("tap: invalid bounds")
		return false
	}
	x, y := node.Bounds.Center()
	if err := a.dev.Tap(ctx, Point{X: float64(x), Y: float64(y)}); err != nil {
		a.logger.Warn().Err(err).Int("x", x).Int("y", y).Msg("tap failed")
		return false
	}
	a.logger.Info().Int("x", x).Int("y", y).Msg("tap")
	return true
}
