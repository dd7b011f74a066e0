package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

// frameInterval approximates one display frame; swipes move once per frame.
const frameInterval = 16 * time.Millisecond

var errNoHandle = errors.New("node has no handle")

const scrollScript = `(el) => {
	const before = el.scrollTop;
	el.scrollBy({top: Math.max(el.clientHeight * 0.8, 100), left: 0, behavior: "auto"});
	return el.scrollTop !== before;
}`

// Perform runs a node-level action. Errors are returned as-is; the caller
// decides whether to fall back to a gesture.
func (d *Device) Perform(ctx context.Context, node *snapshot.Node, action tools.Action, arg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if node == nil || node.Handle == "" {
		return errNoHandle
	}
	loc := d.page.Locator(node.Handle).First()
	switch action {
	case tools.ActionClick:
		return wrap(loc.Click())
	case tools.ActionFocus:
		return wrap(loc.Focus())
	case tools.ActionSetText:
		return wrap(loc.Fill(arg))
	case tools.ActionScrollForward:
		moved, err := loc.Evaluate(scrollScript, nil)
		if err != nil {
			return wrap(err)
		}
		if ok, _ := moved.(bool); !ok {
			return fmt.Errorf("scroll forward: %s is at its end", node.Handle)
		}
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func (d *Device) Tap(ctx context.Context, at tools.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(d.page.Mouse().Click(at.X, at.Y))
}

// Swipe drags the primary pointer from one point to another over roughly
// duration. The page sees it as a touch-style drag.
func (d *Device) Swipe(ctx context.Context, from, to tools.Point, duration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mouse := d.page.Mouse()
	if err := mouse.Move(from.X, from.Y); err != nil {
		return wrap(err)
	}
	if err := mouse.Down(); err != nil {
		return wrap(err)
	}
	if err := mouse.Move(to.X, to.Y, playwright.MouseMoveOptions{Steps: playwright.Int(swipeSteps(duration))}); err != nil {
		_ = mouse.Up()
		return wrap(err)
	}
	return wrap(mouse.Up())
}

func swipeSteps(duration time.Duration) int {
	steps := int(duration / frameInterval)
	if steps < 1 {
		return 1
	}
	return steps
}
