// Package testutil holds a scripted Device used by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
	"github.com/polzovatel/reader-autopilot/internal/tools"
)

// Call records one device interaction.
type Call struct {
	Op     string
	Node   string
	Arg    string
	Points []tools.Point
}

// Device serves snapshots from Screen and records every input it receives.
type Device struct {
	mu sync.Mutex

	// Screen builds the tree for the next acquisition; nil means no snapshot.
	Screen func() *snapshot.Node
	Source string
	Width  int
	Height int

	// Fail makes the named operation ("click", "focus", "set_text",
	// "scroll_forward", "tap", "swipe") return an error.
	Fail map[string]bool

	// OnInput runs after each recorded input, e.g. to switch screens.
	OnInput func(c Call)

	acquired int
	released int
	calls    []Call
}

func NewDevice() *Device {
	return &Device{Source: "com.dragon.read", Width: 1080, Height: 2400, Fail: map[string]bool{}}
}

// Show replaces the current screen with a fixed tree.
func (d *Device) Show(root *snapshot.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if root == nil {
		d.Screen = nil
		return
	}
	d.Screen = func() *snapshot.Node { return root }
}

func (d *Device) AcquireSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquired++
	if d.Screen == nil {
		return nil, snapshot.ErrNoSnapshot
	}
	root := d.Screen()
	if root == nil {
		return nil, snapshot.ErrNoSnapshot
	}
	return snapshot.New(d.Source, root, func() {
		d.mu.Lock()
		d.released++
		d.mu.Unlock()
	}), nil
}

func (d *Device) Perform(ctx context.Context, node *snapshot.Node, action tools.Action, arg string) error {
	return d.record(Call{Op: string(action), Node: nodeKey(node), Arg: arg})
}

func (d *Device) Tap(ctx context.Context, at tools.Point) error {
	return d.record(Call{Op: "tap", Points: []tools.Point{at}})
}

func (d *Device) Swipe(ctx context.Context, from, to tools.Point, duration time.Duration) error {
	return d.record(Call{Op: "swipe", Arg: duration.String(), Points: []tools.Point{from, to}})
}

func (d *Device) ScreenSize(ctx context.Context) (int, int, error) {
	return d.Width, d.Height, nil
}

func (d *Device) record(c Call) error {
	d.mu.Lock()
	fail := d.Fail[c.Op]
	if !fail {
		d.calls = append(d.calls, c)
	}
	hook := d.OnInput
	d.mu.Unlock()
	if fail {
		return fmt.Errorf("%s rejected", c.Op)
	}
	if hook != nil {
		hook(c)
	}
	return nil
}

// Calls returns the successful inputs so far.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns "op:node" strings for successful inputs.
func (d *Device) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		if c.Node != "" {
			out = append(out, c.Op+":"+c.Node)
		} else {
			out = append(out, c.Op)
		}
	}
	return out
}

// Acquired is the number of snapshot acquisitions, including failed ones.
func (d *Device) Acquired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

// Released is the number of snapshots released.
func (d *Device) Released() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func nodeKey(n *snapshot.Node) string {
	if n == nil {
		return ""
	}
	if n.ID != "" {
		return n.ID
	}
	return n.Label()
}

// Button is a visible, enabled, clickable node.
func Button(id, text string) *snapshot.Node {
	return &snapshot.Node{
		ID: id, Text: text, Kind: "android.widget.Button",
		Bounds:    snapshot.Rect{Left: 100, Top: 100, Right: 300, Bottom: 180},
		Clickable: true, Enabled: true, Visible: true,
	}
}

// Label is a visible, non-clickable text node.
func Label(id, text string) *snapshot.Node {
	return &snapshot.Node{
		ID: id, Text: text, Kind: "android.widget.TextView",
		Bounds:  snapshot.Rect{Left: 100, Top: 200, Right: 500, Bottom: 260},
		Enabled: true, Visible: true,
	}
}

// Root wraps children in a frame layout.
func Root(children ...*snapshot.Node) *snapshot.Node {
	return &snapshot.Node{
		Kind:     "android.widget.FrameLayout",
		Bounds:   snapshot.Rect{Right: 1080, Bottom: 2400},
		Visible:  true,
		Enabled:  true,
		Children: children,
	}
}
