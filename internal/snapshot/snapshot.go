package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoSnapshot is returned by devices when the active window has no readable tree.
var ErrNoSnapshot = errors.New("no snapshot available")

// Rect is a node's bounds in screen coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the rect cannot be tapped.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Center returns the midpoint, used for gesture taps.
func (r Rect) Center() (int, int) {
	return r.Left + r.Width()/2, r.Top + r.Height()/2
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

// Node describes one element of the screen tree.
type Node struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Bounds      Rect   `json:"bounds"`

	Clickable  bool `json:"clickable"`
	Enabled    bool `json:"enabled"`
	Visible    bool `json:"visible"`
	Editable   bool `json:"editable"`
	Focusable  bool `json:"focusable"`
	Scrollable bool `json:"scrollable"`

	// Handle lets the device address the node again (css path, view path...).
	Handle string `json:"handle"`

	Children []*Node `json:"children"`

	parent *Node
}

// Parent returns nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Label is the display text, falling back to the accessible description.
func (n *Node) Label() string {
	if n == nil {
		return ""
	}
	if n.Text != "" {
		return n.Text
	}
	return n.Description
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("kind=%s id=%s text=%q bounds=%s", n.Kind, n.ID, truncate(n.Label(), 40), n.Bounds)
}

// Snapshot is a point-in-time view of the active window. It is only valid
// for the dispatch attempt that acquired it.
type Snapshot struct {
	Source string
	Root   *Node

	releaseOnce sync.Once
	release     func()
}

// New links parent pointers under root and wraps it. release may be nil.
func New(source string, root *Node, release func()) *Snapshot {
	link(root, nil)
	return &Snapshot{Source: source, Root: root, release: release}
}

func link(n, parent *Node) {
	if n == nil {
		return
	}
	n.parent = parent
	for _, c := range n.Children {
		link(c, n)
	}
}

// Release frees device resources held by the snapshot. Safe to call twice.
func (s *Snapshot) Release() {
	if s == nil {
		return
	}
	s.releaseOnce.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Find returns all nodes matching pred in pre-order.
func (s *Snapshot) Find(pred Predicate) []*Node {
	if s == nil || s.Root == nil || pred == nil {
		return nil
	}
	var out []*Node
	walk(s.Root, func(n *Node) {
		if pred.Match(n) {
			out = append(out, n)
		}
	})
	return out
}

// First returns the first match or nil.
func (s *Snapshot) First(pred Predicate) *Node {
	if s == nil || s.Root == nil || pred == nil {
		return nil
	}
	return first(s.Root, pred)
}

// Has reports whether any node matches.
func (s *Snapshot) Has(pred Predicate) bool {
	return s.First(pred) != nil
}

// Count returns the number of matches.
func (s *Snapshot) Count(pred Predicate) int {
	return len(s.Find(pred))
}

func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		if c != nil {
			walk(c, fn)
		}
	}
}

func first(n *Node, pred Predicate) *Node {
	if pred.Match(n) {
		return n
	}
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if found := first(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
