package snapshot

import (
	"fmt"
	"strings"
)

// Predicate selects nodes of a snapshot.
type Predicate interface {
	Match(n *Node) bool
	String() string
}

type predicate struct {
	desc  string
	match func(n *Node) bool
}

func (p predicate) Match(n *Node) bool { return n != nil && p.match(n) }
func (p predicate) String() string     { return p.desc }

// ByID matches the resource identifier exactly.
func ByID(id string) Predicate {
	return predicate{
		desc:  fmt.Sprintf("id=%s", id),
		match: func(n *Node) bool { return id != "" && n.ID == id },
	}
}

// ByTextExact matches the display text exactly. Nodes without display text
// are compared on their description instead.
func ByTextExact(text string) Predicate {
	return predicate{
		desc:  fmt.Sprintf("text==%q", text),
		match: func(n *Node) bool { return text != "" && n.Label() == text },
	}
}

// ByTextContains matches a substring of the display text.
func ByTextContains(text string) Predicate {
	return predicate{
		desc:  fmt.Sprintf("text~%q", text),
		match: func(n *Node) bool { return text != "" && strings.Contains(n.Text, text) },
	}
}

// ByDescriptionContains matches a substring of the accessible description.
func ByDescriptionContains(text string) Predicate {
	return predicate{
		desc:  fmt.Sprintf("desc~%q", text),
		match: func(n *Node) bool { return text != "" && strings.Contains(n.Description, text) },
	}
}

// ByKind matches the element class.
func ByKind(kind string) Predicate {
	return predicate{
		desc:  fmt.Sprintf("kind=%s", kind),
		match: func(n *Node) bool { return kind != "" && n.Kind == kind },
	}
}

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		parts = append(parts, p.String())
	}
	return predicate{
		desc: strings.Join(parts, " && "),
		match: func(n *Node) bool {
			for _, p := range preds {
				if !p.Match(n) {
					return false
				}
			}
			return true
		},
	}
}

// NextSiblingOfKind returns the first sibling after anchor whose kind equals
// kind. Nodes carry no identity, so the anchor is located among its parent's
// children by bounds and kind. A nil result is a normal outcome.
func NextSiblingOfKind(anchor *Node, kind string) *Node {
	if anchor == nil || kind == "" {
		return nil
	}
	parent := anchor.Parent()
	if parent == nil {
		return nil
	}
	idx := -1
	for i, c := range parent.Children {
		if c != nil && c.Bounds == anchor.Bounds && c.Kind == anchor.Kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, c := range parent.Children[idx+1:] {
		if c != nil && c.Kind == kind {
			return c
		}
	}
	return nil
}

// ClickableAncestor walks up from n (inclusive) to the first clickable node.
func ClickableAncestor(n *Node) *Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Clickable {
			return cur
		}
	}
	return nil
}
