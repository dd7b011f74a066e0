package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adTree() *Snapshot {
	claimed := &Node{Kind: "text", Text: "领取成功", Bounds: Rect{0, 0, 100, 40}}
	other := &Node{Kind: "text", Text: "领取成功", Bounds: Rect{0, 50, 100, 90}}
	label := &Node{Kind: "text", Text: "广告", Bounds: Rect{110, 0, 150, 40}}
	closeImg := &Node{Kind: "image", Description: "close", Bounds: Rect{160, 0, 200, 40}, Clickable: true, Visible: true, Enabled: true}
	row := &Node{Kind: "row", Children: []*Node{other, claimed, label, closeImg}}
	return New("reader", &Node{Kind: "root", Children: []*Node{row}}, nil)
}

func TestFindPredicates(t *testing.T) {
	title := &Node{ID: "book:title", Text: "Example Novel", Kind: "text"}
	card := &Node{ID: "book:card", Kind: "card", Clickable: true, Children: []*Node{title}}
	icon := &Node{Kind: "button", Description: "领取奖励 now"}
	snap := New("reader", &Node{Kind: "root", Children: []*Node{card, icon}}, nil)

	tests := []struct {
		name string
		pred Predicate
		want int
	}{
		{"by id", ByID("book:title"), 1},
		{"by id miss", ByID("nope"), 0},
		{"exact text", ByTextExact("Example Novel"), 1},
		{"exact text no partial", ByTextExact("Example"), 0},
		{"exact text falls back to description", ByTextExact("领取奖励 now"), 1},
		{"contains text", ByTextContains("Novel"), 1},
		{"contains description", ByDescriptionContains("领取奖励"), 1},
		{"empty needle never matches", ByTextContains(""), 0},
		{"kind", ByKind("card"), 1},
		{"all", All(ByKind("text"), ByTextContains("Example")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, snap.Find(tt.pred), tt.want)
			assert.Equal(t, tt.want > 0, snap.Has(tt.pred))
		})
	}
}

func TestParentLinks(t *testing.T) {
	snap := adTree()
	row := snap.Root.Child(0)
	require.NotNil(t, row)
	assert.Same(t, snap.Root, row.Parent())
	assert.Same(t, row, row.Child(1).Parent())
	assert.Nil(t, snap.Root.Parent())
	assert.Nil(t, row.Child(9))
}

func TestNextSiblingOfKind(t *testing.T) {
	snap := adTree()
	anchor := snap.First(All(ByTextExact("领取成功"), ByKind("text")))
	require.NotNil(t, anchor)

	got := NextSiblingOfKind(anchor, "image")
	require.NotNil(t, got)
	assert.Equal(t, "close", got.Description)

	assert.Nil(t, NextSiblingOfKind(anchor, "video"), "no match after scanning is not an error")
	assert.Nil(t, NextSiblingOfKind(snap.Root, "image"), "root has no parent")
	assert.Nil(t, NextSiblingOfKind(nil, "image"))
}

func TestNextSiblingOfKindLocatesAnchorByBounds(t *testing.T) {
	img1 := &Node{Kind: "image", Description: "before"}
	anchor := &Node{Kind: "text", Text: "x", Bounds: Rect{10, 10, 20, 20}}
	img2 := &Node{Kind: "image", Description: "after"}
	New("s", &Node{Children: []*Node{img1, anchor, img2}}, nil)

	// A copy with equal bounds and kind resolves to the same index.
	clone := *anchor
	clone.parent = anchor.Parent()
	got := NextSiblingOfKind(&clone, "image")
	require.NotNil(t, got)
	assert.Equal(t, "after", got.Description)
}

func TestClickableAncestor(t *testing.T) {
	snap := adTree()
	title := snap.First(ByTextExact("广告"))
	assert.Nil(t, ClickableAncestor(title))

	closeImg := snap.First(ByDescriptionContains("close"))
	assert.Same(t, closeImg, ClickableAncestor(closeImg))
}

func TestReleaseOnce(t *testing.T) {
	calls := 0
	snap := New("s", &Node{}, func() { calls++ })
	snap.Release()
	snap.Release()
	assert.Equal(t, 1, calls)

	var nilSnap *Snapshot
	assert.NotPanics(t, nilSnap.Release)
	assert.Empty(t, nilSnap.Find(ByKind("x")))
}

func TestRect(t *testing.T) {
	r := Rect{Left: 10, Top: 20, Right: 110, Bottom: 60}
	x, y := r.Center()
	assert.Equal(t, 60, x)
	assert.Equal(t, 40, y)
	assert.False(t, r.Empty())
	assert.True(t, Rect{}.Empty())
}
