package browser

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/polzovatel/reader-autopilot/internal/snapshot"
)

// walkScript serializes the visible DOM as a tree. Text is the element's own
// text nodes only, so a label never repeats its children's text. Elements can
// pin their id and kind with data-testid and data-kind.
const walkScript = `(limit) => {
	let count = 0;
	function ownText(el) {
		if (el.tagName === "INPUT" || el.tagName === "TEXTAREA") return el.value || "";
		let t = "";
		for (const c of el.childNodes) {
			if (c.nodeType === Node.TEXT_NODE) t += c.textContent;
		}
		return t.trim();
	}
	function clickable(el, style) {
		const tag = el.tagName;
		if (tag === "A" || tag === "BUTTON") return true;
		const role = el.getAttribute("role");
		if (role === "button" || role === "link" || role === "tab") return true;
		if (el.hasAttribute("onclick") || el.hasAttribute("data-clickable")) return true;
		return style.cursor === "pointer";
	}
	function editable(el) {
		if (el.isContentEditable) return true;
		if (el.tagName === "TEXTAREA") return !el.readOnly && !el.disabled;
		if (el.tagName !== "INPUT") return false;
		const type = (el.getAttribute("type") || "text").toLowerCase();
		return ["text", "search", "email", "url", "tel", "password", "number"].includes(type) && !el.readOnly && !el.disabled;
	}
	function scrollable(el, style) {
		const y = style.overflowY;
		return (y === "auto" || y === "scroll") && el.scrollHeight > el.clientHeight;
	}
	function walk(el, path) {
		if (count >= limit) return null;
		count++;
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		const visible = style.display !== "none" && style.visibility !== "hidden" && rect.width > 0 && rect.height > 0;
		const node = {
			id: el.getAttribute("data-testid") || el.id || "",
			text: ownText(el),
			description: el.getAttribute("aria-label") || "",
			kind: el.getAttribute("data-kind") || el.tagName.toLowerCase(),
			x: rect.x, y: rect.y, width: rect.width, height: rect.height,
			clickable: clickable(el, style),
			enabled: !el.disabled && el.getAttribute("aria-disabled") !== "true",
			visible: visible,
			editable: editable(el),
			focusable: el.tabIndex >= 0,
			scrollable: scrollable(el, style),
			path: path,
			children: []
		};
		let i = 0;
		for (const c of el.children) {
			i++;
			if (c.tagName === "SCRIPT" || c.tagName === "STYLE") continue;
			const child = walk(c, path + " > " + c.tagName.toLowerCase() + ":nth-child(" + i + ")");
			if (child) node.children.push(child);
		}
		return node;
	}
	if (!document.body) return null;
	return walk(document.body, "body");
}`

type rawNode struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Clickable   bool       `json:"clickable"`
	Enabled     bool       `json:"enabled"`
	Visible     bool       `json:"visible"`
	Editable    bool       `json:"editable"`
	Focusable   bool       `json:"focusable"`
	Scrollable  bool       `json:"scrollable"`
	Path        string     `json:"path"`
	Children    []*rawNode `json:"children"`
}

// decodeTree converts the value returned by Evaluate. A nil value means the
// page had no body yet.
func decodeTree(val any) (*snapshot.Node, error) {
	if val == nil {
		return nil, nil
	}
	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("encode dom tree: %w", err)
	}
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode dom tree: %w", err)
	}
	return parseTree(&raw), nil
}

func parseTree(r *rawNode) *snapshot.Node {
	if r == nil {
		return nil
	}
	left, top := int(math.Round(r.X)), int(math.Round(r.Y))
	n := &snapshot.Node{
		ID:          r.ID,
		Text:        r.Text,
		Description: r.Description,
		Kind:        r.Kind,
		Bounds: snapshot.Rect{
			Left:   left,
			Top:    top,
			Right:  left + int(math.Round(r.Width)),
			Bottom: top + int(math.Round(r.Height)),
		},
		Clickable:  r.Clickable,
		Enabled:    r.Enabled,
		Visible:    r.Visible,
		Editable:   r.Editable,
		Focusable:  r.Focusable,
		Scrollable: r.Scrollable,
		Handle:     r.Path,
	}
	for _, c := range r.Children {
		if child := parseTree(c); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}
