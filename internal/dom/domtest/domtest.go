// Package domtest is an in-memory dom.Page with a virtual clock. Nodes carry
// explicit boxes so geometric heuristics can be exercised without a browser.
package domtest

import (
	"fmt"
	"html"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
)

// Clock is a manually advanced clock. Page.Wait advances it instead of
// sleeping.
type Clock struct {
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Node is one fake element.
type Node struct {
	Tag    string
	ID     string
	Class  string
	Text   string
	Value  string
	Attrs  map[string]string
	Box    *dom.Box
	Hidden bool

	// OnClick runs for forced and dispatched clicks.
	OnClick func(n *Node)
	// ClickErr makes forced clicks fail, as when another element
	// intercepts the pointer event.
	ClickErr error

	Clicks     int
	Dispatches int

	children []*Node
	parent   *Node
}

// Append adds children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children[:0]
	for _, c := range n.parent.children {
		if c != n {
			siblings = append(siblings, c)
		}
	}
	n.parent.children = siblings
	n.parent = nil
}

// Find returns the first descendant matching selector, or nil.
func (n *Node) Find(selector string) *Node {
	found := n.query(selector, 1)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

func (n *Node) visible() bool {
	if n.Box == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur.Hidden {
			return false
		}
	}
	return true
}

func (n *Node) innerText() string {
	if n.Hidden {
		return ""
	}
	var parts []string
	if t := strings.TrimSpace(n.Text); t != "" {
		parts = append(parts, t)
	}
	for _, c := range n.children {
		if t := c.innerText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (n *Node) walk(fn func(*Node) bool) bool {
	for _, c := range n.children {
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

func (n *Node) query(selector string, limit int) []*Node {
	sels := parseSelectors(selector)
	var out []*Node
	n.walk(func(c *Node) bool {
		for _, s := range sels {
			if s.matches(c) {
				out = append(out, c)
				break
			}
		}
		return limit <= 0 || len(out) < limit
	})
	return out
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

var selectorPart = regexp.MustCompile(`[#.]?[A-Za-z0-9_-]+`)

func parseSelectors(selector string) []simpleSelector {
	var out []simpleSelector
	for _, raw := range strings.Split(selector, ",") {
		var s simpleSelector
		for _, part := range selectorPart.FindAllString(strings.TrimSpace(raw), -1) {
			switch part[0] {
			case '#':
				s.id = part[1:]
			case '.':
				s.classes = append(s.classes, part[1:])
			default:
				s.tag = strings.ToLower(part)
			}
		}
		out = append(out, s)
	}
	return out
}

func (s simpleSelector) matches(n *Node) bool {
	if s.tag != "" && s.tag != strings.ToLower(n.Tag) {
		return false
	}
	if s.id != "" && s.id != n.ID {
		return false
	}
	have := strings.Fields(n.Class)
	for _, want := range s.classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Page is a fake dom.Page rooted at Root.
type Page struct {
	Root     *Node
	Embedded []*Node
	Clock    *Clock

	// OnWait runs after every Wait with the advanced clock time.
	OnWait func(now time.Time)
	// NavigateErr is returned by Navigate when set.
	NavigateErr error

	Navigations []string
	Screenshots []string
	Waited      time.Duration
}

func NewPage(root *Node, clock *Clock) *Page {
	return &Page{Root: root, Clock: clock}
}

func (p *Page) Navigate(url string, timeout time.Duration) error {
	p.Navigations = append(p.Navigations, url)
	return p.NavigateErr
}

func (p *Page) Frames() []dom.Frame {
	frames := []dom.Frame{frame{root: p.Root}}
	for _, f := range p.Embedded {
		frames = append(frames, frame{root: f})
	}
	return frames
}

func (p *Page) FindText(text string) (dom.Element, error) {
	var hit *Node
	p.Root.walk(func(n *Node) bool {
		if strings.Contains(n.Text, text) {
			hit = n
			return false
		}
		return true
	})
	if hit == nil {
		return nil, nil
	}
	return &element{n: hit}, nil
}

func (p *Page) Query(selector string, limit int) ([]dom.Element, error) {
	return wrap(p.Root.query(selector, limit)), nil
}

func (p *Page) Wait(d time.Duration) {
	p.Waited += d
	p.Clock.Advance(d)
	if p.OnWait != nil {
		p.OnWait(p.Clock.Now())
	}
}

func (p *Page) Screenshot(path string) error {
	p.Screenshots = append(p.Screenshots, path)
	return os.WriteFile(path, []byte("fake png"), 0o644)
}

func (p *Page) Content() (string, error) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, c := range p.Root.children {
		render(&b, c)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func render(b *strings.Builder, n *Node) {
	fmt.Fprintf(b, "<%s", n.Tag)
	if n.ID != "" {
		fmt.Fprintf(b, ` id="%s"`, html.EscapeString(n.ID))
	}
	if n.Class != "" {
		fmt.Fprintf(b, ` class="%s"`, html.EscapeString(n.Class))
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, ` %s="%s"`, k, html.EscapeString(n.Attrs[k]))
	}
	b.WriteString(">")
	b.WriteString(html.EscapeString(n.Text))
	for _, c := range n.children {
		render(b, c)
	}
	fmt.Fprintf(b, "</%s>", n.Tag)
}

type frame struct {
	root *Node
}

func (f frame) ButtonByName(name string) dom.Element {
	for _, b := range f.root.query("button", 0) {
		label := b.Attrs["aria-label"]
		if label == "" {
			label = b.innerText()
		}
		if strings.EqualFold(strings.TrimSpace(label), name) {
			return &element{n: b}
		}
	}
	return nil
}

func (f frame) ButtonWithText(pattern *regexp.Regexp) dom.Element {
	for _, b := range f.root.query("button", 0) {
		if pattern.MatchString(b.innerText()) {
			return &element{n: b}
		}
	}
	return nil
}

type element struct {
	n *Node
}

// Wrap returns the dom.Element handle for n.
func Wrap(n *Node) dom.Element {
	return &element{n: n}
}

func wrap(nodes []*Node) []dom.Element {
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{n: n})
	}
	return out
}

func (e *element) Query(selector string, limit int) ([]dom.Element, error) {
	return wrap(e.n.query(selector, limit)), nil
}

func (e *element) Count(selector string) (int, error) {
	return len(e.n.query(selector, 0)), nil
}

func (e *element) Ancestors(limit int) ([]dom.Element, error) {
	var out []dom.Element
	for cur := e.n.parent; cur != nil && len(out) < limit; cur = cur.parent {
		switch strings.ToLower(cur.Tag) {
		case "div", "li", "tr":
			out = append(out, &element{n: cur})
		}
	}
	return out, nil
}

func (e *element) ContainsText(text string) (bool, error) {
	found := false
	e.n.walk(func(c *Node) bool {
		if strings.Contains(c.Text, text) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (e *element) IsVisible() (bool, error) {
	return e.n.visible(), nil
}

func (e *element) BoundingBox() (*dom.Box, error) {
	if !e.n.visible() {
		return nil, nil
	}
	b := *e.n.Box
	return &b, nil
}

func (e *element) Attribute(name string) (string, error) {
	return e.n.Attrs[name], nil
}

func (e *element) InputValue() (string, error) {
	if !strings.EqualFold(e.n.Tag, "input") {
		return "", fmt.Errorf("not an input element: %s", e.n.Tag)
	}
	return e.n.Value, nil
}

func (e *element) InnerText() (string, error) {
	return e.n.innerText(), nil
}

func (e *element) ScrollIntoView() error {
	return nil
}

func (e *element) Click(timeout time.Duration) error {
	e.n.Clicks++
	if e.n.ClickErr != nil {
		return e.n.ClickErr
	}
	if e.n.OnClick != nil {
		e.n.OnClick(e.n)
	}
	return nil
}

func (e *element) DispatchClick() error {
	e.n.Dispatches++
	if e.n.OnClick != nil {
		e.n.OnClick(e.n)
	}
	return nil
}
