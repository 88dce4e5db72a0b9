package browser

import (
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/termin-watch/internal/dom"
)

const ancestorXPath = "xpath=ancestor::*[self::div or self::li or self::tr]"

// Page adapts a playwright page to dom.Page.
type Page struct {
	page playwright.Page
	t    timeouts
}

func NewPage(page playwright.Page, opts *Options) *Page {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Page{page: page, t: timeoutsFrom(opts)}
}

// timeouts bound element reads and scrolls, which would otherwise wait for
// the page default when the element detaches or never renders.
type timeouts struct {
	read   float64
	scroll float64
}

// timeoutsFrom falls back to the defaults for unset values; playwright
// reads a zero timeout as "wait forever".
func timeoutsFrom(opts *Options) timeouts {
	def := DefaultOptions()
	read, scroll := opts.ReadTimeout, opts.ScrollTimeout
	if read <= 0 {
		read = def.ReadTimeout
	}
	if scroll <= 0 {
		scroll = def.ScrollTimeout
	}
	return timeouts{
		read:   float64(read.Milliseconds()),
		scroll: float64(scroll.Milliseconds()),
	}
}

func (t timeouts) innerText() playwright.LocatorInnerTextOptions {
	return playwright.LocatorInnerTextOptions{Timeout: playwright.Float(t.read)}
}

func (t timeouts) inputValue() playwright.LocatorInputValueOptions {
	return playwright.LocatorInputValueOptions{Timeout: playwright.Float(t.read)}
}

func (t timeouts) attribute() playwright.LocatorGetAttributeOptions {
	return playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(t.read)}
}

func (t timeouts) boundingBox() playwright.LocatorBoundingBoxOptions {
	return playwright.LocatorBoundingBoxOptions{Timeout: playwright.Float(t.read)}
}

func (t timeouts) scrollIntoView() playwright.LocatorScrollIntoViewIfNeededOptions {
	return playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: playwright.Float(t.scroll)}
}

func (t timeouts) evaluate() playwright.LocatorEvaluateOptions {
	return playwright.LocatorEvaluateOptions{Timeout: playwright.Float(t.scroll)}
}

func (p *Page) Navigate(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *Page) Frames() []dom.Frame {
	frames := uniqueFrames(p.page.MainFrame(), p.page.Frames())
	out := make([]dom.Frame, 0, len(frames))
	for _, f := range frames {
		out = append(out, &frame{frame: f, t: p.t})
	}
	return out
}

// uniqueFrames returns main followed by every other frame once.
func uniqueFrames(main playwright.Frame, all []playwright.Frame) []playwright.Frame {
	seen := make(map[playwright.Frame]bool, len(all)+1)
	out := make([]playwright.Frame, 0, len(all)+1)
	for _, f := range append([]playwright.Frame{main}, all...) {
		if f == nil || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (p *Page) FindText(text string) (dom.Element, error) {
	return first(p.t, p.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(false)}))
}

func (p *Page) Query(selector string, limit int) ([]dom.Element, error) {
	return nth(p.t, p.page.Locator(selector), limit)
}

func (p *Page) Wait(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *Page) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *Page) Content() (string, error) {
	return p.page.Content()
}

type frame struct {
	frame playwright.Frame
	t     timeouts
}

func (f *frame) ButtonByName(name string) dom.Element {
	el, err := first(f.t, f.frame.GetByRole(playwright.AriaRole("button"), buttonRole(name)))
	if err != nil {
		return nil
	}
	return el
}

func (f *frame) ButtonWithText(pattern *regexp.Regexp) dom.Element {
	el, err := first(f.t, f.frame.Locator("button").Filter(playwright.LocatorFilterOptions{HasText: pattern}))
	if err != nil {
		return nil
	}
	return el
}

// buttonRole matches the accessible name exactly; playwright otherwise
// matches a case-insensitive substring, so "Ja" would hit "Januar".
func buttonRole(name string) playwright.FrameGetByRoleOptions {
	return playwright.FrameGetByRoleOptions{Name: name, Exact: playwright.Bool(true)}
}

// first returns the locator's first match, or nil when there is none.
func first(t timeouts, loc playwright.Locator) (dom.Element, error) {
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return &element{loc: loc.First(), t: t}, nil
}

func nth(t timeouts, loc playwright.Locator, limit int) ([]dom.Element, error) {
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &element{loc: loc.Nth(i), t: t})
	}
	return out, nil
}

type element struct {
	loc playwright.Locator
	t   timeouts
}

func (e *element) Query(selector string, limit int) ([]dom.Element, error) {
	return nth(e.t, e.loc.Locator(selector), limit)
}

func (e *element) Count(selector string) (int, error) {
	return e.loc.Locator(selector).Count()
}

// Ancestors walks the xpath ancestor axis, which playwright reports in
// document order, from the end.
func (e *element) Ancestors(limit int) ([]dom.Element, error) {
	loc := e.loc.Locator(ancestorXPath)
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	var out []dom.Element
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, &element{loc: loc.Nth(i), t: e.t})
	}
	return out, nil
}

func (e *element) ContainsText(text string) (bool, error) {
	n, err := e.loc.GetByText(text, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(false)}).Count()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (e *element) IsVisible() (bool, error) {
	return e.loc.IsVisible()
}

func (e *element) BoundingBox() (*dom.Box, error) {
	r, err := e.loc.BoundingBox(e.t.boundingBox())
	if err != nil || r == nil {
		return nil, err
	}
	return &dom.Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, nil
}

func (e *element) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name, e.t.attribute())
}

func (e *element) InputValue() (string, error) {
	return e.loc.InputValue(e.t.inputValue())
}

func (e *element) InnerText() (string, error) {
	return e.loc.InnerText(e.t.innerText())
}

func (e *element) ScrollIntoView() error {
	return e.loc.ScrollIntoViewIfNeeded(e.t.scrollIntoView())
}

func (e *element) Click(timeout time.Duration) error {
	return e.loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
		Force:   playwright.Bool(true),
	})
}

func (e *element) DispatchClick() error {
	_, err := e.loc.Evaluate("el => el.click()", nil, e.t.evaluate())
	return err
}
