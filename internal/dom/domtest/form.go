package domtest

import (
	"strconv"
	"time"

	"github.com/maltedev/termin-watch/internal/dom"
)

func box(x, y, w, h float64) *dom.Box {
	return &dom.Box{X: x, Y: y, Width: w, Height: h}
}

// FormOptions shapes the fake service selection page.
type FormOptions struct {
	Label   string
	Initial int
	// Headers are the accordion header titles revealed after submit.
	Headers []string
	// CookieBanner adds a consent banner that disappears when accepted.
	CookieBanner bool
	// ConfirmDialog adds an "OK" popup revealed by submitting.
	ConfirmDialog bool
	// SubmitEnabledAfter keeps the submit control aria-disabled until the
	// clock has advanced this far past the form's creation.
	SubmitEnabledAfter time.Duration
	// IgnoreIncrement makes the plus button do nothing.
	IgnoreIncrement bool
}

// Form is a service selection page: two line items, each with a stepper,
// a decoy stepper left of the target label, a submit control and a
// hidden location accordion.
type Form struct {
	Page *Page

	Row       *Node
	Stepper   *Node
	Input     *Node
	Plus      *Node
	Minus     *Node
	Decoy     *Node
	Other     *Node
	Submit    *Node
	Banner    *Node
	Dialog    *Node
	Accordion *Node
}

func NewForm(clock *Clock, opts FormOptions) *Form {
	f := &Form{}
	root := &Node{Tag: "body", Box: box(0, 0, 1280, 2400)}
	content := &Node{Tag: "div", ID: "content", Box: box(0, 0, 1280, 2000)}
	list := &Node{Tag: "div", Class: "service-list", Box: box(0, 100, 1280, 600)}

	// Sibling line item with its own stepper.
	otherRow := &Node{Tag: "div", Class: "row", Box: box(0, 100, 1280, 60)}
	f.Other = &Node{Tag: "div", Class: "stepper", Box: box(900, 105, 200, 50)}
	f.Other.Append(
		&Node{Tag: "button", Text: "-", Box: box(900, 110, 40, 40)},
		&Node{Tag: "span", Class: "value", Text: "0", Box: box(960, 110, 40, 40)},
		&Node{Tag: "button", Text: "+", Box: box(1050, 110, 40, 40)},
	)
	otherRow.Append(
		&Node{Tag: "span", Text: "Abmeldung eines Fahrzeuges", Box: box(10, 110, 400, 20)},
		f.Other,
	)

	f.Row = &Node{Tag: "div", Class: "row", Box: box(0, 170, 1280, 60)}
	f.Decoy = &Node{Tag: "div", Class: "stepper decoy", Box: box(0, 172, 8, 56)}
	f.Decoy.Append(
		&Node{Tag: "button", Box: box(0, 172, 4, 20)},
		&Node{Tag: "span", Text: "3", Box: box(0, 192, 4, 16)},
		&Node{Tag: "button", Box: box(0, 208, 4, 20)},
	)

	f.Input = &Node{Tag: "input", Value: strconv.Itoa(opts.Initial), Box: box(960, 180, 60, 40)}
	f.Minus = &Node{Tag: "button", Text: "-", Box: box(900, 180, 40, 40)}
	f.Plus = &Node{Tag: "button", Text: "+", Box: box(1050, 180, 40, 40)}
	f.Minus.OnClick = func(*Node) { f.step(-1) }
	if !opts.IgnoreIncrement {
		f.Plus.OnClick = func(*Node) { f.step(1) }
	}
	f.Stepper = &Node{Tag: "div", Class: "stepper", Box: box(900, 175, 200, 50)}
	f.Stepper.Append(f.Minus, f.Input, f.Plus)
	wrapper := &Node{Tag: "div", Class: "quantity", Box: box(880, 172, 240, 56)}
	wrapper.Append(f.Stepper)

	f.Row.Append(
		f.Decoy,
		&Node{Tag: "span", Text: opts.Label, Box: box(20, 180, 500, 20)},
		wrapper,
	)
	list.Append(otherRow, f.Row)

	f.Submit = &Node{Tag: "button", ID: "WeiterButton", Text: "Weiter", Box: box(1100, 720, 120, 40), Attrs: map[string]string{}}
	f.Accordion = &Node{Tag: "div", ID: "accordion", Box: box(0, 800, 1280, 800), Hidden: true}
	for i, title := range opts.Headers {
		f.Accordion.Append(&Node{
			Tag:   "h3",
			Class: "ui-accordion-header ui-state-default",
			Text:  "Standort " + strconv.Itoa(i+1),
			Attrs: map[string]string{"title": title},
			Box:   box(0, 800+float64(i)*40, 1280, 36),
		})
	}

	content.Append(list, f.Submit, f.Accordion)
	root.Append(content)

	if opts.CookieBanner {
		f.Banner = &Node{Tag: "div", Class: "cookie-banner", Box: box(0, 2200, 1280, 200)}
		accept := &Node{Tag: "button", Text: "Alle akzeptieren", Box: box(1000, 2300, 200, 40)}
		accept.OnClick = func(*Node) { f.Banner.Remove() }
		f.Banner.Append(&Node{Tag: "p", Text: "Wir verwenden Cookies.", Box: box(10, 2210, 800, 20)}, accept)
		root.Append(f.Banner)
	}

	if opts.ConfirmDialog {
		f.Dialog = &Node{Tag: "div", Class: "ui-dialog", Box: box(400, 300, 400, 200), Hidden: true}
		ok := &Node{Tag: "button", Text: "OK", Box: box(550, 450, 80, 30)}
		ok.OnClick = func(*Node) { f.Dialog.Remove() }
		f.Dialog.Append(&Node{Tag: "p", Text: "Bitte beachten Sie die Hinweise.", Box: box(410, 320, 380, 40)}, ok)
		root.Append(f.Dialog)
	}

	f.Page = NewPage(root, clock)

	enableAt := clock.Now().Add(opts.SubmitEnabledAfter)
	if opts.SubmitEnabledAfter > 0 {
		f.Submit.Attrs["aria-disabled"] = "true"
		f.Page.OnWait = func(now time.Time) {
			if !now.Before(enableAt) {
				f.Submit.Attrs["aria-disabled"] = "false"
			}
		}
	}
	f.Submit.OnClick = func(*Node) {
		f.Accordion.Hidden = false
		if f.Dialog != nil {
			f.Dialog.Hidden = false
		}
	}

	return f
}

// Value returns the target stepper's current value.
func (f *Form) Value() int {
	n, _ := strconv.Atoi(f.Input.Value)
	return n
}

func (f *Form) step(delta int) {
	f.Input.Value = strconv.Itoa(f.Value() + delta)
}
