// Package dom describes the page-automation capability the portal driver
// needs. The browser package implements it on top of playwright; domtest
// implements it in memory for tests.
package dom

import (
	"regexp"
	"time"
)

// Box is an element's bounding box in CSS pixels.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the box's right edge.
func (b Box) Right() float64 {
	return b.X + b.Width
}

// Area returns width * height.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Element is a handle into the live element tree. Handles are only valid
// for the page session that produced them.
type Element interface {
	// Query returns up to limit descendants matching a CSS selector.
	Query(selector string, limit int) ([]Element, error)
	// Count returns the number of descendants matching a CSS selector.
	Count(selector string) (int, error)
	// Ancestors returns up to limit enclosing div, li or tr elements,
	// nearest first.
	Ancestors(limit int) ([]Element, error)
	// ContainsText reports whether a descendant renders text.
	ContainsText(text string) (bool, error)
	IsVisible() (bool, error)
	// BoundingBox returns nil when the element is not rendered.
	BoundingBox() (*Box, error)
	Attribute(name string) (string, error)
	InputValue() (string, error)
	InnerText() (string, error)
	ScrollIntoView() error
	// Click performs a forced click that skips actionability and
	// hit-target checks.
	Click(timeout time.Duration) error
	// DispatchClick invokes the element's click() in page script.
	DispatchClick() error
}

// Frame is one document of a page: the main frame or an embedded frame.
type Frame interface {
	// ButtonByName returns the first button whose accessible name matches,
	// or nil.
	ButtonByName(name string) Element
	// ButtonWithText returns the first button whose text matches pattern,
	// or nil.
	ButtonWithText(pattern *regexp.Regexp) Element
}

// Page is a single browser tab.
type Page interface {
	Navigate(url string, timeout time.Duration) error
	// Frames returns the main frame followed by every embedded frame,
	// each exactly once.
	Frames() []Frame
	// FindText returns the first element rendering text, or nil.
	FindText(text string) (Element, error)
	// Query returns up to limit elements matching a CSS selector.
	Query(selector string, limit int) ([]Element, error)
	// Wait blocks for d.
	Wait(d time.Duration)
	Screenshot(path string) error
	Content() (string, error)
}
