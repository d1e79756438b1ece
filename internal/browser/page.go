package browser

import (
	"context"
	"time"
)

// Kind selects how a Locator's query is interpreted.
type Kind string

const (
	// ByCSS matches elements with querySelectorAll.
	ByCSS Kind = "css"
	// ByXPath matches elements with an XPath expression.
	ByXPath Kind = "xpath"
	// ByText matches elements of Tags whose visible text, value or
	// aria-label contains any of Texts, case-insensitively.
	ByText Kind = "text"
)

// Locator is one way of finding an element.
type Locator struct {
	Name    string   `json:"-"`
	Kind    Kind     `json:"kind"`
	Query   string   `json:"query,omitempty"`
	Tags    string   `json:"tags,omitempty"`
	Texts   []string `json:"texts,omitempty"`
	Visible bool     `json:"visible"`
}

func (l Locator) String() string {
	if l.Name != "" {
		return l.Name
	}
	if l.Kind == ByText {
		return string(l.Kind) + ":" + l.Tags
	}
	return l.Query
}

// CSS is shorthand for a CSS locator named after its query.
func CSS(query string, visible bool) Locator {
	return Locator{Name: query, Kind: ByCSS, Query: query, Visible: visible}
}

// XPath is shorthand for an XPath locator.
func XPath(name, query string) Locator {
	return Locator{Name: name, Kind: ByXPath, Query: query, Visible: true}
}

// Text is shorthand for a visible text-match locator over tags.
func Text(tags string, texts ...string) Locator {
	return Locator{Name: "text(" + tags + ")", Kind: ByText, Tags: tags, Texts: texts, Visible: true}
}

// Named returns a copy of l with a different display name.
func (l Locator) Named(name string) Locator {
	l.Name = name
	return l
}

// Strategy is an ordered list of locators; the first that resolves wins.
type Strategy []Locator

// Then returns s followed by fallback.
func (s Strategy) Then(fallback ...Locator) Strategy {
	out := make(Strategy, 0, len(s)+len(fallback))
	out = append(out, s...)
	return append(out, fallback...)
}

// Document is the query surface shared by a page and its embedded frames.
type Document interface {
	// Count returns how many elements match loc.
	Count(ctx context.Context, loc Locator) (int, error)
	// ClickNth clicks the n-th (0-based) element matching loc.
	ClickNth(ctx context.Context, loc Locator, n int) error
}

// Frame is an embedded document.
type Frame interface {
	Document
	URL() string
}

// NavigationWait blocks until the navigation it was armed for commits, or
// timeout elapses.
type NavigationWait func(ctx context.Context, timeout time.Duration) error

// Page is one browser tab.
type Page interface {
	Document

	// Navigate loads url and waits, bounded, for network quiescence.
	Navigate(ctx context.Context, url string) error
	// ExpectNavigation arms a wait for the next main-frame navigation. Arm it
	// before the action that triggers the navigation. release disarms it and
	// may be called more than once, including after wait returns.
	ExpectNavigation(ctx context.Context) (wait NavigationWait, release func())
	Location(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	// Type sends text to the first element matching loc.
	Type(ctx context.Context, loc Locator, text string) error
	// Evaluate runs a JS expression in the main document and decodes the result into res.
	Evaluate(ctx context.Context, expr string, res any) error
	// FrameURLs lists the address of every embedded frame, cross-origin included.
	FrameURLs(ctx context.Context) ([]string, error)
	// Frames returns the embedded documents that can be queried.
	Frames(ctx context.Context) ([]Frame, error)
	Screenshot(ctx context.Context) ([]byte, error)
}
