// Package browsertest provides a scriptable in-memory browser.Page.
//
// Elements are keyed by locator name: a locator matches when the page (or
// frame) holds a positive count under Locator.String().
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Doc is an in-memory document.
type Doc struct {
	mu       sync.Mutex
	elements map[string]int
	clicks   []string
	// OnClick runs after a successful click, with the locator name.
	OnClick func(name string)
	// CountErr makes Count fail for the named locators.
	CountErr map[string]error
}

// NewDoc returns an empty document.
func NewDoc() *Doc {
	return &Doc{elements: make(map[string]int), CountErr: make(map[string]error)}
}

// Set records n elements for locator name.
func (d *Doc) Set(name string, n int) *Doc {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n <= 0 {
		delete(d.elements, name)
	} else {
		d.elements[name] = n
	}
	return d
}

// Clicks returns every clicked locator name in order.
func (d *Doc) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

func (d *Doc) Count(ctx context.Context, loc browser.Locator) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.CountErr[loc.String()]; err != nil {
		return 0, err
	}
	return d.elements[loc.String()], nil
}

func (d *Doc) ClickNth(ctx context.Context, loc browser.Locator, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.elements[loc.String()] <= n {
		d.mu.Unlock()
		return fmt.Errorf("%s: %w", loc, types.ErrElementNotFound)
	}
	d.clicks = append(d.clicks, loc.String())
	hook := d.OnClick
	d.mu.Unlock()
	if hook != nil {
		hook(loc.String())
	}
	return nil
}

// Frame is an in-memory embedded document.
type Frame struct {
	*Doc
	Addr string
}

func (f *Frame) URL() string { return f.Addr }

// Page is an in-memory browser.Page.
type Page struct {
	*Doc

	mu          sync.Mutex
	url         string
	body        string
	frames      []*Frame
	frameURLs   []string
	navigations []string
	typed       map[string]string
	evals       map[string]any
	closed      int
	armed       int

	// NavigateErr, when set, fails every Navigate.
	NavigateErr error
	// OnNavigate runs after each Navigate with the target address.
	OnNavigate func(url string)
	// NoNavigation makes ExpectNavigation waits time out.
	NoNavigation bool
	// Shot is returned by Screenshot.
	Shot []byte
}

var _ browser.Page = (*Page)(nil)

// New returns a blank page.
func New() *Page {
	return &Page{Doc: NewDoc(), typed: make(map[string]string), evals: make(map[string]any)}
}

// SetURL sets the current location.
func (p *Page) SetURL(u string) {
	p.mu.Lock()
	p.url = u
	p.mu.Unlock()
}

// SetBody sets the body text.
func (p *Page) SetBody(text string) {
	p.mu.Lock()
	p.body = text
	p.mu.Unlock()
}

// AddFrame attaches an embedded document at addr.
func (p *Page) AddFrame(addr string) *Frame {
	f := &Frame{Doc: NewDoc(), Addr: addr}
	p.mu.Lock()
	p.frames = append(p.frames, f)
	p.frameURLs = append(p.frameURLs, addr)
	p.mu.Unlock()
	return f
}

// AddFrameURL lists a frame address without a queryable document, like an
// out-of-process frame that could not be attached.
func (p *Page) AddFrameURL(addr string) {
	p.mu.Lock()
	p.frameURLs = append(p.frameURLs, addr)
	p.mu.Unlock()
}

// SetEval fixes the value Evaluate decodes for expressions containing key.
func (p *Page) SetEval(key string, v any) {
	p.mu.Lock()
	p.evals[key] = v
	p.mu.Unlock()
}

// Navigations returns every address passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Typed returns the text typed into the named locator.
func (p *Page) Typed(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[name]
}

// Close counts calls; it lets tests check teardown happens once.
func (p *Page) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

// Closed returns how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	err := p.NavigateErr
	hook := p.OnNavigate
	if err == nil {
		p.url = url
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	}
	return nil
}

func (p *Page) ExpectNavigation(ctx context.Context) (browser.NavigationWait, func()) {
	p.mu.Lock()
	p.armed++
	p.mu.Unlock()
	var once sync.Once
	release := func() {
		once.Do(func() {
			p.mu.Lock()
			p.armed--
			p.mu.Unlock()
		})
	}
	wait := func(ctx context.Context, timeout time.Duration) error {
		defer release()
		if p.NoNavigation {
			return fmt.Errorf("no navigation within %v", timeout)
		}
		return ctx.Err()
	}
	return wait, release
}

// Armed returns how many navigation waits are armed and not yet released.
func (p *Page) Armed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, ctx.Err()
}

func (p *Page) BodyText(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.body, ctx.Err()
}

func (p *Page) Type(ctx context.Context, loc browser.Locator, text string) error {
	n, err := p.Count(ctx, loc)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", loc, types.ErrElementNotFound)
	}
	p.mu.Lock()
	p.typed[loc.String()] += text
	p.mu.Unlock()
	return nil
}

// Evaluate decodes the value registered with SetEval whose key occurs in
// expr. Unregistered expressions fail.
func (p *Page) Evaluate(ctx context.Context, expr string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	var (
		v     any
		found bool
	)
	for key, val := range p.evals {
		if strings.Contains(expr, key) {
			v, found = val, true
			break
		}
	}
	p.mu.Unlock()
	if !found {
		return errors.New("browsertest: no result registered for expression")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (p *Page) FrameURLs(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frameURLs...), ctx.Err()
}

func (p *Page) Frames(ctx context.Context) ([]browser.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]browser.Frame, len(p.frames))
	for i, f := range p.frames {
		out[i] = f
	}
	return out, ctx.Err()
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if p.Shot == nil {
		return nil, errors.New("browsertest: no screenshot")
	}
	return p.Shot, ctx.Err()
}
