package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/mikeqd/falix-keepalive/internal/types"
)

// SessionOptions configure a browser session.
type SessionOptions struct {
	Headless bool
	ExecPath string
	// NavigationTimeout bounds Navigate, including the wait for network quiescence.
	NavigationTimeout time.Duration
	// ActionTimeout bounds every other page operation.
	ActionTimeout time.Duration
	Logger        *slog.Logger
}

// Session is one browser process with a single tab. It satisfies Page.
// Close releases the process and is safe to call more than once.
type Session struct {
	opts SessionOptions
	log  *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	main        *document

	marks atomic.Uint64

	mu     sync.Mutex
	frames map[string]frameTarget

	closeOnce sync.Once
	closeErr  error
}

type frameTarget struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Page = (*Session)(nil)

// Open launches the browser and its tab. The process lives until Close or
// until ctx is done.
func Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(opts.Headless, opts.ExecPath)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	s := &Session{
		opts:        opts,
		log:         log,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		frames:      make(map[string]frameTarget),
	}
	s.main = &document{s: s, ctx: tabCtx, root: "document", native: true}

	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	log.Debug("Browser launched", "headless", opts.Headless)
	return s, nil
}

// Close shuts the browser down. Only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id, f := range s.frames {
			f.cancel()
			delete(s.frames, id)
		}
		s.mu.Unlock()

		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// scope derives an operation context from the tab context base. It ends when
// the caller's ctx does, when timeout elapses, or when the session closes.
func (s *Session) scope(ctx, base context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(base, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) Count(ctx context.Context, loc Locator) (int, error) {
	return s.main.Count(ctx, loc)
}

func (s *Session) ClickNth(ctx context.Context, loc Locator, n int) error {
	return s.main.ClickNth(ctx, loc, n)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	c, cancel := s.scope(ctx, s.ctx, s.opts.NavigationTimeout)
	defer cancel()

	idle := make(chan struct{}, 1)
	lctx, lcancel := context.WithCancel(c)
	defer lcancel()
	chromedp.ListenTarget(lctx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && (e.Name == "networkAlmostIdle" || e.Name == "networkIdle") {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(c, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	select {
	case <-idle:
	case <-c.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Debug("Network did not settle before timeout", "url", url)
	}
	return nil
}

func (s *Session) ExpectNavigation(ctx context.Context) (NavigationWait, func()) {
	committed := make(chan struct{}, 1)
	lctx, lcancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, lcancel)
	chromedp.ListenTarget(lctx, func(ev any) {
		if e, ok := ev.(*page.EventFrameNavigated); ok && e.Frame.ParentID == "" {
			select {
			case committed <- struct{}{}:
			default:
			}
		}
	})
	release := func() {
		stop()
		lcancel()
	}
	wait := func(ctx context.Context, timeout time.Duration) error {
		defer release()
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-committed:
			return nil
		case <-t.C:
			return fmt.Errorf("no navigation within %v", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return wait, release
}

func (s *Session) Location(ctx context.Context) (string, error) {
	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()
	var loc string
	if err := chromedp.Run(c, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.Evaluate(ctx, bodyTextJS, &text); err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	return text, nil
}

func (s *Session) Evaluate(ctx context.Context, expr string, res any) error {
	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()
	return chromedp.Run(c, chromedp.Evaluate(expr, res))
}

func (s *Session) Type(ctx context.Context, loc Locator, text string) error {
	token, err := s.main.mark(ctx, loc, 0)
	if err != nil {
		return err
	}
	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()
	if err := chromedp.Run(c, chromedp.SendKeys(markSelector(token), text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(c, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// FrameURLs walks the frame tree of the tab and adds out-of-process iframe
// targets, which the tree does not include.
func (s *Session) FrameURLs(ctx context.Context) ([]string, error) {
	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()

	var tree *page.FrameTree
	if err := chromedp.Run(c, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("read frame tree: %w", err)
	}

	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	var walk func(t *page.FrameTree)
	walk = func(t *page.FrameTree) {
		for _, child := range t.ChildFrames {
			add(child.Frame.URL)
			walk(child)
		}
	}
	walk(tree)

	if infos, err := chromedp.Targets(c); err == nil {
		for _, info := range infos {
			if info.Type == "iframe" {
				add(info.URL)
			}
		}
	}
	return urls, nil
}

// Frames returns same-origin frames reached through contentDocument and
// out-of-process frames attached as their own targets.
func (s *Session) Frames(ctx context.Context) ([]Frame, error) {
	var paths []framePath
	if err := s.Evaluate(ctx, framesJS, &paths); err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	frames := make([]Frame, 0, len(paths))
	for _, p := range paths {
		frames = append(frames, &document{s: s, ctx: s.ctx, root: frameRoot(p.Path), url: p.URL})
	}

	c, cancel := s.scope(ctx, s.ctx, s.opts.ActionTimeout)
	defer cancel()
	infos, err := chromedp.Targets(c)
	if err != nil {
		s.log.Debug("Could not list frame targets", "error", err)
		return frames, nil
	}
	for _, info := range infos {
		if info.Type != "iframe" {
			continue
		}
		frames = append(frames, &document{s: s, ctx: s.frameTarget(info.TargetID), root: "document", url: info.URL, native: true})
	}
	return frames, nil
}

// frameTarget returns a chromedp context attached to an iframe target,
// reusing the attachment across calls.
func (s *Session) frameTarget(id target.ID) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.frames[string(id)]; ok {
		return f.ctx
	}
	ctx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(id))
	s.frames[string(id)] = frameTarget{ctx: ctx, cancel: cancel}
	return ctx
}

// document is a queryable DOM inside a chromedp target.
type document struct {
	s    *Session
	ctx  context.Context
	root string
	url  string
	// native clicks dispatch real mouse input; otherwise a DOM click is used.
	native bool
}

func (d *document) URL() string { return d.url }

func (d *document) Count(ctx context.Context, loc Locator) (int, error) {
	return d.locate(ctx, loc, -1, "")
}

func (d *document) ClickNth(ctx context.Context, loc Locator, n int) error {
	token, err := d.mark(ctx, loc, n)
	if err != nil {
		return err
	}
	sel := markSelector(token)

	c, cancel := d.s.scope(ctx, d.ctx, d.s.opts.ActionTimeout)
	defer cancel()

	if d.native {
		var nodes []*cdp.Node
		err := chromedp.Run(c, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)))
		if err == nil && len(nodes) > 0 {
			if err = chromedp.Run(c, chromedp.MouseClickNode(nodes[0])); err == nil {
				return nil
			}
		}
		d.s.log.Debug("Mouse click failed, falling back to DOM click", "locator", loc.String(), "error", err)
	}

	var ok bool
	if err := chromedp.Run(c, chromedp.Evaluate(clickExpr(d.root, sel), &ok)); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	if !ok {
		return fmt.Errorf("click %s: %w", loc, types.ErrElementNotFound)
	}
	return nil
}

// mark tags the n-th match of loc and returns the tag.
func (d *document) mark(ctx context.Context, loc Locator, n int) (string, error) {
	token := fmt.Sprintf("k%d", d.s.marks.Add(1))
	count, err := d.locate(ctx, loc, n, token)
	if err != nil {
		return "", err
	}
	if count <= n {
		return "", fmt.Errorf("%s: %w", loc, types.ErrElementNotFound)
	}
	return token, nil
}

func (d *document) locate(ctx context.Context, loc Locator, mark int, token string) (int, error) {
	expr, err := locateExpr(d.root, loc, mark, token)
	if err != nil {
		return 0, err
	}
	c, cancel := d.s.scope(ctx, d.ctx, d.s.opts.ActionTimeout)
	defer cancel()

	var n int
	if err := chromedp.Run(c, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, fmt.Errorf("locate %s: %w", loc, err)
	}
	switch n {
	case locateInvalid:
		return 0, fmt.Errorf("locate %s: invalid query", loc)
	case locateNoRoot:
		return 0, fmt.Errorf("locate %s: frame detached", loc)
	}
	return n, nil
}
