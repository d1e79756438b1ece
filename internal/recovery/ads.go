package recovery

import (
	"context"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
)

// CloseAds clicks every known ad close control in the page and then in each
// embedded frame, pausing briefly after each click. It never fails; it
// returns the number of controls clicked.
func (s *Starter) CloseAds(ctx context.Context, p browser.Page) int {
	s.log.Info("Attempting to close ads")

	// Only visible controls in the page itself; frames are swept blind.
	visible := make(browser.Strategy, len(selectors.AdClose))
	for i, loc := range selectors.AdClose {
		loc.Visible = true
		visible[i] = loc
	}
	closed := s.sweep(ctx, p, visible, "page")

	frames, err := p.Frames(ctx)
	if err != nil {
		s.log.Debug("Could not list frames", "error", err)
		return closed
	}
	for _, f := range frames {
		closed += s.sweep(ctx, f, selectors.AdClose, f.URL())
	}
	return closed
}

func (s *Starter) sweep(ctx context.Context, doc browser.Document, strategy browser.Strategy, where string) int {
	closed := 0
	for _, loc := range strategy {
		if ctx.Err() != nil {
			return closed
		}
		n, err := doc.Count(ctx, loc)
		if err != nil || n == 0 {
			continue
		}
		// Last first: a dismissed control drops out of the match list and
		// would shift the indices of the ones after it.
		for i := n - 1; i >= 0; i-- {
			if err := doc.ClickNth(ctx, loc, i); err != nil {
				continue
			}
			closed++
			s.log.Info("Closed ad", "selector", loc.String(), "in", where)
			if err := s.clk.Sleep(ctx, clickSettle); err != nil {
				return closed
			}
		}
	}
	return closed
}
