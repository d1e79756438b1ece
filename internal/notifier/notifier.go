// Package notifier delivers one-line run outcomes to the configured channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/notifier/providers"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Sender delivers a plain-text message to one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// Notifier fans a message out to every sender
type Notifier struct {
	senders []Sender
	log     *slog.Logger
}

// New creates a notifier over senders.
func New(log *slog.Logger, senders ...Sender) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{senders: senders, log: log}
}

// NewFromConfig creates a notifier with every channel cfg enables.
func NewFromConfig(cfg *config.Config, log *slog.Logger) *Notifier {
	var senders []Sender
	if cfg.Telegram.Enabled() {
		senders = append(senders, providers.NewTelegramSender(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, nil))
	}
	if cfg.Email.Enabled() {
		e := cfg.Email
		senders = append(senders, providers.NewSMTPSender(e.SMTPHost, e.SMTPPort, e.SMTPUser, e.SMTPPass, e.FromAddr, e.ToAddr))
	}
	return New(log, senders...)
}

// Enabled reports whether any channel is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends text to all channels concurrently. Each failure is logged;
// the joined failures are returned wrapped in ErrNotify for callers that
// want to count them. Callers must not treat the error as fatal.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if len(n.senders) == 0 {
		n.log.Debug("No notification channel configured", "text", text)
		return nil
	}

	errs := make([]error, len(n.senders))
	var g errgroup.Group
	for i, s := range n.senders {
		i, s := i, s // per-iteration copies; module targets go 1.21
		g.Go(func() error {
			if err := s.Send(ctx, text); err != nil {
				n.log.Error("Notification failed", "channel", s.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			n.log.Info("Notification sent", "channel", s.Name())
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", types.ErrNotify, err)
	}
	return nil
}
