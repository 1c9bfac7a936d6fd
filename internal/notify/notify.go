// Package notify delivers rendered alerts to the user.
package notify

import (
	"context"
	"sync"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
)

// Notifier shows a single alert. Implementations must return once ctx is done.
type Notifier interface {
	Notify(ctx context.Context, summary, body string) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, summary, body string) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, summary, body string) error {
	return f(ctx, summary, body)
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, string, string) error { return nil }

// New builds the notifier selected by cfg.Backend.
func New(cfg config.NotifyConfig, log logger.Logger) (Notifier, error) {
	switch cfg.Backend {
	case config.NotifyDBus:
		return NewDBus(cfg.Expire)
	case config.NotifyLog:
		return NewLog(log), nil
	default:
		return nil, errors.New(errors.ErrNotify,
			"Unknown notification backend '"+cfg.Backend+"'",
			"Set notify.backend to 'dbus' or 'log'.")
	}
}

// Message is one recorded notification.
type Message struct {
	Summary string
	Body    string
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned from every Notify after recording.
	Err error
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, summary, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Summary: summary, Body: body})
	return r.Err
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}
