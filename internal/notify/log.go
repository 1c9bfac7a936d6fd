package notify

import (
	"context"

	"github.com/rileyhilliard/vigil/internal/logger"
)

// Log writes alerts to a logger instead of the desktop. Useful on headless
// machines and when running under a service manager that collects stderr.
type Log struct {
	log logger.Logger
}

// NewLog returns a Log notifier. A nil logger uses logger.Default().
func NewLog(log logger.Logger) *Log {
	if log == nil {
		log = logger.Default()
	}
	return &Log{log: log}
}

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, summary, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.log.Warn("%s: %s", summary, body)
	return nil
}
