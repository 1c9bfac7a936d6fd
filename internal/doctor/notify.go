package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/notify"
)

// ServerInformer identifies the notification server.
type ServerInformer interface {
	ServerInformation(ctx context.Context) (notify.ServerInfo, error)
	Close() error
}

// NotificationServiceCheck verifies the session bus is reachable and a
// notification server answers on it.
type NotificationServiceCheck struct {
	Backend string
	// Connect opens the session bus; defaults to notify.NewDBus.
	Connect func() (ServerInformer, error)
}

func (c *NotificationServiceCheck) Name() string     { return "notification_service" }
func (c *NotificationServiceCheck) Category() string { return CategoryNotify }

func (c *NotificationServiceCheck) Run(ctx context.Context) CheckResult {
	if c.Backend == config.NotifyLog {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "Log backend: alerts are written to stderr, no desktop needed",
		}
	}

	connect := c.Connect
	if connect == nil {
		connect = func() (ServerInformer, error) { return notify.NewDBus(0) }
	}

	srv, err := connect()
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summarize(err),
			Suggestion: errors.SuggestionOf(err),
		}
	}
	defer srv.Close()

	info, err := srv.ServerInformation(ctx)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Summarize(err),
			Suggestion: errors.SuggestionOf(err),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s %s answering (protocol %s)", info.Name, info.Version, info.SpecVersion),
	}
}

func (c *NotificationServiceCheck) Fix() error {
	return nil
}

// NewNotifyChecks creates the notification checks for cfg.
func NewNotifyChecks(cfg *config.Config) []Check {
	return []Check{
		&NotificationServiceCheck{Backend: cfg.Notify.Backend},
	}
}
