package notifier

import (
	"context"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notifier delivers human-facing event notifications. Delivery is
// best-effort: callers log failures and move on, they never escalate.
type Notifier interface {
	Notify(ctx context.Context, channel string, message string, severity Severity) error
}

// Noop discards all notifications. Used when no webhook is configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, channel, message string, severity Severity) error {
	return nil
}

var _ Notifier = Noop{}
