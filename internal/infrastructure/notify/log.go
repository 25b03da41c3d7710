// Package notify provides the sinks shopper notifications are delivered to.
package notify

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/notification"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
)

// LogNotifier writes each notification as a structured log line.
type LogNotifier struct {
	log observability.Logger
}

func NewLogNotifier(logger observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{log: logger.With(observability.F("component", "notifier"))}
}

func (n *LogNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	logctx.FromOr(ctx, n.log).Info("notification_sent",
		observability.F("notification_id", msg.ID),
		observability.F("operation", msg.Operation),
		observability.F("kind", msg.Kind),
		observability.F("product_id", msg.ProductID),
		observability.F("message", msg.Message),
	)
	return nil
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []notification.Notifier

func (f Fanout) Notify(ctx context.Context, msg notification.Notification) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
