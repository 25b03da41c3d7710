package workerpresentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/notification"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-cart/internal/presentation/messages"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const componentNotificationWorker = "notification_worker"

// NotificationWorker turns cart failure events into shopper notifications.
type NotificationWorker struct {
	notifier notification.Notifier
	log      observability.Logger
	tracer   observability.Tracer
	counter  observability.Counter
}

func NewNotificationWorker(notifier notification.Notifier, tel observability.Observability) *NotificationWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &NotificationWorker{
		notifier: notifier,
		log:      tel.Logger().With(observability.F("component", componentNotificationWorker)),
		tracer:   tel.Tracer(),
		counter:  tel.Metrics().Counter(observability.MNotifications),
	}
}

// Register subscribes the worker to cart failure events.
func (w *NotificationWorker) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(domcart.EventOperationFailed, w.Handle)
}

func (w *NotificationWorker) Handle(ctx context.Context, e domoutbox.Event) (err error) {
	var evt domcart.OperationFailedEvent
	switch v := e.(type) {
	case domcart.OperationFailedEvent:
		evt = v
	case *domcart.OperationFailedEvent:
		if v == nil {
			return nil
		}
		evt = *v
	default:
		return fmt.Errorf("notification worker: unexpected event %T", e)
	}

	ctx, span := w.tracer.Start(ctx, "Worker.NotifyFailure",
		attribute.String("cart.operation", string(evt.Operation)),
		attribute.String("cart.failure", string(evt.Kind)),
		attribute.Int64("product.id", evt.ProductID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "NOTIFY_FAILED")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	ctx = WithEventContext(ctx, w.log, map[string]string{
		"event_id":   evt.ID,
		"event":      evt.EventName(),
		"operation":  string(evt.Operation),
		"product_id": strconv.FormatInt(evt.ProductID, 10),
	})
	logger := logctx.FromOr(ctx, w.log)

	n := notification.Notification{
		ID:        evt.ID,
		Operation: string(evt.Operation),
		Kind:      string(evt.Kind),
		ProductID: evt.ProductID,
		Message:   messages.For(evt.Operation, evt.Kind),
		CreatedAt: evt.OccurredAt,
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err = w.notifier.Notify(ctx, n); err != nil {
		logger.Warn("notification_failed", observability.F("error", err.Error()))
		return fmt.Errorf("notification worker: notify: %w", err)
	}

	w.counter.Add(1,
		observability.L("operation", string(evt.Operation)),
		observability.L("outcome", string(evt.Kind)),
	)
	logger.Debug("failure_notified",
		observability.F("kind", string(evt.Kind)),
		observability.F("reason", evt.Reason),
	)
	return nil
}
