package workerpresentation

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/notification"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/notify"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
)

type captureSubscriber struct {
	name    string
	handler domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	c.name = name
	c.handler = h
}

func TestNotificationWorker_TranslatesFailures(t *testing.T) {
	feed := notify.NewFeed(10)
	w := NewNotificationWorker(feed, nil)

	sub := &captureSubscriber{}
	w.Register(sub)
	require.Equal(t, "cart.operation_failed", sub.name)

	ctx := context.Background()
	require.NoError(t, sub.handler(ctx, domcart.NewOperationFailedEvent(domcart.OperationAdd, domcart.FailureOutOfStock, 1, "out of stock")))
	require.NoError(t, sub.handler(ctx, domcart.NewOperationFailedEvent(domcart.OperationRemove, domcart.FailureNotFound, 9, "not in cart")))
	evt := domcart.NewOperationFailedEvent(domcart.OperationUpdate, domcart.FailureUnexpected, 2, "timeout")
	require.NoError(t, sub.handler(ctx, &evt))

	got := feed.Recent()
	require.Len(t, got, 3)
	assert.Equal(t, "Requested quantity is out of stock", got[0].Message)
	assert.Equal(t, "Failed to remove product", got[1].Message)
	assert.Equal(t, "Failed to update product amount", got[2].Message)
	assert.Equal(t, evt.ID, got[2].ID)
	assert.Equal(t, int64(2), got[2].ProductID)
	assert.False(t, got[2].CreatedAt.IsZero())
}

type otherEvent struct{}

func (otherEvent) EventName() string { return "other" }

func TestNotificationWorker_RejectsForeignEvents(t *testing.T) {
	w := NewNotificationWorker(notify.NewFeed(1), nil)
	assert.Error(t, w.Handle(context.Background(), otherEvent{}))
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, notification.Notification) error {
	return errors.New("sink down")
}

func TestNotificationWorker_CountsDeliveredNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := telemetry.New(observability.NopTracer(), observability.NopLogger(), counters, histograms)

	w := NewNotificationWorker(notify.NewFeed(5), tel)
	require.NoError(t, w.Handle(context.Background(),
		domcart.NewOperationFailedEvent(domcart.OperationAdd, domcart.FailureOutOfStock, 1, "")))

	count, err := testutil.GatherAndCount(reg, "notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	failing := NewNotificationWorker(failingNotifier{}, tel)
	assert.Error(t, failing.Handle(context.Background(),
		domcart.NewOperationFailedEvent(domcart.OperationAdd, domcart.FailureOutOfStock, 1, "")))
	count, err = testutil.GatherAndCount(reg, "notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithEventContext_BindsEventFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zaplogger.Wrap(zap.New(core))

	ctx := WithEventContext(context.Background(), base, map[string]string{
		"event_id":  "evt-1",
		"operation": "add",
		"empty":     "",
	})
	logctx.From(ctx).Info("probe")

	entries := logs.FilterMessage("probe").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "add", fields["operation"])
	assert.NotContains(t, fields, "empty")
	assert.NotContains(t, fields, "trace_id")
}

func TestWithEventContext_GeneratesEventID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithEventContext(context.Background(), zaplogger.Wrap(zap.New(core)), nil)
	logctx.From(ctx).Info("probe")

	fields := logs.All()[0].ContextMap()
	assert.NotEmpty(t, fields["event_id"])
}
