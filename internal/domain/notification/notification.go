// Package notification holds the user-facing messages raised by cart failures.
package notification

import (
	"context"
	"time"
)

// Notification is one line of text shown to the shopper, plus the context it came from.
type Notification struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Kind      string    `json:"kind"`
	ProductID int64     `json:"product_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers a notification to the shopper.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
