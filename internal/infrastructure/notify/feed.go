package notify

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/notification"
)

const defaultFeedSize = 50

// Feed keeps the most recent notifications so the storefront can poll them.
type Feed struct {
	mu    sync.RWMutex
	items []notification.Notification
	size  int
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{size: size, items: make([]notification.Notification, 0, size)}
}

func (f *Feed) Notify(_ context.Context, msg notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == f.size {
		copy(f.items, f.items[1:])
		f.items = f.items[:f.size-1]
	}
	f.items = append(f.items, msg)
	return nil
}

// Recent returns the retained notifications, oldest first.
func (f *Feed) Recent() []notification.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]notification.Notification{}, f.items...)
}
