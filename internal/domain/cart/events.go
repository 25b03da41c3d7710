package cart

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the cart mutation an event refers to.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
	OperationUpdate Operation = "update"
)

// FailureKind classifies why a cart operation did not apply.
type FailureKind string

const (
	FailureOutOfStock FailureKind = "out_of_stock"
	FailureNotFound   FailureKind = "not_found"
	FailureUnexpected FailureKind = "unexpected"
)

// EventOperationFailed is the bus name of OperationFailedEvent.
const EventOperationFailed = "cart.operation_failed"

// OperationFailedEvent is emitted whenever a mutation is rejected or fails,
// so that user-facing channels can surface it.
type OperationFailedEvent struct {
	ID         string
	Operation  Operation
	Kind       FailureKind
	ProductID  int64
	Reason     string
	OccurredAt time.Time
}

func (OperationFailedEvent) EventName() string { return EventOperationFailed }

func NewOperationFailedEvent(op Operation, kind FailureKind, productID int64, reason string) OperationFailedEvent {
	return OperationFailedEvent{
		ID:         uuid.NewString(),
		Operation:  op,
		Kind:       kind,
		ProductID:  productID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
