package events

import (
	"context"
	"time"
)

const (
	TransferCompleted = "transfer.completed"

	TransferEventsStream = "transfer.events"
)

// Event is the envelope written to the stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type TransferCompletedEvent struct {
	UserID              int64  `json:"userId"`
	FromAccountID       string `json:"fromAccountId"`
	ToAccountID         string `json:"toAccountId"`
	Amount              string `json:"amount"`
	Description         string `json:"description"`
	DebitTransactionID  int64  `json:"debitTransactionId"`
	CreditTransactionID int64  `json:"creditTransactionId"`
	Date                string `json:"date"`
}

// Publisher delivers events to downstream consumers. Delivery is best effort;
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error {
	return nil
}
