package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	payload, err := encodeEvent(TransferCompleted, at, TransferCompletedEvent{
		UserID:              1,
		FromAccountID:       "acc-001",
		ToAccountID:         "acc-002",
		Amount:              "100.00",
		Description:         "test",
		DebitTransactionID:  6,
		CreditTransactionID: 7,
		Date:                "2026-02-01",
	})
	require.NoError(t, err)

	var decoded struct {
		Type      string                 `json:"type"`
		Timestamp time.Time              `json:"timestamp"`
		Data      map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, TransferCompleted, decoded.Type)
	assert.True(t, at.Equal(decoded.Timestamp))
	assert.Equal(t, time.UTC, decoded.Timestamp.Location())
	assert.Equal(t, "acc-001", decoded.Data["fromAccountId"])
	assert.Equal(t, "100.00", decoded.Data["amount"])
	assert.Equal(t, float64(7), decoded.Data["creditTransactionId"])
}

func TestEncodeEventRejectsUnmarshalableData(t *testing.T) {
	_, err := encodeEvent(TransferCompleted, time.Now(), make(chan int))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), TransferEventsStream, TransferCompleted, nil))
}

func TestRedisPublisherReportsUnreachableBroker(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	err := NewRedisPublisher(client).Publish(context.Background(), TransferEventsStream, TransferCompleted, TransferCompletedEvent{})
	assert.ErrorContains(t, err, "failed to publish event")
}
