package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"bundle-storefront/internal/core/domain"
)

func TestEncodeOrderCreated(t *testing.T) {
	o := domain.Order{
		ID:            "3f1c",
		TransactionID: "TXN-1",
		Network:       "mtn",
		Bundle:        "1GB",
		Amount:        decimal.RequireFromString("5.00"),
		Status:        domain.StatusCompleted,
		CreatedAt:     time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	rec, err := EncodeOrderCreated(o)
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "order.created", string(rec.Headers[0].Value))

	var ev domain.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(rec.Value, &ev))
	assert.Equal(t, "3f1c", ev.OrderID)
	assert.Equal(t, "mtn", ev.Network)
	assert.True(t, ev.Amount.Equal(o.Amount))
	assert.Equal(t, domain.StatusCompleted, ev.Status)
}

func TestDeadLetter_CarriesFailureHeaders(t *testing.T) {
	orig := &kgo.Record{Topic: "orders.created", Key: []byte("TXN-9"), Value: []byte("{not json")}

	dl := DeadLetter(orig, "orders.created.dlq", "unmarshal_error", "unexpected end of JSON input")
	assert.Equal(t, "orders.created.dlq", dl.Topic)
	assert.Equal(t, orig.Value, dl.Value)
	assert.Equal(t, orig.Key, dl.Key)

	errType, errString := ErrorHeaders(dl.Headers)
	assert.Equal(t, "unmarshal_error", errType)
	assert.Equal(t, "unexpected end of JSON input", errString)

	errType, errString = ErrorHeaders(nil)
	assert.Equal(t, "N/A", errType)
	assert.Equal(t, "N/A", errString)
}
