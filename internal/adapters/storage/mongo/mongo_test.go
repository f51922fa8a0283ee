package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/core/domain"
)

func TestDocumentConversion_KeepsAmountExact(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	o := domain.Order{
		ID:            "id-1",
		TransactionID: "TXN-1",
		CustomerName:  "Ama Mensah",
		Email:         "a@b.co",
		Phone:         "0241234567",
		Network:       "mtn",
		Bundle:        "1GB",
		Amount:        decimal.RequireFromString("10.50"),
		Status:        domain.StatusPendingVerification,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	doc, err := toDocument(o)
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", doc.TransactionID)
	assert.Equal(t, "pending_verification", doc.Status)

	back, err := doc.toDomain()
	require.NoError(t, err)
	assert.True(t, back.Amount.Equal(o.Amount))
	assert.Equal(t, o.Status, back.Status)
	assert.Equal(t, created, back.CreatedAt)
}
