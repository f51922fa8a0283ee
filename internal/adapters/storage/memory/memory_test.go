package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/core/domain"
)

func order(txID string, created time.Time, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:            "id-" + txID,
		TransactionID: txID,
		CustomerName:  "Kofi Boateng",
		Email:         "kofi@example.com",
		Phone:         "0241234567",
		Network:       "mtn",
		Bundle:        "1GB",
		Amount:        decimal.NewFromInt(10),
		Status:        status,
		CreatedAt:     created,
	}
}

func TestInsert_DuplicateKeepsFirst(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	first := order("TXN-1", now, domain.StatusCompleted)
	require.NoError(t, repo.Insert(ctx, first))

	second := order("TXN-1", now.Add(time.Second), domain.StatusCompleted)
	second.CustomerName = "Someone Else"
	err := repo.Insert(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Kofi Boateng", all[0].CustomerName)
}

func TestList_NewestFirst(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, order("A", base, domain.StatusCompleted)))
	require.NoError(t, repo.Insert(ctx, order("B", base.Add(time.Hour), domain.StatusCompleted)))
	// same timestamp as B, inserted later
	require.NoError(t, repo.Insert(ctx, order("C", base.Add(time.Hour), domain.StatusCompleted)))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	var ids []string
	for _, o := range all {
		ids = append(ids, o.TransactionID)
	}
	assert.Equal(t, []string{"C", "B", "A"}, ids)
}

func TestUpdateStatus(t *testing.T) {
	repo := NewRepository()
	updated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return updated }
	ctx := context.Background()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := order("P-1", created, domain.StatusPendingVerification)
	p.UpdatedAt = created
	require.NoError(t, repo.Insert(ctx, p))

	pending, err := repo.FindByStatus(ctx, domain.StatusPendingVerification)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repo.UpdateStatus(ctx, "P-1", domain.StatusPendingVerification, domain.StatusCompleted))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.StatusCompleted, all[0].Status)
	assert.Equal(t, updated, all[0].UpdatedAt)
	assert.Equal(t, created, all[0].CreatedAt)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "P-1", domain.StatusPendingVerification, domain.StatusCompleted), domain.ErrInvalidTransition)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "P-1", domain.StatusCompleted, domain.StatusPendingVerification), domain.ErrInvalidTransition)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.StatusPendingVerification, domain.StatusCompleted), domain.ErrOrderNotFound)

	pending, err = repo.FindByStatus(ctx, domain.StatusPendingVerification)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInsert_ConcurrentSameTransaction(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := order("RACE", time.Now(), domain.StatusCompleted)
			o.ID = fmt.Sprintf("id-%d", i)
			if err := repo.Insert(ctx, o); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, repo.Len())
}
