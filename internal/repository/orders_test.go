package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medistore/m/internal/domain"
)

func TestOrderCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewOrders(testDB(t))

	order := &domain.Order{
		UserID: 7,
		Total:  22.05,
		Status: domain.StatusReadyToCheckout,
		Items: []domain.OrderItem{
			{MedicineID: 1, MedicineName: "A", Quantity: 2, UnitPrice: 5.00},
			{MedicineID: 2, MedicineName: "B", Quantity: 1, UnitPrice: 12.05},
		},
	}
	require.NoError(t, r.Create(ctx, order))
	require.NotZero(t, order.ID)

	got, err := r.GetForUser(ctx, order.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 22.05, got.Total)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "A", got.Items[0].MedicineName)

	// Another user's lookup is a plain not-found.
	_, err = r.GetForUser(ctx, order.ID, 8)
	assert.ErrorIs(t, err, ErrNotFound)

	// Admin lookup is unscoped.
	_, err = r.GetByID(ctx, order.ID)
	require.NoError(t, err)
}

func TestOrderUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewOrders(testDB(t))

	order := &domain.Order{
		UserID: 1,
		Total:  5,
		Status: domain.StatusReadyToCheckout,
		Items:  []domain.OrderItem{{MedicineID: 1, MedicineName: "A", Quantity: 1, UnitPrice: 5}},
	}
	require.NoError(t, r.Create(ctx, order))

	ref := "pay_123"
	reason := "test"
	now := time.Now().UTC()
	order.Status = domain.StatusCancelled
	order.PaymentRef = &ref
	order.Reason = &reason
	order.CancelledAt = &now
	require.NoError(t, r.Update(ctx, order))

	got, err := r.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	require.NotNil(t, got.PaymentRef)
	assert.Equal(t, "pay_123", *got.PaymentRef)
	assert.NotNil(t, got.CancelledAt)

	missing := &domain.Order{ID: 9999, Status: domain.StatusPaid}
	assert.ErrorIs(t, r.Update(ctx, missing), ErrNotFound)
}

func TestOrderLists(t *testing.T) {
	ctx := context.Background()
	r := NewOrders(testDB(t))

	for i, userID := range []int64{1, 1, 2} {
		order := &domain.Order{
			UserID: userID,
			Total:  float64(i + 1),
			Status: domain.StatusReadyToCheckout,
			Items:  []domain.OrderItem{{MedicineID: 1, MedicineName: "A", Quantity: 1, UnitPrice: 1}},
		}
		require.NoError(t, r.Create(ctx, order))
	}

	mine, err := r.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, o := range mine {
		assert.Len(t, o.Items, 1)
	}

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
