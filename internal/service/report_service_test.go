package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSummary(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	reports := NewReportService(f.db)

	a := f.addMedicine(t, "A", 5.00, 10, false)
	b := f.addMedicine(t, "B", 12.00, 8, false)

	// Two settled orders, one declined-equivalent, one still pending.
	first, err := f.svc.Create(ctx, 1, []ItemRequest{{MedicineID: a.ID, Quantity: 2}}, nil)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, 1, first.ID, "card", "")
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, 2, []ItemRequest{{MedicineID: b.ID, Quantity: 3}}, nil)
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, 2, second.ID, "card", "")
	require.NoError(t, err)

	rx := f.addMedicine(t, "C", 1.00, 5, true)
	gated, err := f.svc.Create(ctx, 1, []ItemRequest{{MedicineID: rx.ID, Quantity: 1}}, strPtr("uploads/rx.pdf"))
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, gated.ID, "illegible")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, 1, []ItemRequest{{MedicineID: a.ID, Quantity: 1}}, nil)
	require.NoError(t, err)

	summary, err := reports.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 46.00, summary.TotalRevenue)
	require.NotNil(t, summary.BestSeller)
	assert.Equal(t, "B", summary.BestSeller.Name)
	assert.Len(t, summary.Medicines, 3)
	assert.Equal(t, int64(3), summary.ApprovedOrders)
	assert.Equal(t, int64(1), summary.DeclinedOrders)
	assert.Equal(t, 3.0, summary.ApprovalRatio)
}

func TestReportSummary_Empty(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	reports := NewReportService(f.db)

	summary, err := reports.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalRevenue)
	assert.Nil(t, summary.BestSeller)
	assert.Empty(t, summary.Medicines)
	assert.Zero(t, summary.DeclinedOrders)
	assert.Zero(t, summary.ApprovalRatio)
}

func TestReportBestSellerIgnoresUnsold(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	reports := NewReportService(f.db)
	f.addMedicine(t, "A", 5.00, 10, false)

	summary, err := reports.Summary(ctx)
	require.NoError(t, err)
	assert.Nil(t, summary.BestSeller)
}
