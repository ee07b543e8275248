package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"medistore/m/internal/domain"
)

// StockListing is one row of the per-medicine stock/price report.
type StockListing struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Brand string  `db:"brand" json:"brand"`
	Price float64 `db:"price" json:"price"`
	Stock int64   `db:"stock" json:"stock"`
	Sold  int64   `db:"sold" json:"sold"`
}

// Summary is the admin report: a snapshot of the ledger at call time.
type Summary struct {
	TotalRevenue   float64          `json:"total_revenue"`
	BestSeller     *domain.Medicine `json:"best_seller,omitempty"`
	Medicines      []StockListing   `json:"medicines"`
	ApprovedOrders int64            `json:"approved_orders"`
	DeclinedOrders int64            `json:"declined_orders"`
	ApprovalRatio  float64          `json:"approval_ratio"`
}

// ReportService aggregates over the order ledger and catalog. Read-only.
type ReportService struct {
	db *sqlx.DB
}

func NewReportService(db *sqlx.DB) *ReportService { return &ReportService{db: db} }

var settledStatuses = []domain.OrderStatus{
	domain.StatusPaid, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered,
}

func (s *ReportService) Summary(ctx context.Context) (*Summary, error) {
	out := &Summary{}

	query, args, err := sqlx.In(
		`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status IN (?)`, settledStatuses)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)
	if err := s.db.GetContext(ctx, &out.TotalRevenue, query, args...); err != nil {
		return nil, err
	}

	var best domain.Medicine
	err = s.db.GetContext(ctx, &best,
		`SELECT id, name, brand, dosage, category, price, stock, prescription, sold, created_at, updated_at
		 FROM medicines WHERE sold > 0 ORDER BY sold DESC, name LIMIT 1`)
	if err == nil {
		out.BestSeller = &best
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	out.Medicines = []StockListing{}
	if err := s.db.SelectContext(ctx, &out.Medicines,
		`SELECT id, name, brand, price, stock, sold FROM medicines ORDER BY name`); err != nil {
		return nil, err
	}

	if err := s.db.GetContext(ctx, &out.ApprovedOrders,
		`SELECT COUNT(*) FROM orders WHERE status NOT IN (?, ?)`,
		domain.StatusPendingVerification, domain.StatusDeclined); err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &out.DeclinedOrders,
		`SELECT COUNT(*) FROM orders WHERE status = ?`, domain.StatusDeclined); err != nil {
		return nil, err
	}
	if out.DeclinedOrders > 0 {
		out.ApprovalRatio = float64(out.ApprovedOrders) / float64(out.DeclinedOrders)
	}
	return out, nil
}
