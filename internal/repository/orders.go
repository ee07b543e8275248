package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"medistore/m/internal/domain"
)

// Orders is the sqlx-backed order ledger.
type Orders struct {
	db *sqlx.DB
}

func NewOrders(db *sqlx.DB) *Orders { return &Orders{db: db} }

var _ OrderRepository = (*Orders)(nil)

const orderColumns = `id, user_id, total, status, tracking, prescription_file, payment_ref, delivery_method, reason, created_at, updated_at, cancelled_at`

func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, total, status, tracking, prescription_file, payment_ref, delivery_method, reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.Total, o.Status, o.Tracking, o.PrescriptionFile, o.PaymentRef, o.DeliveryMethod, o.Reason, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, medicine_id, medicine_name, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?)`,
			item.OrderID, item.MedicineID, item.MedicineName, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
		if item.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Orders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// GetForUser scopes the lookup to the owning user. An order owned by
// someone else is reported as not found, never as forbidden.
func (r *Orders) GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *Orders) get(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var o domain.Order
	err := r.db.GetContext(ctx, &o, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &o.Items,
		`SELECT id, order_id, medicine_id, medicine_name, quantity, unit_price
		 FROM order_items WHERE order_id = ? ORDER BY id`, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Orders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, orders)
}

func (r *Orders) ListAll(ctx context.Context) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, orders)
}

func (r *Orders) attachItems(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	query, args, err := sqlx.In(
		`SELECT id, order_id, medicine_id, medicine_name, quantity, unit_price
		 FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var items []domain.OrderItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	byOrder := make(map[int64][]domain.OrderItem)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (r *Orders) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, tracking = ?, payment_ref = ?, delivery_method = ?, reason = ?, updated_at = ?, cancelled_at = ?
		 WHERE id = ?`,
		o.Status, o.Tracking, o.PaymentRef, o.DeliveryMethod, o.Reason, o.UpdatedAt, o.CancelledAt, o.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
