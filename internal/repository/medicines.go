package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"medistore/m/internal/domain"
)

// Medicines is the sqlx-backed catalog repository.
type Medicines struct {
	db *sqlx.DB
}

func NewMedicines(db *sqlx.DB) *Medicines { return &Medicines{db: db} }

var _ MedicineRepository = (*Medicines)(nil)

func (r *Medicines) Create(ctx context.Context, m *domain.Medicine) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO medicines (name, brand, dosage, category, price, stock, prescription, sold)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		m.Name, m.Brand, m.Dosage, m.Category, m.Price, m.Stock, m.Prescription)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (r *Medicines) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	var m domain.Medicine
	err := r.db.GetContext(ctx, &m,
		`SELECT id, name, brand, dosage, category, price, stock, prescription, sold, created_at, updated_at
		 FROM medicines WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Medicines) Update(ctx context.Context, m *domain.Medicine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE medicines SET name = ?, brand = ?, dosage = ?, category = ?, price = ?, stock = ?, prescription = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		m.Name, m.Brand, m.Dosage, m.Category, m.Price, m.Stock, m.Prescription, m.ID)
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

func (r *Medicines) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
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

func (r *Medicines) List(ctx context.Context, query string) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	if query == "" {
		err := r.db.SelectContext(ctx, &medicines,
			`SELECT id, name, brand, dosage, category, price, stock, prescription, sold, created_at, updated_at
			 FROM medicines ORDER BY name LIMIT 25`)
		return medicines, err
	}
	like := "%" + query + "%"
	err := r.db.SelectContext(ctx, &medicines,
		`SELECT id, name, brand, dosage, category, price, stock, prescription, sold, created_at, updated_at
		 FROM medicines WHERE name LIKE ? OR brand LIKE ? OR category LIKE ? ORDER BY name LIMIT 25`,
		like, like, like)
	return medicines, err
}

// ReserveStock applies every decrement as a conditional relative update so
// stock can never be driven below zero, even under concurrent checkouts.
func (r *Medicines) ReserveStock(ctx context.Context, lines []StockLine) ([]StockLine, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var skipped []StockLine
	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			`UPDATE medicines SET stock = stock - ?, sold = sold + ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND stock >= ?`,
			line.Quantity, line.Quantity, line.MedicineID, line.Quantity)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		// Either the medicine is gone (skip, best effort) or the decrement
		// would go negative (fail the whole reservation).
		var cur struct {
			Name  string `db:"name"`
			Stock int64  `db:"stock"`
		}
		err = tx.GetContext(ctx, &cur, `SELECT name, stock FROM medicines WHERE id = ?`, line.MedicineID)
		if errors.Is(err, sql.ErrNoRows) {
			skipped = append(skipped, line)
			continue
		}
		if err != nil {
			return nil, err
		}
		return nil, &InsufficientStockError{MedicineID: line.MedicineID, Name: cur.Name, Available: cur.Stock}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return skipped, nil
}

func (r *Medicines) ReleaseStock(ctx context.Context, lines []StockLine) ([]StockLine, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var skipped []StockLine
	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			`UPDATE medicines SET stock = stock + ?, sold = MAX(sold - ?, 0), updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			line.Quantity, line.Quantity, line.MedicineID)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			skipped = append(skipped, line)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return skipped, nil
}
