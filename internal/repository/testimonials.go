package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"medistore/m/internal/domain"
)

// Testimonials is the sqlx-backed testimonial repository.
type Testimonials struct {
	db *sqlx.DB
}

func NewTestimonials(db *sqlx.DB) *Testimonials { return &Testimonials{db: db} }

var _ TestimonialRepository = (*Testimonials)(nil)

func (r *Testimonials) Create(ctx context.Context, t *domain.Testimonial) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO testimonials (user_id, author, content, status) VALUES (?, ?, ?, ?)`,
		t.UserID, t.Author, t.Content, domain.TestimonialPending)
	if err != nil {
		return err
	}
	t.Status = domain.TestimonialPending
	t.ID, err = res.LastInsertId()
	return err
}

func (r *Testimonials) ListPublic(ctx context.Context) ([]domain.Testimonial, error) {
	testimonials := []domain.Testimonial{}
	err := r.db.SelectContext(ctx, &testimonials,
		`SELECT id, user_id, author, content, status, created_at FROM testimonials
		 WHERE status = ? ORDER BY created_at DESC`, domain.TestimonialApproved)
	return testimonials, err
}

func (r *Testimonials) ListAll(ctx context.Context) ([]domain.Testimonial, error) {
	testimonials := []domain.Testimonial{}
	err := r.db.SelectContext(ctx, &testimonials,
		`SELECT id, user_id, author, content, status, created_at FROM testimonials ORDER BY created_at DESC`)
	return testimonials, err
}

func (r *Testimonials) SetStatus(ctx context.Context, id int64, status domain.TestimonialStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE testimonials SET status = ? WHERE id = ?`, status, id)
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

func (r *Testimonials) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM testimonials WHERE id = ?`, id)
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
