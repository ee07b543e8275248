package repository

import (
	"context"
	"errors"
	"fmt"

	"medistore/m/internal/domain"
)

// ErrNotFound is returned when an entity does not exist or is not visible
// to the caller.
var ErrNotFound = errors.New("not found")

// InsufficientStockError is returned when a requested quantity exceeds the
// medicine's available stock.
type InsufficientStockError struct {
	MedicineID int64
	Name       string
	Available  int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Name, e.Available)
}

// StockLine is a relative stock movement for one medicine.
type StockLine struct {
	MedicineID int64
	Quantity   int64
}

// MedicineRepository provides catalog access. Reserve/Release apply
// relative adjustments at the storage layer; callers never read-modify-write
// stock in application code.
type MedicineRepository interface {
	Create(ctx context.Context, m *domain.Medicine) error
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	Update(ctx context.Context, m *domain.Medicine) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, query string) ([]domain.Medicine, error)

	// ReserveStock conditionally decrements stock (and increments sold) for
	// every line inside a single transaction. Lines whose medicine no longer
	// exists are skipped and reported back; a line that would drive stock
	// negative rolls the whole transaction back with InsufficientStockError.
	ReserveStock(ctx context.Context, lines []StockLine) (skipped []StockLine, err error)

	// ReleaseStock adds quantities back and decrements sold, flooring sold
	// at zero. Missing medicines are skipped and reported back.
	ReleaseStock(ctx context.Context, lines []StockLine) (skipped []StockLine, err error)
}

// OrderRepository persists orders and their snapshotted line items.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
}

// UserRepository persists accounts and medical profiles.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, hashed string) error
	GetProfile(ctx context.Context, userID int64) (*domain.MedicalProfile, error)
	SaveProfile(ctx context.Context, p *domain.MedicalProfile) error
}

// TestimonialRepository persists testimonials and their moderation state.
type TestimonialRepository interface {
	Create(ctx context.Context, t *domain.Testimonial) error
	ListPublic(ctx context.Context) ([]domain.Testimonial, error)
	ListAll(ctx context.Context) ([]domain.Testimonial, error)
	SetStatus(ctx context.Context, id int64, status domain.TestimonialStatus) error
	Delete(ctx context.Context, id int64) error
}
