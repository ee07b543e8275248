package domain

import "time"

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	StatusPendingVerification OrderStatus = "PendingVerification"
	StatusReadyToCheckout     OrderStatus = "ReadyToCheckout"
	StatusPaid                OrderStatus = "Paid"
	StatusProcessing          OrderStatus = "Processing"
	StatusShipped             OrderStatus = "Shipped"
	StatusDelivered           OrderStatus = "Delivered"
	StatusCancelled           OrderStatus = "Cancelled"
	StatusDeclined            OrderStatus = "Declined"
)

// Valid reports whether s is one of the enumerated statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusReadyToCheckout, StatusPaid,
		StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusDeclined
}

// Cancellable reports whether a user may cancel an order in state s.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case StatusPendingVerification, StatusReadyToCheckout, StatusPaid, StatusProcessing:
		return true
	}
	return false
}

// StockCommitted reports whether an order in state s has had stock
// decremented, so cancellation must restore it.
func (s OrderStatus) StockCommitted() bool {
	return s == StatusPaid || s == StatusProcessing
}

// OrderItem is one line of an order. Name and unit price are captured at
// order creation; later catalog edits never change them.
type OrderItem struct {
	ID           int64   `db:"id" json:"id"`
	OrderID      int64   `db:"order_id" json:"order_id"`
	MedicineID   int64   `db:"medicine_id" json:"medicine_id"`
	MedicineName string  `db:"medicine_name" json:"medicine_name"`
	Quantity     int64   `db:"quantity" json:"quantity"`
	UnitPrice    float64 `db:"unit_price" json:"unit_price"`
}

type Order struct {
	ID               int64       `db:"id" json:"id"`
	UserID           int64       `db:"user_id" json:"user_id"`
	Total            float64     `db:"total" json:"total"`
	Status           OrderStatus `db:"status" json:"status"`
	Tracking         string      `db:"tracking" json:"tracking,omitempty"`
	PrescriptionFile *string     `db:"prescription_file" json:"prescription_file,omitempty"`
	PaymentRef       *string     `db:"payment_ref" json:"payment_ref,omitempty"`
	DeliveryMethod   string      `db:"delivery_method" json:"delivery_method,omitempty"`
	Reason           *string     `db:"reason" json:"reason,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
	CancelledAt      *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Items            []OrderItem `db:"-" json:"items"`
}
