package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medistore/m/internal/domain"
	"medistore/m/internal/payment"
	"medistore/m/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrPrescriptionRequired rejects the whole order when any line item
	// needs a prescription and none was supplied.
	ErrPrescriptionRequired = errors.New("prescription required")
	ErrPaymentFailed        = errors.New("payment failed")
)

// StateConflictError reports an operation attempted against an order in the
// wrong lifecycle state.
type StateConflictError struct {
	Current domain.OrderStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order is %s", e.Current)
}

const (
	defaultCancelReason  = "Cancelled by user"
	defaultDeclineReason = "Declined by pharmacy"
)

// ItemRequest is one requested (medicine, quantity) pair.
type ItemRequest struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

// SkippedItem records a best-effort stock adjustment that could not be
// applied (the medicine no longer exists). Skips are reported and logged,
// never silently swallowed.
type SkippedItem struct {
	MedicineID int64  `json:"medicine_id"`
	Quantity   int64  `json:"quantity"`
	Reason     string `json:"reason"`
}

// CheckoutResult carries the updated order plus any line items whose stock
// adjustment was skipped.
type CheckoutResult struct {
	Order   *domain.Order `json:"order"`
	Skipped []SkippedItem `json:"skipped,omitempty"`
}

// OrderService is the order lifecycle engine: creation, checkout,
// cancellation, admin review and status overrides, with the paired stock
// reconciliation on pay/cancel.
type OrderService struct {
	medicines  repository.MedicineRepository
	orders     repository.OrderRepository
	gateway    payment.Gateway
	payTimeout time.Duration
	log        *zap.Logger
}

func NewOrderService(medicines repository.MedicineRepository, orders repository.OrderRepository, gateway payment.Gateway, payTimeout time.Duration, log *zap.Logger) *OrderService {
	if payTimeout <= 0 {
		payTimeout = 10 * time.Second
	}
	return &OrderService{medicines: medicines, orders: orders, gateway: gateway, payTimeout: payTimeout, log: log}
}

// Create validates the requested items, snapshots prices and names, and
// persists the order. Stock is validated but not decremented here; the
// decrement happens at checkout as a conditional atomic update.
func (s *OrderService) Create(ctx context.Context, userID int64, items []ItemRequest, prescriptionFile *string) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	var (
		total             float64
		needsPrescription bool
		lines             = make([]domain.OrderItem, 0, len(items))
	)
	for _, item := range items {
		if item.MedicineID <= 0 || item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: medicine_id and a positive quantity are required for each item", ErrInvalidInput)
		}
		med, err := s.medicines.GetByID(ctx, item.MedicineID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown medicine %d", ErrInvalidInput, item.MedicineID)
		}
		if err != nil {
			return nil, err
		}
		if med.Stock < item.Quantity {
			return nil, &repository.InsufficientStockError{MedicineID: med.ID, Name: med.Name, Available: med.Stock}
		}
		if med.Prescription {
			needsPrescription = true
		}
		total += med.Price * float64(item.Quantity)
		lines = append(lines, domain.OrderItem{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Quantity:     item.Quantity,
			UnitPrice:    med.Price,
		})
	}

	if needsPrescription && prescriptionFile == nil {
		return nil, ErrPrescriptionRequired
	}

	status := domain.StatusReadyToCheckout
	if needsPrescription {
		status = domain.StatusPendingVerification
	}

	order := &domain.Order{
		UserID:           userID,
		Total:            round2(total),
		Status:           status,
		PrescriptionFile: prescriptionFile,
		Items:            lines,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Checkout settles an order in ReadyToCheckout. Stock is reserved first
// with conditional atomic decrements; the gateway is charged only after
// the reservation holds, and a declined charge releases it again, so a
// failed checkout leaves both the order and the catalog unchanged.
func (s *OrderService) Checkout(ctx context.Context, userID, orderID int64, method, deliveryMethod string) (*CheckoutResult, error) {
	order, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusReadyToCheckout {
		return nil, &StateConflictError{Current: order.Status}
	}

	lines := stockLines(order.Items)
	skippedLines, err := s.medicines.ReserveStock(ctx, lines)
	if err != nil {
		return nil, err
	}
	skipped := s.reportSkipped(orderID, skippedLines, "medicine no longer exists")

	payCtx, cancel := context.WithTimeout(ctx, s.payTimeout)
	defer cancel()
	receipt, err := s.gateway.Charge(payCtx, payment.Charge{
		OrderID:        order.ID,
		Amount:         order.Total,
		Method:         method,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		s.log.Warn("checkout payment failed, releasing reserved stock",
			zap.Int64("order_id", order.ID), zap.Error(err))
		reserved := withoutSkipped(lines, skippedLines)
		if _, relErr := s.medicines.ReleaseStock(ctx, reserved); relErr != nil {
			s.log.Error("failed to release reserved stock after payment failure",
				zap.Int64("order_id", order.ID), zap.Error(relErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	order.Status = domain.StatusPaid
	order.Tracking = string(domain.StatusProcessing)
	order.PaymentRef = &receipt.Reference
	order.DeliveryMethod = deliveryMethod
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order, Skipped: skipped}, nil
}

// Cancel transitions a cancellable order to Cancelled, restoring stock when
// the order had already been paid. Per-item restore is best effort.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int64, reason string) (*CheckoutResult, error) {
	order, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, &StateConflictError{Current: order.Status}
	}

	var skipped []SkippedItem
	if order.Status.StockCommitted() {
		skippedLines, err := s.medicines.ReleaseStock(ctx, stockLines(order.Items))
		if err != nil {
			return nil, err
		}
		skipped = s.reportSkipped(orderID, skippedLines, "medicine no longer exists")
	}

	if reason == "" {
		reason = defaultCancelReason
	}
	now := time.Now().UTC()
	order.Status = domain.StatusCancelled
	order.Reason = &reason
	order.CancelledAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return &CheckoutResult{Order: order, Skipped: skipped}, nil
}

// Approve moves an order from PendingVerification to ReadyToCheckout.
// Re-applying to an already-transitioned order is rejected.
func (s *OrderService) Approve(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPendingVerification {
		return nil, &StateConflictError{Current: order.Status}
	}
	order.Status = domain.StatusReadyToCheckout
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Decline moves an order from PendingVerification to Declined with an
// optional reason. No stock effect: nothing was reserved at creation.
func (s *OrderService) Decline(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPendingVerification {
		return nil, &StateConflictError{Current: order.Status}
	}
	if reason == "" {
		reason = defaultDeclineReason
	}
	order.Status = domain.StatusDeclined
	order.Reason = &reason
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus is the administrative override: the owning user or an admin
// sets the status and optionally the tracking sub-status directly. It
// performs no stock reconciliation; callers own consistency here.
func (s *OrderService) UpdateStatus(ctx context.Context, userID int64, admin bool, orderID int64, status domain.OrderStatus, tracking string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	var (
		order *domain.Order
		err   error
	)
	if admin {
		order, err = s.orders.GetByID(ctx, orderID)
	} else {
		order, err = s.orders.GetForUser(ctx, orderID, userID)
	}
	if err != nil {
		return nil, err
	}
	order.Status = status
	if tracking != "" {
		order.Tracking = tracking
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) reportSkipped(orderID int64, lines []repository.StockLine, reason string) []SkippedItem {
	if len(lines) == 0 {
		return nil
	}
	skipped := make([]SkippedItem, 0, len(lines))
	for _, line := range lines {
		s.log.Warn("stock adjustment skipped",
			zap.Int64("order_id", orderID),
			zap.Int64("medicine_id", line.MedicineID),
			zap.Int64("quantity", line.Quantity),
			zap.String("reason", reason))
		skipped = append(skipped, SkippedItem{MedicineID: line.MedicineID, Quantity: line.Quantity, Reason: reason})
	}
	return skipped
}

func stockLines(items []domain.OrderItem) []repository.StockLine {
	lines := make([]repository.StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, repository.StockLine{MedicineID: item.MedicineID, Quantity: item.Quantity})
	}
	return lines
}

func withoutSkipped(lines, skipped []repository.StockLine) []repository.StockLine {
	if len(skipped) == 0 {
		return lines
	}
	gone := make(map[int64]bool, len(skipped))
	for _, line := range skipped {
		gone[line.MedicineID] = true
	}
	kept := lines[:0:0]
	for _, line := range lines {
		if !gone[line.MedicineID] {
			kept = append(kept, line)
		}
	}
	return kept
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
