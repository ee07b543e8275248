package payment

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrDeclined is returned when the gateway refuses a charge.
var ErrDeclined = errors.New("payment declined")

// Charge describes one settlement attempt. IdempotencyKey lets a retried
// charge be recognized by the gateway instead of double-billing.
type Charge struct {
	OrderID        int64
	Amount         float64
	Method         string
	IdempotencyKey string
}

// Receipt is the gateway's confirmation of a settled charge.
type Receipt struct {
	Reference string `json:"reference"`
}

// Gateway is the external settlement collaborator. Implementations must
// honor ctx cancellation; callers set the timeout.
type Gateway interface {
	Charge(ctx context.Context, c Charge) (*Receipt, error)
}

// Simulator models a real gateway: multi-second-ish latency, independent
// failure mode, and no memory of past charges beyond the receipt it hands
// back.
type Simulator struct {
	successRate float64
	latency     time.Duration
	log         *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(successRate float64, latency time.Duration, log *zap.Logger) *Simulator {
	if successRate < 0 || successRate > 1 {
		successRate = 0.9
	}
	return &Simulator{
		successRate: successRate,
		latency:     latency,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var _ Gateway = (*Simulator)(nil)

func (s *Simulator) Charge(ctx context.Context, c Charge) (*Receipt, error) {
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		s.log.Warn("payment declined",
			zap.Int64("order_id", c.OrderID),
			zap.String("idempotency_key", c.IdempotencyKey))
		return nil, ErrDeclined
	}

	ref := "pay_" + uuid.NewString()
	s.log.Info("payment settled",
		zap.Int64("order_id", c.OrderID),
		zap.Float64("amount", c.Amount),
		zap.String("reference", ref))
	return &Receipt{Reference: ref}, nil
}
