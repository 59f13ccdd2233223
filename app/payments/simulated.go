package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

// Simulated stands in for a real provider in development and tests. It
// accepts every complete verification.
type Simulated struct {
	delay time.Duration
}

func NewSimulated(delay time.Duration) *Simulated { return &Simulated{delay: delay} }

func (s *Simulated) Name() string { return "simulated" }

// CreateCharge waits for the configured delay, or until ctx ends, then
// returns a fabricated gateway order.
func (s *Simulated) CreateCharge(ctx context.Context, c Charge) (*ChargeResult, error) {
	if err := validateCharge(&c); err != nil {
		return nil, err
	}
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	res := &ChargeResult{
		GatewayOrderID: "order_sim_" + uuid.NewString(),
		Amount:         c.Amount,
		Currency:       c.Currency,
		Gateway:        s.Name(),
	}
	logger.WithCtx(ctx).Debug("payments: simulated charge", "gateway_order_id", res.GatewayOrderID, "amount", c.Amount)
	return res, nil
}

func (s *Simulated) Verify(_ context.Context, v Verification) (bool, error) {
	if err := validateVerification(v); err != nil {
		return false, err
	}
	recordVerification(s.Name(), true)
	return true, nil
}

// TransactionID returns a fabricated payment id for prepaid orders placed
// without a gateway round trip.
func TransactionID() string { return "txn_" + uuid.NewString() }
