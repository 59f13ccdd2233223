package payments

import (
	"context"
	"crypto/hmac"
	"errors"
	"time"

	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/httpclient"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

// Razorpay creates orders through the Razorpay REST API and checks payment
// signatures locally with the key secret.
type Razorpay struct {
	keyID     string
	keySecret string
	baseURL   string
	now       func() time.Time
}

func NewRazorpay(keyID, keySecret, baseURL string) (*Razorpay, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("payments: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay driver")
	}
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	return &Razorpay{keyID: keyID, keySecret: keySecret, baseURL: baseURL, now: time.Now}, nil
}

func (r *Razorpay) Name() string { return "razorpay" }

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (r *Razorpay) CreateCharge(ctx context.Context, c Charge) (*ChargeResult, error) {
	if err := validateCharge(&c); err != nil {
		return nil, err
	}
	if c.Receipt == "" {
		c.Receipt = receipt("order", r.now().UnixMilli())
	}

	notes := map[string]string{"orderType": "grocery"}
	for k, v := range c.Notes {
		notes[k] = v
	}

	resp, err := httpclient.Post(r.baseURL+"/v1/orders").
		BasicAuth(r.keyID, r.keySecret).
		Body(map[string]any{
			"amount":   toPaise(c.Amount),
			"currency": c.Currency,
			"receipt":  c.Receipt,
			"notes":    notes,
		}).
		Retry(3, 200*time.Millisecond).
		WithContext(ctx).
		Send()
	if err != nil {
		return nil, apperr.Internal(err, "payments: create razorpay order")
	}
	if err := resp.Throw(); err != nil {
		logger.WithCtx(ctx).Error("payments: razorpay rejected order", "status", resp.StatusCode, "error", err)
		return nil, apperr.Internal(err, "payments: create razorpay order")
	}

	var order razorpayOrder
	if err := resp.JSON(&order); err != nil {
		return nil, apperr.Internal(err, "payments: decode razorpay order")
	}

	return &ChargeResult{
		GatewayOrderID: order.ID,
		Amount:         float64(order.Amount) / 100,
		Currency:       order.Currency,
		KeyID:          r.keyID,
		Gateway:        r.Name(),
	}, nil
}

// Verify recomputes the signature and compares in constant time.
func (r *Razorpay) Verify(ctx context.Context, v Verification) (bool, error) {
	if err := validateVerification(v); err != nil {
		return false, err
	}
	expected := Sign(r.keySecret, v.GatewayOrderID, v.PaymentID)
	ok := hmac.Equal([]byte(expected), []byte(v.Signature))
	recordVerification(r.Name(), ok)
	if !ok {
		logger.WithCtx(ctx).Warn("payments: signature mismatch",
			"gateway_order_id", v.GatewayOrderID, "payment_id", v.PaymentID, "audit", true)
	}
	return ok, nil
}
