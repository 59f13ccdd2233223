// Package payments adapts the checkout flow to a payment provider. The
// provider is chosen by PAYMENT_DRIVER; callers only see Gateway.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
)

// Charge asks the provider to open a payment for Amount rupees.
type Charge struct {
	Amount   float64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// ChargeResult is what the client needs to open the provider's checkout.
type ChargeResult struct {
	GatewayOrderID string  `json:"orderId"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	KeyID          string  `json:"keyId,omitempty"`
	Gateway        string  `json:"gateway"`
}

// Verification is the provider's proof that a payment completed.
type Verification struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

// Complete reports whether every field is present.
func (v Verification) Complete() bool {
	return v.GatewayOrderID != "" && v.PaymentID != "" && v.Signature != ""
}

type Gateway interface {
	Name() string
	CreateCharge(ctx context.Context, c Charge) (*ChargeResult, error)
	// Verify reports whether v is authentic. An incomplete v is an
	// InvalidArgument error, not a false result.
	Verify(ctx context.Context, v Verification) (bool, error)
}

// New builds the gateway selected by PAYMENT_DRIVER.
func New() (Gateway, error) {
	switch config.PaymentDriver() {
	case "razorpay":
		return NewRazorpay(config.RazorpayKeyID(), config.RazorpayKeySecret(), config.RazorpayBaseURL())
	default:
		return NewSimulated(config.PaymentSimulatedDelay()), nil
	}
}

// Method is one entry of the checkout payment picker.
type Method struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Enabled bool   `json:"enabled"`
}

// Methods lists the payment options offered at checkout.
func Methods() []Method {
	return []Method{
		{ID: "upi", Name: "UPI", Icon: "💳", Enabled: true},
		{ID: "card", Name: "Credit/Debit Card", Icon: "💳", Enabled: true},
		{ID: "netbanking", Name: "Net Banking", Icon: "🏦", Enabled: true},
		{ID: "wallet", Name: "Wallet", Icon: "👛", Enabled: true},
		{ID: "cod", Name: "Cash on Delivery", Icon: "💵", Enabled: false},
	}
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validateCharge(c *Charge) error {
	if c.Amount <= 0 || math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		return apperr.Invalid("Valid amount is required")
	}
	if c.Currency == "" {
		c.Currency = "INR"
	}
	return nil
}

func validateVerification(v Verification) error {
	if !v.Complete() {
		return apperr.Invalid("Missing payment verification details")
	}
	return nil
}

func recordVerification(gateway string, ok bool) {
	result := "failed"
	if ok {
		result = "verified"
	}
	metrics.PaymentVerifications.WithLabelValues(gateway, result).Inc()
}

// toPaise converts rupees to the smallest currency unit.
func toPaise(amount float64) int64 { return int64(math.Round(amount * 100)) }

func receipt(prefix string, millis int64) string { return fmt.Sprintf("%s_%d", prefix, millis) }
