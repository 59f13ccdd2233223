package controllers

import (
	"strconv"
	"time"

	"github.com/shashiranjanraj/zepto/app/payments"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

type PaymentController struct {
	gateway payments.Gateway
}

func NewPaymentController(gateway payments.Gateway) *PaymentController {
	return &PaymentController{gateway: gateway}
}

func (pc *PaymentController) Methods(c *ctx.Context) {
	c.Success(payments.Methods())
}

type chargeInput struct {
	Amount   float64 `json:"amount"   validate:"gt=0"`
	Currency string  `json:"currency" validate:"nullable,in=INR"`
}

// Create opens a payment with the configured provider.
func (pc *PaymentController) Create(c *ctx.Context) {
	var in chargeInput
	if !c.BindJSON(&in) {
		return
	}
	actor := c.Actor()
	res, err := pc.gateway.CreateCharge(c.Context(), payments.Charge{
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  "rcpt_" + strconv.FormatInt(time.Now().UnixMilli(), 10),
		Notes:    map[string]string{"userId": actor.UserID},
	})
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

// Verify checks the provider's signature without creating an order.
func (pc *PaymentController) Verify(c *ctx.Context) {
	var in payments.Verification
	if !c.BindJSON(&in) {
		return
	}
	ok, err := pc.gateway.Verify(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	if !ok {
		c.Fail(apperr.Invalid("Payment verification failed"))
		return
	}
	c.Message("Payment verified successfully", map[string]any{
		"verified":  true,
		"paymentId": in.PaymentID,
		"orderId":   in.GatewayOrderID,
	})
}
