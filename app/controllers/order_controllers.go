package controllers

import (
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/ctx"
)

// IdempotencyKeyHeader lets a client retry an order submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

func (oc *OrderController) Store(c *ctx.Context) {
	var in services.PlaceOrderInput
	if !c.BindJSON(&in) {
		return
	}
	in.IdempotencyKey = c.Header(IdempotencyKeyHeader)

	view, err := oc.orders.Place(c.Context(), c.Actor(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(view, "Order placed successfully")
}

// Index lists the caller's own orders, newest first.
func (oc *OrderController) Index(c *ctx.Context) {
	orders, err := oc.orders.ListForUser(c.Context(), c.Actor())
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(orders, len(orders), nil)
}

func (oc *OrderController) Show(c *ctx.Context) {
	view, err := oc.orders.Get(c.Context(), c.Actor(), c.Param("id"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(view)
}

type statusInput struct {
	Status models.OrderStatus `json:"status" validate:"required,in=Confirmed,Packed,Out for Delivery,Delivered,Cancelled"`
}

// UpdateStatus serves both the owner route and the admin route; the
// service decides who may change what.
func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var in statusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Context(), c.Actor(), c.Param("id"), in.Status)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message("Order status updated", order)
}

// AdminIndex lists every order, optionally filtered by ?status=.
func (oc *OrderController) AdminIndex(c *ctx.Context) {
	orders, err := oc.orders.AdminList(c.Context(), models.OrderStatus(c.Query("status")))
	if err != nil {
		c.Fail(err)
		return
	}
	c.List(orders, len(orders), nil)
}
