package services

import (
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/pkg/auth"
)

// Domain events fired after the emitting operation has committed.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderPlaced is the payload of EventOrderPlaced.
type OrderPlaced struct {
	Order models.Order
	Actor auth.Actor
}

// OrderStatusChanged is the payload of EventOrderStatusChanged. Suspicious
// marks a move out of Delivered or Cancelled.
type OrderStatusChanged struct {
	OrderID    string
	UserID     string
	From       models.OrderStatus
	To         models.OrderStatus
	Suspicious bool
	Actor      auth.Actor
}
