// Package listeners reacts to order events: audit logging, metrics and
// low-stock alerts.
package listeners

import (
	"context"
	"strconv"

	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/pkg/event"
	"github.com/shashiranjanraj/zepto/pkg/logger"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
)

// Register attaches every order listener to d.
func Register(d *event.Dispatcher, products repositories.ProductRepository) {
	d.Listen(services.EventOrderPlaced, OrderPlaced)
	d.Listen(services.EventOrderPlaced, LowStockAlert(products))
	d.Listen(services.EventOrderStatusChanged, StatusChanged)
}

func OrderPlaced(ctx context.Context, payload any) {
	e, ok := payload.(services.OrderPlaced)
	if !ok {
		return
	}
	metrics.OrdersPlaced.WithLabelValues(string(e.Order.PaymentMethod)).Inc()
	logger.WithCtx(ctx).Info("audit: order placed",
		"audit", true,
		"order_id", e.Order.OrderID,
		"user_id", e.Order.UserID,
		"total", e.Order.TotalAmount,
		"payment_status", e.Order.PaymentStatus,
	)
}

// LowStockAlert warns about every ordered product that is now at or below
// its low-stock threshold.
func LowStockAlert(products repositories.ProductRepository) event.Handler {
	return func(ctx context.Context, payload any) {
		e, ok := payload.(services.OrderPlaced)
		if !ok {
			return
		}
		log := logger.WithCtx(ctx)
		for _, item := range e.Order.Items {
			p, err := products.FindByID(ctx, item.ProductID)
			if err != nil {
				log.Warn("stock alert: product lookup failed", "product_id", item.ProductID, "error", err)
				continue
			}
			if p.Stock <= p.LowStockThreshold {
				log.Warn("stock alert: product running low",
					"product_id", p.ID, "name", p.Name, "stock", p.Stock, "threshold", p.LowStockThreshold)
			}
		}
	}
}

func StatusChanged(ctx context.Context, payload any) {
	e, ok := payload.(services.OrderStatusChanged)
	if !ok {
		return
	}
	metrics.StatusTransitions.WithLabelValues(string(e.To), strconv.FormatBool(e.Suspicious)).Inc()

	log := logger.WithCtx(ctx).With(
		"audit", true,
		"order_id", e.OrderID,
		"from", e.From,
		"to", e.To,
		"actor", e.Actor.UserID,
		"admin", e.Actor.IsAdmin,
	)
	if e.Suspicious {
		log.Warn("audit: order left a terminal status")
		return
	}
	log.Info("audit: order status changed")
}
