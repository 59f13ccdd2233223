package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/payments"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/auth"
	"github.com/shashiranjanraj/zepto/pkg/cache"
	"github.com/shashiranjanraj/zepto/pkg/event"
	"github.com/shashiranjanraj/zepto/pkg/logger"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
)

const idempotencyTTL = 24 * time.Hour

// OrderService places, reads and advances orders.
type OrderService struct {
	store   *repositories.Store
	gateway payments.Gateway
	zone    *DeliveryZone
	cache   cache.Store
	events  *event.Dispatcher
	now     func() time.Time
}

func NewOrderService(store *repositories.Store, gateway payments.Gateway, zone *DeliveryZone, c cache.Store, events *event.Dispatcher) *OrderService {
	return &OrderService{
		store:   store,
		gateway: gateway,
		zone:    zone,
		cache:   c,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OrderLine is one requested item. Name, Price and Image are what the
// client saw; the stored snapshot always comes from the catalog.
type OrderLine struct {
	Product  string  `json:"product"  validate:"required"`
	Quantity int     `json:"quantity" validate:"required,min=1"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

// PlaceOrderInput is the checkout request.
type PlaceOrderInput struct {
	Items           []OrderLine          `json:"items"           validate:"required"`
	DeliveryAddress models.Address       `json:"deliveryAddress"`
	TotalAmount     *float64             `json:"totalAmount"     validate:"nullable,gte=0"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"   validate:"nullable,in=Razorpay,COD,Card,UPI"`
	PaymentID       string               `json:"paymentId"`
	GatewayOrderID  string               `json:"razorpayOrderId"`
	Signature       string               `json:"razorpaySignature"`
	IdempotencyKey  string               `json:"-"`
}

func (in *PlaceOrderInput) check(zone *DeliveryZone) error {
	if len(in.Items) == 0 {
		return apperr.Invalid("No order items provided")
	}
	for i, line := range in.Items {
		if line.Product == "" {
			return apperr.Validation(map[string]string{fmt.Sprintf("items[%d].product", i): "The product field is required."})
		}
		if line.Quantity < 1 {
			return apperr.Validation(map[string]string{fmt.Sprintf("items[%d].quantity", i): "The quantity must be at least 1."})
		}
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PayRazorpay
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Invalid("Invalid payment method: %s", in.PaymentMethod)
	}
	if in.TotalAmount != nil && (*in.TotalAmount < 0 || math.IsNaN(*in.TotalAmount)) {
		return apperr.Invalid("Total amount must not be negative")
	}
	a := in.DeliveryAddress
	if a.Name == "" || a.Phone == "" || a.AddressLine == "" || a.City == "" || a.State == "" || a.Pincode == "" {
		return apperr.Invalid("Delivery address is required")
	}
	if !zone.Serviceable(a.Pincode) {
		return apperr.Invalid("We don't deliver to pincode %s", a.Pincode)
	}
	return nil
}

// Place validates the request, verifies any payment proof, then checks and
// decrements stock and inserts the order in one transaction. Either every
// line is reserved and the order exists, or nothing changed.
func (s *OrderService) Place(ctx context.Context, actor auth.Actor, in PlaceOrderInput) (*models.OrderView, error) {
	view, err := s.place(ctx, actor, in)
	if err != nil {
		metrics.OrderRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}
	return view, nil
}

func (s *OrderService) place(ctx context.Context, actor auth.Actor, in PlaceOrderInput) (*models.OrderView, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	if err := in.check(s.zone); err != nil {
		return nil, err
	}

	if in.Signature != "" {
		ok, err := s.gateway.Verify(ctx, payments.Verification{
			GatewayOrderID: in.GatewayOrderID,
			PaymentID:      in.PaymentID,
			Signature:      in.Signature,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Invalid("Payment verification failed")
		}
	}

	if in.IdempotencyKey != "" {
		existing, release, err := s.claimIdempotencyKey(ctx, actor, in.IdempotencyKey)
		if err != nil || existing != nil {
			return existing, err
		}
		order, err := s.commit(ctx, actor, in)
		release(err)
		if err != nil {
			return nil, err
		}
		s.rememberIdempotencyKey(ctx, actor, in.IdempotencyKey, order.OrderID)
		return s.placed(ctx, actor, order), nil
	}

	order, err := s.commit(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	return s.placed(ctx, actor, order), nil
}

func (s *OrderService) commit(ctx context.Context, actor auth.Actor, in PlaceOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.reserveAndInsert(ctx, actor, in)
		order = o
		return err
	})
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			err = apperr.Internal(err, "orders: place")
		}
		logger.WithCtx(ctx).Info("orders: placement rejected", "kind", apperr.KindOf(err), "error", err)
		return nil, err
	}
	return order, nil
}

func (s *OrderService) placed(ctx context.Context, actor auth.Actor, order *models.Order) *models.OrderView {
	logger.WithCtx(ctx).Info("orders: placed",
		"order_id", order.OrderID, "total", order.TotalAmount, "items", len(order.Items), "payment_method", order.PaymentMethod)
	s.events.FireAsync(ctx, EventOrderPlaced, OrderPlaced{Order: order.Clone(), Actor: actor})
	return &models.OrderView{Order: *order, User: s.userSummary(ctx, order.UserID)}
}

func (s *OrderService) reserveAndInsert(ctx context.Context, actor auth.Actor, in PlaceOrderInput) (*models.Order, error) {
	products := make([]*models.Product, len(in.Items))
	for i, line := range in.Items {
		p, err := s.store.Products.FindByID(ctx, line.Product)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Product not found: %s", lineLabel(line))
		}
		if err != nil {
			return nil, fmt.Errorf("orders: find product %s: %w", line.Product, err)
		}
		if !p.IsAvailable {
			return nil, apperr.Invalid("Product unavailable: %s", p.Name)
		}
		if p.Stock < line.Quantity {
			return nil, apperr.InsufficientStock("Insufficient stock for %s", p.Name)
		}
		products[i] = p
	}

	now := s.now()
	items := make([]models.OrderItem, len(in.Items))
	var subtotal float64
	for i, line := range in.Items {
		p := products[i]
		items[i] = models.OrderItem{ProductID: p.ID, Name: p.Name, Image: p.Image, Price: p.Price, Quantity: line.Quantity}
		subtotal += items[i].LineTotal()
	}
	subtotal = roundMoney(subtotal)
	fee := s.zone.Fee(subtotal)
	total := roundMoney(subtotal + fee)
	if in.TotalAmount != nil && math.Abs(*in.TotalAmount-total) > 0.01 {
		return nil, apperr.Invalid("Total amount mismatch: expected %.2f", total)
	}

	for i, line := range in.Items {
		ok, err := s.store.Products.DecrementStockIfAvailable(ctx, line.Product, line.Quantity)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Product not found: %s", lineLabel(line))
		}
		if err != nil {
			return nil, fmt.Errorf("orders: decrement %s: %w", line.Product, err)
		}
		if !ok {
			return nil, apperr.InsufficientStock("Insufficient stock for %s", products[i].Name)
		}
	}

	order := &models.Order{
		ID:              uuid.NewString(),
		OrderID:         newOrderID(now),
		UserID:          actor.UserID,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     fee,
		TotalAmount:     total,
		DeliveryAddress: in.DeliveryAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   paymentStatusFor(in.PaymentMethod),
		PaymentID:       in.PaymentID,
		GatewayOrderID:  in.GatewayOrderID,
		OrderStatus:     models.StatusConfirmed,
		DeliveryTime:    now.Add(s.zone.ETA()),
		StatusHistory:   []models.StatusEvent{{Status: models.StatusConfirmed, Timestamp: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.PaymentStatus == models.PaymentPaid && order.PaymentID == "" {
		order.PaymentID = payments.TransactionID()
	}

	if err := s.store.Orders.Insert(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("Order %s already exists", order.OrderID)
		}
		return nil, fmt.Errorf("orders: insert: %w", err)
	}
	return order, nil
}

// claimIdempotencyKey either returns the order an earlier request with the
// same key produced, or reserves the key. release must be called with the
// placement error; a failed placement frees the key for a retry.
func (s *OrderService) claimIdempotencyKey(ctx context.Context, actor auth.Actor, key string) (*models.OrderView, func(error), error) {
	cacheKey := idempotencyCacheKey(actor, key)
	claimed, err := s.cache.SetNX(ctx, cacheKey, "", idempotencyTTL)
	if err != nil {
		return nil, nil, apperr.Internal(err, "orders: claim idempotency key")
	}
	if !claimed {
		var orderID string
		if err := s.cache.Get(ctx, cacheKey, &orderID); err != nil && !errors.Is(err, cache.ErrMiss) {
			return nil, nil, apperr.Internal(err, "orders: read idempotency key")
		}
		if orderID == "" {
			return nil, nil, apperr.Conflict("An order with this idempotency key is already being processed")
		}
		view, err := s.Get(ctx, actor, orderID)
		return view, nil, err
	}

	release := func(err error) {
		if err == nil {
			return
		}
		if derr := s.cache.Del(context.WithoutCancel(ctx), cacheKey); derr != nil {
			logger.WithCtx(ctx).Warn("orders: release idempotency key", "error", derr)
		}
	}
	return nil, release, nil
}

func (s *OrderService) rememberIdempotencyKey(ctx context.Context, actor auth.Actor, key, orderID string) {
	if err := s.cache.Set(ctx, idempotencyCacheKey(actor, key), orderID, idempotencyTTL); err != nil {
		logger.WithCtx(ctx).Warn("orders: store idempotency key", "error", err, "order_id", orderID)
	}
}

func idempotencyCacheKey(actor auth.Actor, key string) string {
	return "idem:order:" + actor.UserID + ":" + key
}

// ListForUser returns the actor's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, actor auth.Actor) ([]models.Order, error) {
	if actor.UserID == "" {
		return nil, apperr.Unauthorized("Not authorized, no token")
	}
	orders, err := s.store.Orders.List(ctx, repositories.OrderFilter{UserID: actor.UserID})
	if err != nil {
		return nil, apperr.Internal(err, "orders: list for user")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Get returns one order by storage id or ZPT reference. Only the owner and
// admins may see it.
func (s *OrderService) Get(ctx context.Context, actor auth.Actor, id string) (*models.OrderView, error) {
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperr.Forbidden("Not authorized to view this order")
	}
	return &models.OrderView{Order: *order, User: s.userSummary(ctx, order.UserID)}, nil
}

// UpdateStatus sets the order's status and appends it to the history. Any
// status may follow any other; moves out of Delivered or Cancelled are
// allowed but audited.
func (s *OrderService) UpdateStatus(ctx context.Context, actor auth.Actor, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("Invalid order status")
	}
	order, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperr.Forbidden("Not authorized to update this order")
	}

	from := order.OrderStatus
	updated, err := s.store.Orders.AppendStatus(ctx, order.ID, status, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "orders: update status")
	}

	s.events.Fire(ctx, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:    updated.OrderID,
		UserID:     updated.UserID,
		From:       from,
		To:         status,
		Suspicious: from.Terminal() && from != status,
		Actor:      actor,
	})
	return updated, nil
}

// AdminList returns every order, newest first, optionally only those in
// the given status.
func (s *OrderService) AdminList(ctx context.Context, status models.OrderStatus) ([]models.OrderView, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("Invalid order status")
	}
	orders, err := s.store.Orders.List(ctx, repositories.OrderFilter{Status: status})
	if err != nil {
		return nil, apperr.Internal(err, "orders: admin list")
	}

	users := make(map[string]*models.UserSummary)
	out := make([]models.OrderView, len(orders))
	for i, o := range orders {
		u, ok := users[o.UserID]
		if !ok {
			u = s.userSummary(ctx, o.UserID)
			users[o.UserID] = u
		}
		out[i] = models.OrderView{Order: o, User: u}
	}
	return out, nil
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store.Orders.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "orders: find")
	}
	return order, nil
}

func (s *OrderService) userSummary(ctx context.Context, userID string) *models.UserSummary {
	u, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.WithCtx(ctx).Warn("orders: resolve user", "user_id", userID, "error", err)
		}
		return nil
	}
	return u.Summary()
}

func paymentStatusFor(m models.PaymentMethod) models.PaymentStatus {
	if m == models.PayCOD {
		return models.PaymentPending
	}
	return models.PaymentPaid
}

// newOrderID returns "ZPT", the unix milliseconds and six random digits.
func newOrderID(now time.Time) string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4]) % 1_000_000
	return fmt.Sprintf("ZPT%d%06d", now.UnixMilli(), n)
}

func lineLabel(l OrderLine) string {
	if l.Name != "" {
		return l.Name
	}
	return l.Product
}
