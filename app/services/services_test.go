package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/payments"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/app/services"
	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/auth"
	"github.com/shashiranjanraj/zepto/pkg/cache"
	"github.com/shashiranjanraj/zepto/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func init() {
	config.Set("JWT_SECRET", "services-test-secret")
}

const gatewaySecret = "rzp_test_secret"

type fixture struct {
	store   *repositories.Store
	events  *event.Dispatcher
	orders  *services.OrderService
	catalog *services.CatalogService
	placed  []services.OrderPlaced
	changes []services.OrderStatusChanged
	mu      sync.Mutex
}

func newFixture(t *testing.T, gateway payments.Gateway) *fixture {
	t.Helper()
	if gateway == nil {
		gateway = payments.NewSimulated(0)
	}
	f := &fixture{store: repositories.NewMemoryStore(), events: event.New()}
	zone := services.NewDeliveryZone([]string{"400001", "400002"}, 35, 499, 10*time.Minute)
	c := cache.NewMemory()
	f.orders = services.NewOrderService(f.store, gateway, zone, c, f.events)
	f.catalog = services.NewCatalogService(f.store, c, time.Minute)

	f.events.Listen(services.EventOrderPlaced, func(_ context.Context, p any) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.placed = append(f.placed, p.(services.OrderPlaced))
	})
	f.events.Listen(services.EventOrderStatusChanged, func(_ context.Context, p any) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.changes = append(f.changes, p.(services.OrderStatusChanged))
	})
	t.Cleanup(f.events.Wait)
	return f
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), services.ProductInput{
		Name: name, Price: price, Category: models.CategoryDairy, Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

var customer = auth.Actor{UserID: "user-1"}

func address() models.Address {
	return models.Address{
		Name: "Asha", Phone: "9876543210", AddressLine: "12 Marine Drive",
		City: "Mumbai", State: "Maharashtra", Pincode: "400001",
	}
}

func input(lines ...services.OrderLine) services.PlaceOrderInput {
	return services.PlaceOrderInput{Items: lines, DeliveryAddress: address(), PaymentMethod: models.PayCOD}
}

func line(p *models.Product, qty int) services.OrderLine {
	return services.OrderLine{Product: p.ID, Name: p.Name, Quantity: qty}
}

func TestPlaceDecrementsStockUntilExhausted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)

	_, err := f.orders.Place(ctx, customer, input(line(milk, 2)))
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, milk.ID))

	_, err = f.orders.Place(ctx, customer, input(line(milk, 1)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t, milk.ID))

	_, err = f.orders.Place(ctx, customer, input(line(milk, 3)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Insufficient stock for Milk")
	assert.Equal(t, 2, f.stock(t, milk.ID))

	orders, err := f.orders.ListForUser(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestPlaceIsAllOrNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	bread := f.product(t, "Bread", 40, 10)
	eggs := f.product(t, "Eggs", 6, 1)

	_, err := f.orders.Place(ctx, customer, input(line(bread, 2), line(eggs, 2)))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, 10, f.stock(t, bread.ID))
	assert.Equal(t, 1, f.stock(t, eggs.ID))

	// Same product twice: each line fits alone, together they don't.
	_, err = f.orders.Place(ctx, customer, input(line(eggs, 1), line(eggs, 1)))
	require.Error(t, err)
	assert.Equal(t, 1, f.stock(t, eggs.ID))

	_, err = f.orders.Place(ctx, customer, input(line(bread, 1), services.OrderLine{Product: "missing", Name: "Ghee", Quantity: 1}))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Product not found: Ghee")
	assert.Equal(t, 10, f.stock(t, bread.ID))

	orders, err := f.orders.ListForUser(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceSnapshotsCatalogAndComputesTotals(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 50)

	in := input(services.OrderLine{Product: milk.ID, Name: "Cheap Milk", Price: 1, Quantity: 3})
	view, err := f.orders.Place(ctx, customer, in)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, "Milk", view.Items[0].Name)
	assert.Equal(t, 30.0, view.Items[0].Price)
	assert.Equal(t, 90.0, view.Subtotal)
	assert.Equal(t, 35.0, view.DeliveryFee)
	assert.Equal(t, 125.0, view.TotalAmount)
	assert.Regexp(t, `^ZPT\d{19}$`, view.OrderID)
	assert.Equal(t, models.StatusConfirmed, view.OrderStatus)
	assert.Equal(t, models.PaymentPending, view.PaymentStatus)
	require.Len(t, view.StatusHistory, 1)
	assert.WithinDuration(t, view.CreatedAt.Add(10*time.Minute), view.DeliveryTime, time.Second)

	_, err = f.catalog.Update(ctx, milk.ID, services.ProductUpdate{Name: ptr("Renamed")})
	require.NoError(t, err)
	got, err := f.orders.Get(ctx, customer, view.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Items[0].Name)

	big := input(line(milk, 20))
	big.PaymentMethod = models.PayCard
	big.TotalAmount = ptr(600.0)
	view, err = f.orders.Place(ctx, customer, big)
	require.NoError(t, err)
	assert.Zero(t, view.DeliveryFee)
	assert.Equal(t, models.PaymentPaid, view.PaymentStatus)
	assert.NotEmpty(t, view.PaymentID)

	f.events.Wait()
	f.mu.Lock()
	assert.Len(t, f.placed, 2)
	f.mu.Unlock()
}

func TestPlaceRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)

	cases := map[string]func(in *services.PlaceOrderInput){
		"no items":        func(in *services.PlaceOrderInput) { in.Items = nil },
		"zero quantity":   func(in *services.PlaceOrderInput) { in.Items[0].Quantity = 0 },
		"bad method":      func(in *services.PlaceOrderInput) { in.PaymentMethod = "Barter" },
		"negative total":  func(in *services.PlaceOrderInput) { in.TotalAmount = ptr(-1.0) },
		"total mismatch":  func(in *services.PlaceOrderInput) { in.TotalAmount = ptr(10.0) },
		"missing address": func(in *services.PlaceOrderInput) { in.DeliveryAddress.City = "" },
		"unserviceable":   func(in *services.PlaceOrderInput) { in.DeliveryAddress.Pincode = "110001" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input(line(milk, 1))
			mutate(&in)
			_, err := f.orders.Place(ctx, customer, in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
		})
	}
	assert.Equal(t, 5, f.stock(t, milk.ID))

	_, err := f.orders.Place(ctx, auth.Actor{}, input(line(milk, 1)))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestPlaceConcurrentBuyersNeverOversell(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, nil)
	const stock, buyers = 7, 25
	milk := f.product(t, "Milk", 30, stock)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, shy  int
		failures []error
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor := auth.Actor{UserID: uuid.NewString()}
			_, err := f.orders.Place(context.Background(), actor, input(line(milk, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.KindInsufficientStock):
				shy++
			default:
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()
	f.events.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, stock, ok)
	assert.Equal(t, buyers-stock, shy)
	assert.Equal(t, 0, f.stock(t, milk.ID))

	all, err := f.orders.AdminList(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, stock)
}

func TestPlaceVerifiesSignatureBeforeAnyMutation(t *testing.T) {
	gw, err := payments.NewRazorpay("rzp_test_key", gatewaySecret, "http://127.0.0.1:0")
	require.NoError(t, err)
	f := newFixture(t, gw)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)

	in := input(line(milk, 2))
	in.PaymentMethod = models.PayRazorpay
	in.GatewayOrderID, in.PaymentID = "order_abc", "pay_xyz"
	in.Signature = payments.Sign("wrong-secret", in.GatewayOrderID, in.PaymentID)

	_, err = f.orders.Place(ctx, customer, in)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.Equal(t, 5, f.stock(t, milk.ID))
	orders, _ := f.orders.ListForUser(ctx, customer)
	assert.Empty(t, orders)

	in.Signature = payments.Sign(gatewaySecret, in.GatewayOrderID, in.PaymentID)
	view, err := f.orders.Place(ctx, customer, in)
	require.NoError(t, err)
	assert.Equal(t, "pay_xyz", view.PaymentID)
	assert.Equal(t, models.PaymentPaid, view.PaymentStatus)
	assert.Equal(t, 3, f.stock(t, milk.ID))
}

func TestPlaceIdempotencyKey(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)

	in := input(line(milk, 1))
	in.IdempotencyKey = "checkout-1"
	first, err := f.orders.Place(ctx, customer, in)
	require.NoError(t, err)
	again, err := f.orders.Place(ctx, customer, in)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, again.OrderID)
	assert.Equal(t, 4, f.stock(t, milk.ID))

	failing := input(line(milk, 99))
	failing.IdempotencyKey = "checkout-2"
	_, err = f.orders.Place(ctx, customer, failing)
	require.Error(t, err)
	failing.Items[0].Quantity = 1
	_, err = f.orders.Place(ctx, customer, failing)
	require.NoError(t, err, "a failed attempt must free its key")
	assert.Equal(t, 3, f.stock(t, milk.ID))
}

func TestGetAndUpdateStatusAccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)
	view, err := f.orders.Place(ctx, customer, input(line(milk, 1)))
	require.NoError(t, err)

	stranger := auth.Actor{UserID: "user-2"}
	admin := auth.Actor{UserID: "admin-1", IsAdmin: true}

	_, err = f.orders.Get(ctx, stranger, view.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.orders.Get(ctx, admin, view.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, customer, "ZPT0")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.orders.UpdateStatus(ctx, stranger, view.ID, models.StatusPacked)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.orders.UpdateStatus(ctx, admin, view.ID, "Lost")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestUpdateStatusAppendsHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)
	view, err := f.orders.Place(ctx, customer, input(line(milk, 1)))
	require.NoError(t, err)

	admin := auth.Actor{UserID: "admin-1", IsAdmin: true}
	steps := []models.OrderStatus{
		models.StatusPacked, models.StatusOutForDelivery, models.StatusDelivered,
		models.StatusConfirmed, models.StatusCancelled,
	}
	var last *models.Order
	for _, s := range steps {
		last, err = f.orders.UpdateStatus(ctx, admin, view.OrderID, s)
		require.NoError(t, err)
	}
	assert.Equal(t, models.StatusCancelled, last.OrderStatus)
	require.Len(t, last.StatusHistory, 1+len(steps))
	for i, s := range steps {
		assert.Equal(t, s, last.StatusHistory[i+1].Status)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.changes, len(steps))
	assert.False(t, f.changes[2].Suspicious)
	assert.True(t, f.changes[3].Suspicious, "leaving Delivered is flagged")
	assert.Equal(t, models.StatusDelivered, f.changes[3].From)
}

func TestListingIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)
	for range 3 {
		_, err := f.orders.Place(ctx, customer, input(line(milk, 1)))
		require.NoError(t, err)
	}

	first, err := f.orders.ListForUser(ctx, customer)
	require.NoError(t, err)
	second, err := f.orders.ListForUser(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, f.stock(t, milk.ID))

	all, err := f.orders.AdminList(ctx, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	_, err = f.orders.AdminList(ctx, "Shipped")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestCatalogListingHidesUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.product(t, "Milk", 30, 5)
	ghee := f.product(t, "Ghee", 300, 5)
	_, err := f.catalog.Update(ctx, ghee.ID, services.ProductUpdate{IsAvailable: ptr(false)})
	require.NoError(t, err)

	items, page, err := f.catalog.List(ctx, repositories.ProductFilter{Category: "All"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)
	assert.EqualValues(t, 1, page.Total)

	all, err := f.catalog.AdminList(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.orders.Place(ctx, customer, input(line(ghee, 1)))
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestCatalogAdjustStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.product(t, "Milk", 30, 5)

	p, err := f.catalog.AdjustStock(ctx, milk.ID, services.StockInput{Operation: repositories.StockDecrease, Quantity: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	p, err = f.catalog.AdjustStock(ctx, milk.ID, services.StockInput{Quantity: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	_, err = f.catalog.AdjustStock(ctx, milk.ID, services.StockInput{})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	_, err = f.catalog.AdjustStock(ctx, "missing", services.StockInput{Quantity: ptr(1)})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAuthRegisterAndLogin(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := services.NewAuthService(store)
	ctx := context.Background()

	s, err := svc.Register(ctx, services.RegisterInput{Name: "Asha", Phone: "9876543210", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, s.IsAdmin)
	assert.NotEmpty(t, s.Token)

	_, err = svc.Register(ctx, services.RegisterInput{Name: "Dup", Phone: "9876543210", Password: "secret2"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = svc.Login(ctx, services.LoginInput{Phone: "9876543210", Password: "nope"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = svc.Login(ctx, services.LoginInput{Phone: "9000000000", Password: "secret1"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	logged, err := svc.Login(ctx, services.LoginInput{Phone: "9876543210", Password: "secret1"})
	require.NoError(t, err)
	claims, err := auth.ValidateToken(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, claims.UserID)

	me, err := svc.Me(ctx, auth.Actor{UserID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, "Asha", me.Name)
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.product(t, "Milk", 30, 0)
	f.product(t, "Bread", 40, 3)
	eggs := f.product(t, "Eggs", 6, 50)
	_, err := f.orders.Place(ctx, customer, input(line(eggs, 1)))
	require.NoError(t, err)

	stats, err := services.NewAdminService(f.store).Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Products)
	assert.EqualValues(t, 1, stats.LowStock)
	assert.EqualValues(t, 1, stats.OutOfStock)
	assert.EqualValues(t, 1, stats.Orders)
	assert.Zero(t, stats.Users)
}

func TestDeliveryZone(t *testing.T) {
	z := services.NewDeliveryZone([]string{"400001"}, 35, 499, 10*time.Minute)
	assert.Equal(t, 35.0, z.Fee(499))
	assert.Zero(t, z.Fee(499.01))
	assert.True(t, z.Check("400001").Serviceable)
	assert.False(t, z.Check("560001").Serviceable)
}

func ptr[T any](v T) *T { return &v }
