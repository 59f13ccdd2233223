package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMemoryStore(t *testing.T) {
	runContract(t, func(t *testing.T) *repositories.Store { return repositories.NewMemoryStore() })
}

func TestGormStoreSQLite(t *testing.T) {
	runContract(t, func(t *testing.T) *repositories.Store {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		if err != nil {
			t.Skipf("sqlite unavailable: %v", err)
		}
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)
		if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{}, &models.StatusEvent{}); err != nil {
			t.Skipf("sqlite unavailable: %v", err)
		}
		t.Cleanup(func() { _ = sqlDB.Close() })
		return repositories.NewGormStore(db)
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	runContract(t, func(t *testing.T) *repositories.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		require.NoError(t, err)

		name := "zepto_test_" + uuid.NewString()[:8]
		store, err := repositories.NewMongoStore(ctx, client, name)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = client.Database(name).Drop(context.Background())
			_ = client.Disconnect(context.Background())
		})
		return store
	})
}

func runContract(t *testing.T, open func(t *testing.T) *repositories.Store) {
	t.Run("DecrementIsConditional", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		p := seedProduct(t, s, "Milk", 5)

		ok, err := s.Products.DecrementStockIfAvailable(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Products.DecrementStockIfAvailable(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Stock)

		_, err = s.Products.DecrementStockIfAvailable(ctx, "missing", 1)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		a := seedProduct(t, s, "Bread", 4)
		b := seedProduct(t, s, "Eggs", 1)

		boom := errors.New("boom")
		err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			ok, err := s.Products.DecrementStockIfAvailable(ctx, a.ID, 2)
			if err != nil || !ok {
				return fmt.Errorf("first decrement: %v %w", ok, err)
			}
			ok, err = s.Products.DecrementStockIfAvailable(ctx, b.ID, 5)
			if err != nil {
				return err
			}
			if !ok {
				return boom
			}
			return nil
		})
		require.ErrorIs(t, err, boom)

		got, err := s.Products.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Stock)
	})

	t.Run("AdjustStockClamps", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		p := seedProduct(t, s, "Rice", 3)

		got, err := s.Products.AdjustStock(ctx, p.ID, repositories.StockDecrease, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)

		got, err = s.Products.AdjustStock(ctx, p.ID, repositories.StockIncrease, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)

		got, err = s.Products.AdjustStock(ctx, p.ID, repositories.StockSet, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Stock)
		assert.Equal(t, models.StockLow, got.StockStatus())
	})

	t.Run("UpdateLeavesStockAlone", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		p := seedProduct(t, s, "Paneer", 9)

		edit := *p
		edit.Name = "Malai Paneer"
		edit.Stock = 100
		edit.IsAvailable = false
		require.NoError(t, s.Products.Update(ctx, &edit))

		got, err := s.Products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Malai Paneer", got.Name)
		assert.False(t, got.IsAvailable)
		assert.Equal(t, 9, got.Stock)

		missing := *p
		missing.ID = "missing"
		assert.ErrorIs(t, s.Products.Update(ctx, &missing), repositories.ErrNotFound)

		items, _, err := s.Products.List(ctx, repositories.ProductFilter{AvailableOnly: true})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("ListFiltersAndStats", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		seedProduct(t, s, "Amul Milk", 0)
		seedProduct(t, s, "Toned Milk", 3)
		seedProduct(t, s, "Brown Bread", 50)

		items, total, err := s.Products.List(ctx, repositories.ProductFilter{Search: "milk", SortBy: "name"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "Amul Milk", items[0].Name)

		items, _, err = s.Products.List(ctx, repositories.ProductFilter{StockStatus: models.StockLow})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Toned Milk", items[0].Name)

		stats, err := s.Products.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, repositories.CatalogStats{Products: 3, LowStock: 1, OutOfStock: 1}, stats)

		cats, err := s.Products.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{models.CategoryDairy}, cats)
	})

	t.Run("OrdersNewestFirstAndHistory", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		first := newOrder("u1", "ZPT1", base)
		second := newOrder("u1", "ZPT2", base.Add(time.Second))
		other := newOrder("u2", "ZPT3", base.Add(2*time.Second))
		for _, o := range []*models.Order{first, second, other} {
			require.NoError(t, s.Orders.Insert(ctx, o))
		}

		dup := newOrder("u1", "ZPT1", base)
		assert.ErrorIs(t, s.Orders.Insert(ctx, dup), repositories.ErrDuplicate)

		list, err := s.Orders.List(ctx, repositories.OrderFilter{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "ZPT2", list[0].OrderID)
		require.Len(t, list[0].Items, 1)

		updated, err := s.Orders.AppendStatus(ctx, "ZPT1", models.StatusPacked, base.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPacked, updated.OrderStatus)
		require.Len(t, updated.StatusHistory, 2)
		assert.Equal(t, models.StatusPacked, updated.StatusHistory[1].Status)

		_, err = s.Orders.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		n, err := s.Orders.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})

	t.Run("UsersUniquePhone", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		u := &models.User{ID: uuid.NewString(), Name: "Asha", Phone: "9876543210", Password: "x"}
		require.NoError(t, s.Users.Create(ctx, u))

		again := &models.User{ID: uuid.NewString(), Name: "Other", Phone: "9876543210", Password: "y"}
		assert.ErrorIs(t, s.Users.Create(ctx, again), repositories.ErrDuplicate)

		got, err := s.Users.FindByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})
}

func seedProduct(t *testing.T, s *repositories.Store, name string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		ID: uuid.NewString(), Name: name, Price: 30, Category: models.CategoryDairy,
		Stock: stock, IsAvailable: true,
	}
	p.ApplyDefaults()
	require.NoError(t, s.Products.Create(context.Background(), p))
	return p
}

func newOrder(userID, orderID string, at time.Time) *models.Order {
	id := uuid.NewString()
	return &models.Order{
		ID:      id,
		OrderID: orderID,
		UserID:  userID,
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Milk", Price: 30, Quantity: 1},
		},
		Subtotal:        30,
		DeliveryFee:     35,
		TotalAmount:     65,
		DeliveryAddress: models.Address{Name: "A", Phone: "9", AddressLine: "x", City: "Mumbai", State: "MH", Pincode: "400001"},
		PaymentMethod:   models.PayCOD,
		PaymentStatus:   models.PaymentPending,
		OrderStatus:     models.StatusConfirmed,
		DeliveryTime:    at.Add(10 * time.Minute),
		StatusHistory:   []models.StatusEvent{{Status: models.StatusConfirmed, Timestamp: at}},
		CreatedAt:       at,
	}
}
