// Package repositories holds the storage contracts the services depend on
// and their memory, GORM and MongoDB implementations.
package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shashiranjanraj/zepto/app/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// StockOp selects how AdjustStock applies its quantity.
type StockOp string

const (
	StockSet      StockOp = "set"
	StockIncrease StockOp = "increase"
	StockDecrease StockOp = "decrease"
)

func (op StockOp) Valid() bool {
	return op == StockSet || op == StockIncrease || op == StockDecrease
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Search      string
	Category    string
	MinPrice    *float64
	MaxPrice    *float64
	StockStatus string
	// AvailableOnly hides products switched off by an admin.
	AvailableOnly bool
	SortBy        string
	Desc          bool
	Page          int
	Limit         int
}

// Normalize clamps paging and defaults sorting.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	switch f.SortBy {
	case "name", "price", "stock", "createdAt", "discount":
	default:
		f.SortBy = "createdAt"
	}
}

func (f ProductFilter) Offset() int { return (f.Page - 1) * f.Limit }

// CatalogStats are the counters shown on the admin dashboard.
type CatalogStats struct {
	Products   int64 `json:"totalProducts"`
	LowStock   int64 `json:"lowStockProducts"`
	OutOfStock int64 `json:"outOfStockProducts"`
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *models.Product) error
	// Update writes every editable field except Stock, which only changes
	// through DecrementStockIfAvailable and AdjustStock.
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementStockIfAvailable lowers stock by qty only when at least qty
	// units remain, as one atomic step. It reports whether it applied.
	DecrementStockIfAvailable(ctx context.Context, id string, qty int) (bool, error)
	// AdjustStock applies an administrative correction; results below zero
	// are clamped to zero.
	AdjustStock(ctx context.Context, id string, op StockOp, qty int) (*models.Product, error)
	Stats(ctx context.Context) (CatalogStats, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, o *models.Order) error
	// FindByID accepts either the storage id or the ZPT order reference.
	FindByID(ctx context.Context, id string) (*models.Order, error)
	// List returns matching orders newest first.
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
	// AppendStatus overwrites the current status and appends a history entry.
	AppendStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, error)
	Count(ctx context.Context) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TxManager runs fn so that every repository call made with the ctx it
// receives commits together or not at all.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles one backend's repositories.
type Store struct {
	Driver   string
	Products ProductRepository
	Orders   OrderRepository
	Users    UserRepository
	Tx       TxManager
	Ping     func(ctx context.Context) error
	Close    func(ctx context.Context) error
}
