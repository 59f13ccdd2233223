package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/app/repositories"
	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/cache"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

const categoriesKey = "catalog:categories"

// CatalogService serves the storefront listing and the admin product tools.
type CatalogService struct {
	products repositories.ProductRepository
	tx       repositories.TxManager
	cache    cache.Store
	ttl      time.Duration
}

func NewCatalogService(store *repositories.Store, c cache.Store, ttl time.Duration) *CatalogService {
	return &CatalogService{products: store.Products, tx: store.Tx, cache: c, ttl: ttl}
}

// Page describes where a listing sits in the full result set.
type Page struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// List returns available products matching f.
func (s *CatalogService) List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, Page, error) {
	if f.Category == "All" {
		f.Category = ""
	}
	f.AvailableOnly = true
	f.Normalize()

	items, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, Page{}, apperr.Internal(err, "catalog: list products")
	}
	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return items, Page{Total: total, Page: f.Page, Pages: pages, Limit: f.Limit}, nil
}

// Categories returns the distinct categories in use, cached for the
// configured TTL and dropped whenever an admin edits the catalog.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := cache.Remember(ctx, s.cache, categoriesKey, s.ttl, func() ([]string, error) {
		return s.products.Categories(ctx)
	})
	if err != nil {
		return nil, apperr.Internal(err, "catalog: categories")
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "catalog: find product")
	}
	return p, nil
}

// AdminList returns every product matching the filter, available or not,
// newest first.
func (s *CatalogService) AdminList(ctx context.Context, f repositories.ProductFilter) ([]models.Product, error) {
	if f.Category == "All" {
		f.Category = ""
	}
	switch f.StockStatus {
	case "", models.StockOut, models.StockLow, models.StockIn:
	default:
		return nil, apperr.Invalid("Invalid stock status: %s", f.StockStatus)
	}
	f.SortBy, f.Desc, f.Limit = "createdAt", true, 100

	var out []models.Product
	for f.Page = 1; ; f.Page++ {
		items, total, err := s.products.List(ctx, f)
		if err != nil {
			return nil, apperr.Internal(err, "catalog: admin list products")
		}
		out = append(out, items...)
		if len(items) == 0 || int64(len(out)) >= total {
			break
		}
	}
	if out == nil {
		out = []models.Product{}
	}
	return out, nil
}

// ProductInput is the body of an admin create.
type ProductInput struct {
	Name              string  `json:"name"              validate:"required,max=255"`
	Description       string  `json:"description"       validate:"max=2000"`
	Price             float64 `json:"price"             validate:"gte=0"`
	Image             string  `json:"image"             validate:"max=512"`
	Category          string  `json:"category"          validate:"required,in=Dairy,Vegetables,Fruits,Grains,Snacks,Beverages,Bakery,Spices"`
	Stock             int     `json:"stock"             validate:"gte=0"`
	LowStockThreshold int     `json:"lowStockThreshold" validate:"gte=0"`
	Unit              string  `json:"unit"              validate:"nullable,in=kg,g,l,ml,piece,dozen,pack"`
	Discount          float64 `json:"discount"          validate:"between=0,100"`
	IsAvailable       *bool   `json:"isAvailable"`
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{
		ID:                uuid.NewString(),
		Name:              in.Name,
		Description:       in.Description,
		Price:             in.Price,
		Image:             in.Image,
		Category:          in.Category,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		Unit:              in.Unit,
		Discount:          in.Discount,
		IsAvailable:       in.IsAvailable == nil || *in.IsAvailable,
	}
	p.ApplyDefaults()

	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperr.Conflict("Product already exists")
		}
		return nil, apperr.Internal(err, "catalog: create product")
	}
	s.invalidate(ctx)
	logger.WithCtx(ctx).Info("catalog: product created", "product_id", p.ID, "name", p.Name, "audit", true)
	return p, nil
}

// ProductUpdate is the body of an admin edit. Nil fields are left alone.
type ProductUpdate struct {
	Name              *string  `json:"name"              validate:"nullable,min=1,max=255"`
	Description       *string  `json:"description"       validate:"nullable,max=2000"`
	Price             *float64 `json:"price"             validate:"nullable,gte=0"`
	Image             *string  `json:"image"             validate:"nullable,max=512"`
	Category          *string  `json:"category"          validate:"nullable,in=Dairy,Vegetables,Fruits,Grains,Snacks,Beverages,Bakery,Spices"`
	Stock             *int     `json:"stock"             validate:"nullable,gte=0"`
	LowStockThreshold *int     `json:"lowStockThreshold" validate:"nullable,gte=0"`
	Unit              *string  `json:"unit"              validate:"nullable,in=kg,g,l,ml,piece,dozen,pack"`
	Discount          *float64 `json:"discount"          validate:"nullable,between=0,100"`
	IsAvailable       *bool    `json:"isAvailable"`
}

// Update applies the non-nil fields. A stock value is applied as an
// absolute set in the same transaction.
func (s *CatalogService) Update(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	var out *models.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		setIf(&p.Name, in.Name)
		setIf(&p.Description, in.Description)
		setIf(&p.Price, in.Price)
		setIf(&p.Image, in.Image)
		setIf(&p.Category, in.Category)
		setIf(&p.LowStockThreshold, in.LowStockThreshold)
		setIf(&p.Unit, in.Unit)
		setIf(&p.Discount, in.Discount)
		setIf(&p.IsAvailable, in.IsAvailable)

		if err := s.products.Update(ctx, p); err != nil {
			return err
		}
		if in.Stock != nil {
			if _, err := s.products.AdjustStock(ctx, id, repositories.StockSet, *in.Stock); err != nil {
				return err
			}
		}
		out, err = s.products.FindByID(ctx, id)
		return err
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "catalog: update product")
	}
	s.invalidate(ctx)
	logger.WithCtx(ctx).Info("catalog: product updated", "product_id", id, "audit", true)
	return out, nil
}

// StockInput is the body of an admin stock adjustment.
type StockInput struct {
	Operation repositories.StockOp `json:"operation" validate:"nullable,in=set,increase,decrease"`
	Quantity  *int                 `json:"quantity"  validate:"gte=0"`
}

// AdjustStock applies an administrative stock correction clamped at zero.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, in StockInput) (*models.Product, error) {
	op := in.Operation
	if op == "" {
		op = repositories.StockSet
	}
	if !op.Valid() {
		return nil, apperr.Invalid("Invalid stock operation: %s", op)
	}
	if in.Quantity == nil || *in.Quantity < 0 {
		return nil, apperr.Invalid("Valid quantity is required")
	}

	p, err := s.products.AdjustStock(ctx, id, op, *in.Quantity)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "catalog: adjust stock")
	}
	logger.WithCtx(ctx).Info("catalog: stock adjusted",
		"product_id", id, "operation", op, "quantity", *in.Quantity, "stock", p.Stock, "audit", true)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.products.Delete(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("Product not found")
	}
	if err != nil {
		return apperr.Internal(err, "catalog: delete product")
	}
	s.invalidate(ctx)
	logger.WithCtx(ctx).Info("catalog: product deleted", "product_id", id, "audit", true)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, categoriesKey); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
