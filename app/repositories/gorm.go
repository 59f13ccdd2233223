package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormTxKey struct{}

// conn returns the transaction bound to ctx, or the base handle.
func conn(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return base.WithContext(ctx)
}

// NewGormStore wraps an open *gorm.DB. Schema is managed by the migration
// runner, not here.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Driver:   db.Dialector.Name(),
		Products: &gormProducts{db},
		Orders:   &gormOrders{db},
		Users:    &gormUsers{db},
		Tx:       &gormTx{db},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

// isUniqueViolation catches drivers that don't map to gorm.ErrDuplicatedKey
// unless TranslateError is enabled.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// ── Transactions ─────────────────────────────────────────────────────────────

type gormTx struct{ db *gorm.DB }

func (t *gormTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(gormTxKey{}).(*gorm.DB); nested {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

// ── Products ─────────────────────────────────────────────────────────────────

type gormProducts struct{ db *gorm.DB }

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"discount":  "discount",
	"createdAt": "created_at",
}

func (r *gormProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var p models.Product
	if err := conn(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *gormProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	f.Normalize()

	q := conn(ctx, r.db).Model(&models.Product{})
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	switch f.StockStatus {
	case models.StockOut:
		q = q.Where("stock <= 0")
	case models.StockLow:
		q = q.Where("stock > 0 AND stock <= low_stock_threshold")
	case models.StockIn:
		q = q.Where("stock > low_stock_threshold")
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var out []models.Product
	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: productSortColumns[f.SortBy]}, Desc: f.Desc}).
		Order("id").
		Offset(f.Offset()).Limit(f.Limit).
		Find(&out).Error
	return out, total, translate(err)
}

func (r *gormProducts) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := conn(ctx, r.db).Model(&models.Product{}).Distinct().Order("category").Pluck("category", &out).Error
	return out, translate(err)
}

func (r *gormProducts) Create(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return translate(conn(ctx, r.db).Create(p).Error)
}

func (r *gormProducts) Update(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := conn(ctx, r.db).Model(&models.Product{}).Where("id = ?", p.ID).
		Select("name", "description", "price", "image", "category",
			"low_stock_threshold", "unit", "discount", "is_available", "updated_at").
		Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) Delete(ctx context.Context, id string) error {
	defer metrics.ObserveDBQuery("delete", time.Now())
	res := conn(ctx, r.db).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormProducts) DecrementStockIfAvailable(ctx context.Context, id string, qty int) (bool, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := conn(ctx, r.db).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *gormProducts) AdjustStock(ctx context.Context, id string, op StockOp, qty int) (*models.Product, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	var expr clause.Expr
	switch op {
	case StockSet:
		expr = gorm.Expr("?", max(qty, 0))
	case StockIncrease:
		expr = gorm.Expr("stock + ?", qty)
	case StockDecrease:
		expr = gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", qty, qty)
	default:
		return nil, fmt.Errorf("unknown stock operation %q", op)
	}

	res := conn(ctx, r.db).Model(&models.Product{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"stock": expr, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *gormProducts) Stats(ctx context.Context) (CatalogStats, error) {
	var s CatalogStats
	db := conn(ctx, r.db).Model(&models.Product{})
	if err := db.Count(&s.Products).Error; err != nil {
		return s, translate(err)
	}
	if err := conn(ctx, r.db).Model(&models.Product{}).
		Where("stock > 0 AND stock <= low_stock_threshold").Count(&s.LowStock).Error; err != nil {
		return s, translate(err)
	}
	err := conn(ctx, r.db).Model(&models.Product{}).Where("stock <= 0").Count(&s.OutOfStock).Error
	return s, translate(err)
}

// ── Orders ───────────────────────────────────────────────────────────────────

type gormOrders struct{ db *gorm.DB }

func (r *gormOrders) withChildren(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at, id") })
}

func (r *gormOrders) Insert(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return translate(conn(ctx, r.db).Create(o).Error)
}

func (r *gormOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var o models.Order
	err := r.withChildren(ctx).Where("id = ? OR order_id = ?", id, id).First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *gormOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	q := r.withChildren(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("order_status = ?", f.Status)
	}
	var out []models.Order
	err := q.Order("created_at DESC").Order("order_id DESC").Find(&out).Error
	return out, translate(err)
}

func (r *gormOrders) AppendStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	var updated *models.Order
	err := (&gormTx{r.db}).WithTransaction(ctx, func(ctx context.Context) error {
		o, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		db := conn(ctx, r.db)
		if err := db.Model(&models.Order{}).Where("id = ?", o.ID).
			UpdateColumns(map[string]any{"order_status": status, "updated_at": at}).Error; err != nil {
			return translate(err)
		}
		ev := models.StatusEvent{OrderRef: o.ID, Status: status, Timestamp: at}
		if err := db.Create(&ev).Error; err != nil {
			return translate(err)
		}
		updated, err = r.FindByID(ctx, o.ID)
		return err
	})
	return updated, err
}

func (r *gormOrders) Count(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.Order{}).Count(&n).Error
	return n, translate(err)
}

// ── Users ────────────────────────────────────────────────────────────────────

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, u *models.User) error {
	return translate(conn(ctx, r.db).Create(u).Error)
}

func (r *gormUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := conn(ctx, r.db).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := conn(ctx, r.db).First(&u, "phone = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormUsers) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := conn(ctx, r.db).Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

func (r *gormUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.User{}).Count(&n).Error
	return n, translate(err)
}
