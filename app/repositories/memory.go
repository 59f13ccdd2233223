package repositories

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/zepto/app/models"
)

// memoryDB is a process-local backend. A transaction holds the write lock
// for its whole duration and restores a snapshot if fn fails; calls made
// with the transaction's ctx skip locking because the lock is already held.
type memoryDB struct {
	mu       sync.RWMutex
	products map[string]models.Product
	orders   map[string]models.Order
	users    map[string]models.User
}

type memTxKey struct{}

func inMemTx(ctx context.Context) bool {
	v, _ := ctx.Value(memTxKey{}).(bool)
	return v
}

func (m *memoryDB) rlock(ctx context.Context) func() {
	if inMemTx(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *memoryDB) wlock(ctx context.Context) func() {
	if inMemTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *Store {
	db := &memoryDB{
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
		users:    make(map[string]models.User),
	}
	return &Store{
		Driver:   "memory",
		Products: &memoryProducts{db},
		Orders:   &memoryOrders{db},
		Users:    &memoryUsers{db},
		Tx:       &memoryTx{db},
		Ping:     func(context.Context) error { return nil },
		Close:    func(context.Context) error { return nil },
	}
}

// ── Transactions ─────────────────────────────────────────────────────────────

type memoryTx struct{ db *memoryDB }

func (t *memoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	products := maps.Clone(t.db.products)
	orders := maps.Clone(t.db.orders)
	users := maps.Clone(t.db.users)

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.products = products
		t.db.orders = orders
		t.db.users = users
		return err
	}
	return nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type memoryProducts struct{ db *memoryDB }

func (r *memoryProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	defer r.db.rlock(ctx)()
	p, ok := r.db.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	f.Normalize()
	unlock := r.db.rlock(ctx)
	matched := make([]models.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		if matchesProduct(p, f) {
			matched = append(matched, p)
		}
	}
	unlock()

	sortProducts(matched, f.SortBy, f.Desc)
	total := int64(len(matched))

	start := min(f.Offset(), len(matched))
	end := min(start+f.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *memoryProducts) Categories(ctx context.Context) ([]string, error) {
	defer r.db.rlock(ctx)()
	seen := map[string]bool{}
	for _, p := range r.db.products {
		seen[p.Category] = true
	}
	out := slices.Collect(maps.Keys(seen))
	slices.Sort(out)
	return out, nil
}

func (r *memoryProducts) Create(ctx context.Context, p *models.Product) error {
	defer r.db.wlock(ctx)()
	if _, exists := r.db.products[p.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.db.products[p.ID] = *p
	return nil
}

func (r *memoryProducts) Update(ctx context.Context, p *models.Product) error {
	defer r.db.wlock(ctx)()
	cur, ok := r.db.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.Stock = cur.Stock
	p.UpdatedAt = time.Now()
	r.db.products[p.ID] = *p
	return nil
}

func (r *memoryProducts) Delete(ctx context.Context, id string) error {
	defer r.db.wlock(ctx)()
	if _, ok := r.db.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.db.products, id)
	return nil
}

func (r *memoryProducts) DecrementStockIfAvailable(ctx context.Context, id string, qty int) (bool, error) {
	defer r.db.wlock(ctx)()
	p, ok := r.db.products[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	r.db.products[id] = p
	return true, nil
}

func (r *memoryProducts) AdjustStock(ctx context.Context, id string, op StockOp, qty int) (*models.Product, error) {
	defer r.db.wlock(ctx)()
	p, ok := r.db.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Stock = applyStockOp(p.Stock, op, qty)
	p.UpdatedAt = time.Now()
	r.db.products[id] = p
	return &p, nil
}

func (r *memoryProducts) Stats(ctx context.Context) (CatalogStats, error) {
	defer r.db.rlock(ctx)()
	var s CatalogStats
	for _, p := range r.db.products {
		s.Products++
		switch p.StockStatus() {
		case models.StockOut:
			s.OutOfStock++
		case models.StockLow:
			s.LowStock++
		}
	}
	return s, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

type memoryOrders struct{ db *memoryDB }

func (r *memoryOrders) Insert(ctx context.Context, o *models.Order) error {
	defer r.db.wlock(ctx)()
	if _, exists := r.db.orders[o.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range r.db.orders {
		if existing.OrderID == o.OrderID {
			return ErrDuplicate
		}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.UpdatedAt = o.CreatedAt
	r.db.orders[o.ID] = o.Clone()
	return nil
}

func (r *memoryOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	defer r.db.rlock(ctx)()
	o, ok := r.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	cp := o.Clone()
	return &cp, nil
}

func (r *memoryOrders) lookup(id string) (models.Order, bool) {
	if o, ok := r.db.orders[id]; ok {
		return o, true
	}
	for _, o := range r.db.orders {
		if o.OrderID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

func (r *memoryOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	unlock := r.db.rlock(ctx)
	out := make([]models.Order, 0)
	for _, o := range r.db.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		out = append(out, o.Clone())
	}
	unlock()

	slices.SortStableFunc(out, func(a, b models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.OrderID, a.OrderID)
	})
	return out, nil
}

func (r *memoryOrders) AppendStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, error) {
	defer r.db.wlock(ctx)()
	o, ok := r.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	o = o.Clone()
	o.OrderStatus = status
	o.StatusHistory = append(o.StatusHistory, models.StatusEvent{Status: status, Timestamp: at})
	o.UpdatedAt = at
	r.db.orders[o.ID] = o
	cp := o.Clone()
	return &cp, nil
}

func (r *memoryOrders) Count(ctx context.Context) (int64, error) {
	defer r.db.rlock(ctx)()
	return int64(len(r.db.orders)), nil
}

// ── Users ────────────────────────────────────────────────────────────────────

type memoryUsers struct{ db *memoryDB }

func (r *memoryUsers) Create(ctx context.Context, u *models.User) error {
	defer r.db.wlock(ctx)()
	for _, existing := range r.db.users {
		if existing.Phone == u.Phone {
			return ErrDuplicate
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.db.users[u.ID] = *u
	return nil
}

func (r *memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer r.db.rlock(ctx)()
	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memoryUsers) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	defer r.db.rlock(ctx)()
	for _, u := range r.db.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryUsers) List(ctx context.Context) ([]models.User, error) {
	unlock := r.db.rlock(ctx)
	out := slices.Collect(maps.Values(r.db.users))
	unlock()
	slices.SortFunc(out, func(a, b models.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *memoryUsers) Count(ctx context.Context) (int64, error) {
	defer r.db.rlock(ctx)()
	return int64(len(r.db.users)), nil
}

// ── Shared helpers ───────────────────────────────────────────────────────────

func applyStockOp(current int, op StockOp, qty int) int {
	switch op {
	case StockSet:
		current = qty
	case StockIncrease:
		current += qty
	case StockDecrease:
		current -= qty
	}
	return max(current, 0)
}

func matchesProduct(p models.Product, f ProductFilter) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.StockStatus != "" && p.StockStatus() != f.StockStatus {
		return false
	}
	if f.AvailableOnly && !p.IsAvailable {
		return false
	}
	return true
}

func sortProducts(ps []models.Product, by string, desc bool) {
	slices.SortStableFunc(ps, func(a, b models.Product) int {
		var c int
		switch by {
		case "name":
			c = strings.Compare(a.Name, b.Name)
		case "price":
			c = cmp.Compare(a.Price, b.Price)
		case "stock":
			c = cmp.Compare(a.Stock, b.Stock)
		case "discount":
			c = cmp.Compare(a.Discount, b.Discount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}
