package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/shashiranjanraj/zepto/app/models"
	"github.com/shashiranjanraj/zepto/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStore builds a Store over db and ensures its indexes.
// Transactions require a replica set or sharded cluster.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*Store, error) {
	db := client.Database(dbName)
	products := db.Collection("products")
	orders := db.Collection("orders")
	users := db.Collection("users")

	if err := ensureMongoIndexes(ctx, products, orders, users); err != nil {
		return nil, err
	}

	return &Store{
		Driver:   "mongo",
		Products: &mongoProducts{col: products},
		Orders:   &mongoOrders{col: orders},
		Users:    &mongoUsers{col: users},
		Tx:       &mongoTx{client: client},
		Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Close:    client.Disconnect,
	}, nil
}

func ensureMongoIndexes(ctx context.Context, products, orders, users *mongo.Collection) error {
	if _, err := products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("mongo: product indexes: %w", err)
	}
	if _, err := orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "orderStatus", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("mongo: order indexes: %w", err)
	}
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo: user indexes: %w", err)
	}
	return nil
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

// ── Transactions ─────────────────────────────────────────────────────────────

type mongoTx struct{ client *mongo.Client }

// WithTransaction runs fn inside a session transaction. The session context
// handed to fn carries the session, so collection calls made with it join
// the transaction.
func (t *mongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// ── Products ─────────────────────────────────────────────────────────────────

type mongoProducts struct{ col *mongo.Collection }

var mongoSortFields = map[string]string{
	"name": "name", "price": "price", "stock": "stock", "discount": "discount", "createdAt": "createdAt",
}

func (r *mongoProducts) FindByID(ctx context.Context, id string) (*models.Product, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mongoErr(err)
	}
	return &p, nil
}

func productQuery(f ProductFilter) bson.M {
	q := bson.M{}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		q["price"] = price
	}
	if f.AvailableOnly {
		q["isAvailable"] = true
	}
	switch f.StockStatus {
	case models.StockOut:
		q["stock"] = bson.M{"$lte": 0}
	case models.StockLow:
		q["stock"] = bson.M{"$gt": 0}
		q["$expr"] = bson.M{"$lte": bson.A{"$stock", "$lowStockThreshold"}}
	case models.StockIn:
		q["$expr"] = bson.M{"$gt": bson.A{"$stock", "$lowStockThreshold"}}
	}
	return q
}

func (r *mongoProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	f.Normalize()
	q := productQuery(f)

	total, err := r.col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, mongoErr(err)
	}

	dir := 1
	if f.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: mongoSortFields[f.SortBy], Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, mongoErr(err)
	}
	out := make([]models.Product, 0, f.Limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, mongoErr(err)
	}
	return out, total, nil
}

func (r *mongoProducts) Categories(ctx context.Context) ([]string, error) {
	raw, err := r.col.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, mongoErr(err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *mongoProducts) Create(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, p)
	return mongoErr(err)
}

func (r *mongoProducts) Update(ctx context.Context, p *models.Product) error {
	defer metrics.ObserveDBQuery("update", time.Now())
	p.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name": p.Name, "description": p.Description, "price": p.Price, "image": p.Image,
		"category": p.Category, "lowStockThreshold": p.LowStockThreshold,
		"unit": p.Unit, "discount": p.Discount, "isAvailable": p.IsAvailable, "updatedAt": p.UpdatedAt,
	}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) Delete(ctx context.Context, id string) error {
	defer metrics.ObserveDBQuery("delete", time.Now())
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoProducts) DecrementStockIfAvailable(ctx context.Context, id string, qty int) (bool, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, mongoErr(err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *mongoProducts) AdjustStock(ctx context.Context, id string, op StockOp, qty int) (*models.Product, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	var next interface{}
	switch op {
	case StockSet:
		next = max(qty, 0)
	case StockIncrease:
		next = bson.M{"$add": bson.A{"$stock", qty}}
	case StockDecrease:
		next = bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$stock", qty}}}}
	default:
		return nil, fmt.Errorf("unknown stock operation %q", op)
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{"stock": next, "updatedAt": time.Now().UTC()}}}}
	var p models.Product
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &p, nil
}

func (r *mongoProducts) Stats(ctx context.Context) (CatalogStats, error) {
	var s CatalogStats
	var err error
	if s.Products, err = r.col.CountDocuments(ctx, bson.M{}); err != nil {
		return s, mongoErr(err)
	}
	if s.LowStock, err = r.col.CountDocuments(ctx, productQuery(ProductFilter{StockStatus: models.StockLow})); err != nil {
		return s, mongoErr(err)
	}
	s.OutOfStock, err = r.col.CountDocuments(ctx, productQuery(ProductFilter{StockStatus: models.StockOut}))
	return s, mongoErr(err)
}

// ── Orders ───────────────────────────────────────────────────────────────────

type mongoOrders struct{ col *mongo.Collection }

func byOrderRef(id string) bson.M {
	return bson.M{"$or": bson.A{bson.M{"_id": id}, bson.M{"orderId": id}}}
}

func (r *mongoOrders) Insert(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	_, err := r.col.InsertOne(ctx, o)
	return mongoErr(err)
}

func (r *mongoOrders) FindByID(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var o models.Order
	if err := r.col.FindOne(ctx, byOrderRef(id)).Decode(&o); err != nil {
		return nil, mongoErr(err)
	}
	return &o, nil
}

func (r *mongoOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	q := bson.M{}
	if f.UserID != "" {
		q["user"] = f.UserID
	}
	if f.Status != "" {
		q["orderStatus"] = f.Status
	}
	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "orderId", Value: -1}}))
	if err != nil {
		return nil, mongoErr(err)
	}
	out := make([]models.Order, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err)
	}
	return out, nil
}

func (r *mongoOrders) AppendStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	var o models.Order
	err := r.col.FindOneAndUpdate(ctx, byOrderRef(id),
		bson.M{
			"$set":  bson.M{"orderStatus": status, "updatedAt": at},
			"$push": bson.M{"statusHistory": models.StatusEvent{Status: status, Timestamp: at}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &o, nil
}

func (r *mongoOrders) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	return n, mongoErr(err)
}

// ── Users ────────────────────────────────────────────────────────────────────

type mongoUsers struct{ col *mongo.Collection }

func (r *mongoUsers) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, u)
	return mongoErr(err)
}

func (r *mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mongoErr(err)
	}
	return &u, nil
}

func (r *mongoUsers) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"phone": phone}).Decode(&u); err != nil {
		return nil, mongoErr(err)
	}
	return &u, nil
}

func (r *mongoUsers) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, mongoErr(err)
	}
	out := make([]models.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err)
	}
	return out, nil
}

func (r *mongoUsers) Count(ctx context.Context) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	return n, mongoErr(err)
}
