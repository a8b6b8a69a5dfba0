package order

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"storefront/internal/domain"
	"storefront/internal/logger"
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/repository/dberr"
	"storefront/internal/repository/outbox"
)

const collection = "orders"

type orderDoc struct {
	ID             primitive.ObjectID `bson:"_id"`
	UserID         string             `bson:"userId"`
	Items          []itemDoc          `bson:"items"`
	TotalAmount    int64              `bson:"totalAmount"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty"`
	CreatedAt      time.Time          `bson:"creationAt"`
}

type itemDoc struct {
	ProductID string `bson:"productId"`
	VariantID string `bson:"variantId"`
	Quantity  int    `bson:"quantity"`
	Title     string `bson:"title"`
	Price     int64  `bson:"price"`
}

func (d orderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		ID:             d.ID.Hex(),
		UserID:         d.UserID,
		Items:          make([]domain.OrderItem, 0, len(d.Items)),
		TotalAmount:    d.TotalAmount,
		IdempotencyKey: d.IdempotencyKey,
		CreatedAt:      d.CreatedAt,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, domain.OrderItem(it))
	}
	return o
}

type mongoRepo struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo returns a Repository backed by the "orders" collection. Checkout
// runs in a multi-document transaction spanning carts, orders and outbox.
func NewMongo(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{
		client: db.Client(),
		db:     db,
		coll:   db.Collection(collection),
		logger: logger.OrDiscard(l),
	}
}

// EnsureIndexes creates the per-user listing and idempotency indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "creationAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
		},
	})
	return err
}

type checkoutResult struct {
	order    *domain.Order
	replayed bool
}

func (r *mongoRepo) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, bool, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return nil, false, err
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.checkoutTx(sc, req)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("order repo: checkout", "user_id", req.UserID, "error", err)
		}
		return nil, false, dberr.Mongo(err)
	}
	out := res.(checkoutResult)
	if out.replayed {
		r.logger.Info("order repo: checkout replay", "user_id", req.UserID, "order_id", out.order.ID)
	} else {
		r.logger.Info("order repo: checkout", "user_id", req.UserID, "order_id", out.order.ID, "total", out.order.TotalAmount)
	}
	return out.order, out.replayed, nil
}

func (r *mongoRepo) checkoutTx(sc mongo.SessionContext, req CheckoutRequest) (checkoutResult, error) {
	carts := r.db.Collection(cartrepo.Collection)
	now := time.Now().UTC()

	// Writing the cart first makes concurrent checkouts of the same cart
	// conflict, and the driver retries the loser.
	var cart cartrepo.Doc
	err := carts.FindOneAndUpdate(sc,
		bson.M{"userId": req.UserID},
		bson.M{"$set": bson.M{"updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return checkoutResult{}, err
	}

	if req.IdempotencyKey != "" {
		var existing orderDoc
		err := r.coll.FindOne(sc, bson.M{"userId": req.UserID, "idempotencyKey": req.IdempotencyKey}).Decode(&existing)
		if err == nil {
			return checkoutResult{order: existing.toDomain(), replayed: true}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return checkoutResult{}, err
		}
	}

	if len(cart.Items) == 0 {
		return checkoutResult{}, domain.ErrEmptyCart
	}

	lines, err := req.Price(sc, cart.ToDomain().Items)
	if err != nil {
		return checkoutResult{}, err
	}
	doc := orderDoc{
		ID:             primitive.NewObjectID(),
		UserID:         req.UserID,
		Items:          make([]itemDoc, 0, len(lines)),
		TotalAmount:    domain.OrderTotal(lines),
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}
	for _, l := range lines {
		doc.Items = append(doc.Items, itemDoc(l))
	}
	if _, err := r.coll.InsertOne(sc, doc); err != nil {
		return checkoutResult{}, err
	}
	o := doc.toDomain()

	if req.Event != nil {
		ev, err := req.Event(*o)
		if err != nil {
			return checkoutResult{}, err
		}
		if err := outbox.InsertMongo(sc, r.db, ev); err != nil {
			return checkoutResult{}, err
		}
	}

	if _, err := carts.UpdateOne(sc,
		bson.M{"_id": cart.ID},
		bson.M{"$set": bson.M{"items": bson.A{}, "updatedAt": now}},
	); err != nil {
		return checkoutResult{}, err
	}
	return checkoutResult{order: o}, nil
}

func (r *mongoRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "creationAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		r.logger.Error("order repo: list", "user_id", userID, "error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, *d.toDomain())
	}
	return orders, nil
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := dberr.ObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "idempotencyKey": key})
}

func (r *mongoRepo) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, dberr.Mongo(err)
	}
	return doc.toDomain(), nil
}
