package cart

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
	"storefront/internal/repository/dberr"
)

// Collection is the Mongo collection holding cart documents.
const Collection = "carts"

const upsertAttempts = 3

// Doc is the stored shape of a cart document.
type Doc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Items     []ItemDoc          `bson:"items"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type ItemDoc struct {
	ProductID string    `bson:"productId"`
	VariantID string    `bson:"variantId"`
	Quantity  int       `bson:"quantity"`
	Title     string    `bson:"title"`
	Price     int64     `bson:"price"`
	Image     string    `bson:"image,omitempty"`
	AddedAt   time.Time `bson:"addedAt"`
}

// ToDomain converts the stored document.
func (d Doc) ToDomain() *domain.Cart {
	c := &domain.Cart{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, it := range d.Items {
		c.Items = append(c.Items, domain.CartItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Title:     it.Title,
			Price:     it.Price,
			Image:     it.Image,
			AddedAt:   it.AddedAt,
		})
	}
	return c
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo returns a Repository that keeps each cart as one document and
// mutates it with single-document update pipelines.
func NewMongo(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{coll: db.Collection(Collection), logger: logger.OrDiscard(l)}
}

// EnsureIndexes creates the one-cart-per-user index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *mongoRepo) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"items":     bson.A{},
		"createdAt": now,
		"updatedAt": now,
	}}
	return r.upsert(ctx, "get", userID, update)
}

// AddItem makes sure the cart exists, then merges the line with a filter
// that only matches while the merged quantity stays within the cap.
func (r *mongoRepo) AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	if item.Quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimit
	}
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newItem := ItemDoc{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Quantity:  item.Quantity,
		Title:     item.Title,
		Price:     item.Price,
		Image:     item.Image,
		AddedAt:   now,
	}
	items := bson.M{"$ifNull": bson.A{"$items", bson.A{}}}
	match := lineMatch(item.ProductID, item.VariantID)
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"createdAt": bson.M{"$ifNull": bson.A{"$createdAt", now}},
			"updatedAt": now,
			"items": bson.M{"$cond": bson.A{
				bson.M{"$anyElementTrue": bson.A{bson.M{"$map": bson.M{"input": items, "as": "it", "in": match}}}},
				bson.M{"$map": bson.M{
					"input": items,
					"as":    "it",
					"in": bson.M{"$cond": bson.A{
						match,
						bson.M{"$mergeObjects": bson.A{"$$it", bson.M{"quantity": bson.M{"$add": bson.A{"$$it.quantity", item.Quantity}}}}},
						"$$it",
					}},
				}},
				bson.M{"$concatArrays": bson.A{items, bson.A{bson.M{"$literal": newItem}}}},
			}},
		}}},
	}
	filter := bson.M{
		"userId": userID,
		"$nor": bson.A{bson.M{"items": bson.M{"$elemMatch": bson.M{
			"productId": item.ProductID,
			"variantId": item.VariantID,
			"quantity":  bson.M{"$gt": domain.MaxLineQuantity - item.Quantity},
		}}}},
	}
	var doc Doc
	err := r.coll.FindOneAndUpdate(ctx, filter, pipeline, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.logger.Info("cart repo: add", "user_id", userID, "error", domain.ErrQuantityLimit)
		return nil, domain.ErrQuantityLimit
	}
	if err != nil {
		err = dberr.Mongo(err)
		r.logger.Error("cart repo: add", "user_id", userID, "error", err)
		return nil, err
	}
	r.logger.Debug("cart repo: add", "user_id", userID, "cart_id", doc.ID.Hex(), "lines", len(doc.Items))
	return doc.ToDomain(), nil
}

func (r *mongoRepo) RemoveItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error) {
	update := bson.M{
		"$pull":        bson.M{"items": bson.M{"productId": productID, "variantId": variantID}},
		"$set":         bson.M{"updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
	}
	return r.upsert(ctx, "remove", userID, update)
}

func (r *mongoRepo) AdjustQuantity(ctx context.Context, userID, productID, variantID string, delta int) (*domain.Cart, error) {
	next := bson.M{"$add": bson.A{"$$it.quantity", delta}}
	return r.upsert(ctx, "adjust", userID, rewriteLine(productID, variantID, next))
}

func (r *mongoRepo) SetQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityLimit
	}
	return r.upsert(ctx, "set", userID, rewriteLine(productID, variantID, bson.M{"$literal": quantity}))
}

func (r *mongoRepo) ItemCount(ctx context.Context, userID string) (int, error) {
	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$project", Value: bson.M{"count": bson.M{"$sum": "$items.quantity"}}}},
	})
	if err != nil {
		err = dberr.Mongo(err)
		r.logger.Error("cart repo: count", "user_id", userID, "error", err)
		return 0, err
	}
	defer cur.Close(ctx)

	var out []struct {
		Count int `bson:"count"`
	}
	if err := cur.All(ctx, &out); err != nil {
		err = dberr.Mongo(err)
		r.logger.Error("cart repo: count", "user_id", userID, "error", err)
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Count, nil
}

// rewriteLine sets a matching line's quantity to next and removes lines
// that end up at zero or below, in one document update.
func rewriteLine(productID, variantID string, next any) mongo.Pipeline {
	now := time.Now().UTC()
	items := bson.M{"$ifNull": bson.A{"$items", bson.A{}}}
	mapped := bson.M{"$map": bson.M{
		"input": items,
		"as":    "it",
		"in": bson.M{"$cond": bson.A{
			lineMatch(productID, variantID),
			bson.M{"$mergeObjects": bson.A{"$$it", bson.M{"quantity": next}}},
			"$$it",
		}},
	}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"createdAt": bson.M{"$ifNull": bson.A{"$createdAt", now}},
			"updatedAt": now,
			"items": bson.M{"$filter": bson.M{
				"input": mapped,
				"as":    "it",
				"cond":  bson.M{"$gt": bson.A{"$$it.quantity", 0}},
			}},
		}}},
	}
}

func lineMatch(productID, variantID string) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$$it.productId", bson.M{"$literal": productID}}},
		bson.M{"$eq": bson.A{"$$it.variantId", bson.M{"$literal": variantID}}},
	}}
}

// upsert applies update to the user's cart document, creating it when
// missing. Two concurrent first writes race on the unique userId index, so
// duplicate key errors are retried.
func (r *mongoRepo) upsert(ctx context.Context, op, userID string, update any) (*domain.Cart, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var lastErr error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		var doc Doc
		err := r.coll.FindOneAndUpdate(ctx, bson.M{"userId": userID}, update, opts).Decode(&doc)
		if err == nil {
			r.logger.Debug("cart repo: "+op, "user_id", userID, "cart_id", doc.ID.Hex(), "lines", len(doc.Items))
			return doc.ToDomain(), nil
		}
		lastErr = dberr.Mongo(err)
		if !errors.Is(lastErr, domain.ErrAlreadyExists) {
			break
		}
	}
	r.logger.Error("cart repo: "+op, "user_id", userID, "error", lastErr)
	return nil, lastErr
}
