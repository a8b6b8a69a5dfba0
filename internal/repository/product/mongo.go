package product

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

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Key         string             `bson:"key"`
	Title       string             `bson:"title"`
	Price       int64              `bson:"price"`
	ListPrice   int64              `bson:"mrpPrice"`
	Description string             `bson:"description,omitempty"`
	Images      []string           `bson:"images"`
	Category    string             `bson:"category,omitempty"`
	Variants    []variantDoc       `bson:"variants"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type variantDoc struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Price int64  `bson:"price"`
}

func (d productDoc) toDomain() domain.Product {
	p := domain.Product{
		ID:          d.ID.Hex(),
		Key:         d.Key,
		Title:       d.Title,
		Price:       d.Price,
		ListPrice:   d.ListPrice,
		Description: d.Description,
		Images:      nonNilImages(d.Images),
		Category:    d.Category,
		Variants:    make([]domain.Variant, 0, len(d.Variants)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, v := range d.Variants {
		p.Variants = append(p.Variants, domain.Variant{ID: v.ID, Name: v.Name, Price: v.Price})
	}
	return p
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo returns a Repository backed by the "products" collection.
func NewMongo(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{coll: db.Collection("products"), logger: logger.OrDiscard(l)}
}

// EnsureIndexes creates the unique key index and the listing index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("products").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	})
	return err
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (r *mongoRepo) List(ctx context.Context) ([]domain.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

func (r *mongoRepo) ListPage(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(int64(offset)).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := dberr.ObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		err = dberr.Mongo(err)
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("product repo: get", "id", id, "error", err)
		}
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *mongoRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := dberr.ObjectID(id); err == nil {
			oids = append(oids, oid)
		}
	}
	out := make(map[string]domain.Product, len(oids))
	if len(oids) == 0 {
		return out, nil
	}
	list, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *mongoRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	now := time.Now().UTC()
	variants := make([]variantDoc, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, variantDoc{ID: v.ID, Name: v.Name, Price: v.Price})
	}
	update := bson.M{
		"$set": bson.M{
			"title":       p.Title,
			"price":       p.Price,
			"mrpPrice":    p.ListPrice,
			"description": p.Description,
			"images":      nonNilImages(p.Images),
			"category":    p.Category,
			"variants":    variants,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc productDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"key": p.Key}, update, opts).Decode(&doc); err != nil {
		r.logger.Error("product repo: upsert", "key", p.Key, "error", err)
		return nil, dberr.Mongo(err)
	}
	res := doc.toDomain()
	r.logger.Info("product repo: upserted", "key", res.Key, "id", res.ID, "variants", len(res.Variants))
	return &res, nil
}

func (r *mongoRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("product repo: find", "error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}
