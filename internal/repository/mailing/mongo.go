package mailing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

const collection = "emails"

type entryDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	Name      string             `bson:"name,omitempty"`
	Age       *int               `bson:"age,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo returns a Repository over the "emails" collection.
func NewMongo(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{coll: db.Collection(collection), logger: logger.OrDiscard(l)}
}

// EnsureIndexes creates the unique email index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *mongoRepo) Create(ctx context.Context, e domain.MailingEntry) (*domain.MailingEntry, error) {
	doc := entryDoc{
		ID:        primitive.NewObjectID(),
		Email:     strings.ToLower(e.Email),
		Name:      e.Name,
		Age:       e.Age,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		err = dberr.Mongo(err)
		r.logger.Info("mailing repo: create", "email", doc.Email, "error", err)
		return nil, err
	}
	return &domain.MailingEntry{ID: doc.ID.Hex(), Email: doc.Email, Name: doc.Name, Age: doc.Age, CreatedAt: doc.CreatedAt}, nil
}
