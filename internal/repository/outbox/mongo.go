package outbox

import (
	"context"
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

const collection = "outbox"

type eventDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	AggregateID string             `bson:"aggregateId"`
	EventType   string             `bson:"eventType"`
	Payload     []byte             `bson:"payload"`
	CreatedAt   time.Time          `bson:"createdAt"`
	PublishedAt *time.Time         `bson:"publishedAt"`
}

// InsertMongo writes ev to the outbox; pass a SessionContext to join a
// transaction.
func InsertMongo(ctx context.Context, db *mongo.Database, ev domain.OutboxEvent) error {
	_, err := db.Collection(collection).InsertOne(ctx, eventDoc{
		ID:          primitive.NewObjectID(),
		AggregateID: ev.AggregateID,
		EventType:   ev.EventType,
		Payload:     ev.Payload,
		CreatedAt:   time.Now().UTC(),
	})
	return err
}

// EnsureIndexes creates the pending-events index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

type mongoRepo struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongo returns a Repository over the "outbox" collection.
func NewMongo(db *mongo.Database, l *slog.Logger) Repository {
	return &mongoRepo{coll: db.Collection(collection), logger: logger.OrDiscard(l)}
}

func (r *mongoRepo) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"publishedAt": nil}, opts)
	if err != nil {
		r.logger.Error("outbox repo: fetch", "error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	events := make([]domain.OutboxEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.OutboxEvent{
			ID:          d.ID.Hex(),
			AggregateID: d.AggregateID,
			EventType:   d.EventType,
			Payload:     d.Payload,
			CreatedAt:   d.CreatedAt,
		})
	}
	return events, nil
}

func (r *mongoRepo) MarkPublished(ctx context.Context, id string) error {
	oid, err := dberr.ObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "publishedAt": nil},
		bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}},
	)
	if err != nil {
		return dberr.Mongo(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
