package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"storefront/internal/domain"
)

func TestPostgres(t *testing.T) {
	assert.NoError(t, Postgres(nil))
	assert.ErrorIs(t, Postgres(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)
	assert.ErrorIs(t, Postgres(&pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists)
	assert.ErrorIs(t, Postgres(&pgconn.PgError{Code: "22P02"}), domain.ErrNotFound)
	assert.ErrorIs(t, Postgres(&pgconn.PgError{Code: "23514", ConstraintName: "cart_items_quantity_check"}), domain.ErrInvalidInput)

	other := errors.New("boom")
	assert.Equal(t, other, Postgres(other))
}

func TestMongo(t *testing.T) {
	assert.ErrorIs(t, Mongo(mongo.ErrNoDocuments), domain.ErrNotFound)
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	assert.ErrorIs(t, Mongo(dup), domain.ErrAlreadyExists)
}

func TestObjectID(t *testing.T) {
	_, err := ObjectID("not-hex")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	oid, err := ObjectID("65a1b2c3d4e5f60718293a4b")
	assert.NoError(t, err)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", oid.Hex())
}
