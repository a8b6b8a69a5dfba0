package outbox

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/repository/dberr"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository over the outbox_events table.
func NewPostgres(pool *pgxpool.Pool, l *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.OrDiscard(l)}
}

func (r *postgresRepo) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, aggregate_id, event_type, payload, created_at
FROM outbox_events
WHERE published_at IS NULL
ORDER BY created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		r.logger.Error("outbox repo: fetch", "error", err)
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *postgresRepo) MarkPublished(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = $1 AND published_at IS NULL`, id)
	if err != nil {
		return dberr.Postgres(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
