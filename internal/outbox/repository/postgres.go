package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB sqlx.ExtContext
}

func NewPGRepository(db sqlx.ExtContext) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Insert(ctx context.Context, ev *model.OutboxEvent) error {
	query := `
        INSERT INTO event_outbox (event_id, topic, key, payload, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	row := r.DB.QueryRowxContext(ctx, query, ev.EventID, ev.Topic, ev.Key, ev.Payload, ev.CreatedAt)
	if err := row.Scan(&ev.ID); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *PGRepository) FetchPending(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	query := `
        SELECT * FROM event_outbox
        WHERE sent_at IS NULL
        ORDER BY id
        LIMIT $1
        FOR UPDATE SKIP LOCKED
    `
	if err := sqlx.SelectContext(ctx, r.DB, &events, query, limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PGRepository) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE event_outbox SET sent_at = ? WHERE id IN (?)`, at, ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	return err
}
