package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akave-ai/hooklog/internal/model"
)

// Postgres stores entries in the webhook_logs table. Seq comes from the
// table's BIGSERIAL, so ordering follows insert order.
type Postgres struct {
	pool  *pgxpool.Pool
	limit int
}

// NewPostgres returns a store on pool. The pool stays owned by the caller.
// With a positive limit only the newest limit rows are retained.
func NewPostgres(pool *pgxpool.Pool, limit int) *Postgres {
	if limit < 0 {
		limit = 0
	}
	return &Postgres{pool: pool, limit: limit}
}

// Append inserts e and sets e.Seq from the table sequence. With a limit,
// older rows beyond it are deleted in the same transaction.
func (p *Postgres) Append(ctx context.Context, e *model.WebhookLogEntry) error {
	insert := func(q interface {
		QueryRow(context.Context, string, ...any) pgx.Row
	}) error {
		return q.QueryRow(ctx, `
			INSERT INTO webhook_logs (id, received_at, payload)
			VALUES ($1, $2, $3)
			RETURNING seq`,
			e.ID,
			e.ReceivedAt,
			[]byte(e.Payload),
		).Scan(&e.Seq)
	}

	if p.limit == 0 {
		if err := insert(p.pool); err != nil {
			return fmt.Errorf("insert webhook log: %w", err)
		}
		return nil
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := insert(tx); err != nil {
			return fmt.Errorf("insert webhook log: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM webhook_logs
			WHERE seq IN (SELECT seq FROM webhook_logs ORDER BY seq DESC OFFSET $1)`,
			p.limit,
		); err != nil {
			return fmt.Errorf("trim webhook logs: %w", err)
		}
		return nil
	})
}

// List reads the count and the page from one snapshot.
func (p *Postgres) List(ctx context.Context, q model.ListQuery) (model.LogPage, error) {
	var page model.LogPage
	// count and rows come from one snapshot
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM webhook_logs`).Scan(&page.Total); err != nil {
			return fmt.Errorf("count webhook logs: %w", err)
		}

		// fetch one extra row to learn whether another page follows
		var limit *int
		if q.Paginated() {
			n := q.Limit + 1
			limit = &n
		}
		rows, err := tx.Query(ctx, `
			SELECT seq, id, received_at, payload
			FROM webhook_logs
			WHERE seq > $1
			ORDER BY seq
			LIMIT $2`, q.After, limit)
		if err != nil {
			return fmt.Errorf("list webhook logs: %w", err)
		}
		entries, err := scanEntries(rows)
		if err != nil {
			return fmt.Errorf("list webhook logs: %w", err)
		}

		if q.Paginated() && len(entries) > q.Limit {
			entries = entries[:q.Limit]
			page.NextCursor = entries[len(entries)-1].Seq
		}
		page.Entries = entries
		return nil
	})
	return page, err
}

// Clear deletes and returns every row in one statement.
func (p *Postgres) Clear(ctx context.Context) ([]model.WebhookLogEntry, error) {
	// one statement: rows committed before it are removed and returned,
	// rows committed after it are untouched
	rows, err := p.pool.Query(ctx, `
		WITH removed AS (
			DELETE FROM webhook_logs
			RETURNING seq, id, received_at, payload
		)
		SELECT seq, id, received_at, payload FROM removed ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("clear webhook logs: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("clear webhook logs: %w", err)
	}
	return entries, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close is a no-op; the pool belongs to whoever created it.
func (p *Postgres) Close() error { return nil }

func scanEntries(rows pgx.Rows) ([]model.WebhookLogEntry, error) {
	defer rows.Close()

	list := []model.WebhookLogEntry{}
	for rows.Next() {
		var (
			e       model.WebhookLogEntry
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.ReceivedAt, &payload); err != nil {
			return nil, err
		}
		e.ReceivedAt = e.ReceivedAt.UTC()
		e.Payload = payload
		list = append(list, e)
	}
	return list, rows.Err()
}
