package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY,
	step        TEXT NOT NULL,
	state       JSONB NOT NULL,
	generation  BIGINT NOT NULL DEFAULT 0,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversations_updated_at_idx ON conversations (updated_at);
`

// Postgres keeps one JSONB row per conversation.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the conversations table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate conversations: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id string) (conversation.State, bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM conversations WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return conversation.State{}, false, nil
	}
	if err != nil {
		return conversation.State{}, false, fmt.Errorf("query conversation: %w", err)
	}
	var st conversation.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return conversation.State{}, false, fmt.Errorf("decode conversation: %w: %w", conversation.ErrCorruptState, err)
	}
	return st, true, nil
}

func (p *Postgres) Save(ctx context.Context, st conversation.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO conversations (id, step, state, generation, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET step = EXCLUDED.step, state = EXCLUDED.state,
		    generation = EXCLUDED.generation, updated_at = EXCLUDED.updated_at`,
		st.ID, string(st.Step.Kind()), raw, int64(st.Generation), updated,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (p *Postgres) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
