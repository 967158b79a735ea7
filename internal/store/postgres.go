package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

const createTurnsTable = `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id         UUID PRIMARY KEY,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		timestamp  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS chat_messages_timestamp_idx ON chat_messages (timestamp DESC);
`

// Postgres stores turns in the chat_messages table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool against databaseURL and creates the table when missing.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(connectCtx, createTurnsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create chat_messages table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Append(ctx context.Context, turn *model.ChatTurn) error {
	if err := stamp(turn); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, role, content, timestamp) VALUES ($1, $2, $3, $4)`,
		turn.ID, string(turn.Role), turn.Content, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id::text, role, content, timestamp FROM chat_messages ORDER BY timestamp DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		var role string
		if err := rows.Scan(&t.ID, &role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = model.Role(role)
		t.Timestamp = t.Timestamp.UTC()
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close(context.Context) error {
	p.pool.Close()
	return nil
}
