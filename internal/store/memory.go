package store

import (
	"context"
	"sync"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

// Memory keeps turns in process. Used for local development and tests.
type Memory struct {
	mu    sync.RWMutex
	turns []model.ChatTurn
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, turn *model.ChatTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stamp(turn); err != nil {
		return err
	}

	m.mu.Lock()
	m.turns = append(m.turns, *turn)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	limit = clampLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ChatTurn, 0, min(limit, len(m.turns)))
	for i := len(m.turns) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.turns[i])
	}
	return out, nil
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

func (m *Memory) Ping(context.Context) error  { return nil }
func (m *Memory) Close(context.Context) error { return nil }
