package store

import (
	"context"
	"fmt"

	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/internal/nats"
)

// JetStream appends turns to the CHAT_TURNS stream.
type JetStream struct {
	streams *nats.StreamManager
}

// NewJetStream ensures the turn stream exists.
func NewJetStream(ctx context.Context, streams *nats.StreamManager) (*JetStream, error) {
	if err := streams.EnsureStream(ctx); err != nil {
		streams.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}
	return &JetStream{streams: streams}, nil
}

func (j *JetStream) Append(ctx context.Context, turn *model.ChatTurn) error {
	if err := stamp(turn); err != nil {
		return err
	}
	_, err := j.streams.PublishTurn(ctx, turn)
	return err
}

func (j *JetStream) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	return j.streams.RecentTurns(ctx, clampLimit(limit))
}

func (j *JetStream) Ping(ctx context.Context) error {
	return j.streams.UpdateMetrics(ctx)
}

func (j *JetStream) Close(context.Context) error {
	j.streams.Close()
	return nil
}
