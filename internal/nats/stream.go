package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/pkg/metrics"
)

const (
	// StreamName is the name of the chat turn stream.
	StreamName = "CHAT_TURNS"

	// SubjectPrefix is the prefix for all chat turn subjects.
	SubjectPrefix = "chat.turns"
)

// StreamManager appends chat turns to JetStream and reads them back.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the turn stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Duplicates:  2 * time.Minute,
		Description: "Append-only log of portfolio chat turns",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject a turn with role is published on.
func TurnSubject(role model.Role) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, role)
}

// PublishTurn appends a turn to the stream. The turn ID doubles as the dedup key.
func (m *StreamManager) PublishTurn(ctx context.Context, turn *model.ChatTurn) (uint64, error) {
	data, err := json.Marshal(turn)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, TurnSubject(turn.Role), data, jetstream.WithMsgID(turn.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn: %w", err)
	}

	return ack.Sequence, nil
}

// RecentTurns returns up to limit turns, newest first.
func (m *StreamManager) RecentTurns(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	turns := make([]model.ChatTurn, 0, limit)
	for seq := info.State.LastSeq; seq >= info.State.FirstSeq && seq > 0 && len(turns) < limit; seq-- {
		msg, err := stream.GetMsg(ctx, seq)
		if errors.Is(err, jetstream.ErrMsgNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get message %d: %w", seq, err)
		}

		var turn model.ChatTurn
		if err := json.Unmarshal(msg.Data, &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// UpdateMetrics publishes the stream's size to the NATS gauges and doubles as a health probe.
func (m *StreamManager) UpdateMetrics(ctx context.Context) error {
	if err := m.client.Ping(ctx); err != nil {
		return err
	}

	stream, err := m.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	metrics.SetStreamState(StreamName, info.State.Msgs, info.State.Bytes)
	return nil
}

// Close closes the underlying connection.
func (m *StreamManager) Close() {
	m.client.Close()
}
