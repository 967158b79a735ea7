// Package store persists chat turns in an append-only log.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/model"
	"github.com/portfolio-site/portfolio-api/internal/nats"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

// DefaultLimit and MaxLimit bound Recent reads.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ErrInvalidTurn is returned when a turn has no role.
var ErrInvalidTurn = errors.New("store: turn has no role")

// Store is an append-only sink for chat turns. Implementations must be safe for concurrent use.
type Store interface {
	// Append records turn, assigning ID and Timestamp when unset.
	Append(ctx context.Context, turn *model.ChatTurn) error

	// Recent returns up to limit turns, newest first.
	Recent(ctx context.Context, limit int) ([]model.ChatTurn, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	log.Info("Opening chat store", zap.String("backend", cfg.StoreBackend))

	switch cfg.StoreBackend {
	case config.StoreMongo:
		return NewMongo(ctx, cfg.MongoURI, cfg.DatabaseName)
	case config.StoreNATS:
		client, err := nats.Connect(ctx, nats.Config{
			URL:      cfg.NATSURL,
			Name:     "portfolio-api",
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return nil, err
		}
		return NewJetStream(ctx, nats.NewStreamManager(client))
	case config.StorePostgres:
		return NewPostgres(ctx, cfg.PostgresURL)
	case config.StoreBolt:
		return NewBolt(cfg.BoltPath)
	case config.StoreMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

// stamp fills in the fields every backend assigns on append.
func stamp(turn *model.ChatTurn) error {
	if turn.Role == "" {
		return ErrInvalidTurn
	}
	if turn.ID == "" {
		turn.ID = uuid.Must(uuid.NewV7()).String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
