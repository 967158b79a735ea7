package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

var turnsBucket = []byte("chat_turns")

// Bolt stores turns in a single-file bbolt database, keyed by insertion sequence.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the database at path.
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(turnsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Append(ctx context.Context, turn *model.ChatTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := stamp(turn); err != nil {
		return err
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(turnsBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

func (b *Bolt) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	limit = clampLimit(limit)

	var turns []model.ChatTurn
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(turnsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(turns) < limit; k, v = c.Prev() {
			var t model.ChatTurn
			if err := json.Unmarshal(v, &t); err != nil {
				// Skip malformed entries instead of failing the whole read
				continue
			}
			turns = append(turns, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (b *Bolt) Ping(context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(turnsBucket) == nil {
			return fmt.Errorf("bucket %s missing", turnsBucket)
		}
		return nil
	})
}

func (b *Bolt) Close(context.Context) error {
	return b.db.Close()
}
