package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/portfolio-site/portfolio-api/internal/model"
)

// CollectionName is the Mongo collection chat turns are written to.
const CollectionName = "chatMessages"

type turnDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TurnID    string             `bson:"turnId"`
	Role      model.Role         `bson:"role"`
	Content   string             `bson:"content"`
	Timestamp time.Time          `bson:"timestamp"`
}

// Mongo stores turns as documents in the chatMessages collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri and verifies the deployment is reachable.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetAppName("portfolio-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(CollectionName)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create timestamp index: %w", err)
	}

	return &Mongo{client: client, coll: coll}, nil
}

func (m *Mongo) Append(ctx context.Context, turn *model.ChatTurn) error {
	if err := stamp(turn); err != nil {
		return err
	}

	_, err := m.coll.InsertOne(ctx, turnDocument{
		TurnID:    turn.ID,
		Role:      turn.Role,
		Content:   turn.Content,
		Timestamp: turn.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (m *Mongo) Recent(ctx context.Context, limit int) ([]model.ChatTurn, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cur, err := m.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer cur.Close(ctx)

	var docs []turnDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}

	turns := make([]model.ChatTurn, len(docs))
	for i, d := range docs {
		id := d.TurnID
		if id == "" {
			id = d.ID.Hex()
		}
		turns[i] = model.ChatTurn{ID: id, Role: d.Role, Content: d.Content, Timestamp: d.Timestamp}
	}
	return turns, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
