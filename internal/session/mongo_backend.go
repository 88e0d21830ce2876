package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Payload   string    `bson:"session"`
	ExpiresAt time.Time `bson:"expires"`
}

// MongoBackend はセッションレコードを MongoDB のコレクションに保存します。
// 期限切れレコードの削除は TTL インデックスに任せます。
type MongoBackend struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoBackend は MongoBackend を作成します。
func NewMongoBackend(coll *mongo.Collection) *MongoBackend {
	return &MongoBackend{coll: coll, now: time.Now}
}

// EnsureIndexes は expires フィールドに TTL インデックスを作成します。
func (b *MongoBackend) EnsureIndexes(ctx context.Context) error {
	_, err := b.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
	})
	if err != nil {
		return fmt.Errorf("create session ttl index: %w", err)
	}
	return nil
}

// Load はレコードを取得します。TTL モニターの削除前でも期限切れは見つからない扱いです。
func (b *MongoBackend) Load(ctx context.Context, id string) (string, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "expires", Value: bson.D{{Key: "$gt", Value: b.now().UTC()}}},
	}
	var rec mongoRecord
	if err := b.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	return rec.Payload, nil
}

// Save はレコードを upsert します。
func (b *MongoBackend) Save(ctx context.Context, id, payload string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	rec := mongoRecord{ID: id, Payload: payload, ExpiresAt: b.now().UTC().Add(ttl)}
	_, err := b.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete はレコードを削除します。
func (b *MongoBackend) Delete(ctx context.Context, id string) error {
	if _, err := b.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
