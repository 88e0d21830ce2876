package account

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore は MongoDB のコレクションにアカウントを保存します。
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

// EnsureIndexes は username と email の一意インデックスを作成します。
// 重複チェックはこのインデックスに任せ、アプリ側では事前確認しません。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

// Insert はアカウントを1件挿入します。
func (s *MongoStore) Insert(ctx context.Context, account *Account) error {
	if account == nil {
		return fmt.Errorf("account is nil")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// FindByIdentifier は識別子に一致するアカウントを取得します。
func (s *MongoStore) FindByIdentifier(ctx context.Context, field Identifier, value string) (*Account, error) {
	if _, err := ParseIdentifier(string(field)); err != nil {
		return nil, err
	}

	opts := options.Find().
		SetProjection(bson.D{
			{Key: "_id", Value: 1},
			{Key: "username", Value: 1},
			{Key: "email", Value: 1},
			{Key: "password", Value: 1},
		}).
		SetLimit(2)
	cursor, err := s.coll.Find(ctx, bson.D{{Key: string(field), Value: value}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	var found []Account
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, ErrAmbiguous
	}
}
