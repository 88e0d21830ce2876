// Package session はログインセッションの保存と検証を提供します。
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRecordNotFound はセッションレコードが存在しない（期限切れを含む）場合に返ります。
var ErrRecordNotFound = errors.New("session record not found")

// Backend はセッションレコード（暗号化済みペイロード）の永続化先です。
type Backend interface {
	Load(ctx context.Context, id string) (string, error)
	Save(ctx context.Context, id, payload string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

const redisKeyPrefix = "session:"

// RedisBackend はセッションレコードを Redis に TTL 付きで保存します。
type RedisBackend struct {
	rdb redis.UniversalClient
}

// NewRedisBackend は RedisBackend を作成します。
func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// Load はレコードを取得します。
func (b *RedisBackend) Load(ctx context.Context, id string) (string, error) {
	payload, err := b.rdb.Get(ctx, redisKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	return payload, nil
}

// Save はレコードを保存します。ttl 経過後に Redis が削除します。
func (b *RedisBackend) Save(ctx context.Context, id, payload string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if err := b.rdb.Set(ctx, redisKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete はレコードを削除します。
func (b *RedisBackend) Delete(ctx context.Context, id string) error {
	if err := b.rdb.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}
