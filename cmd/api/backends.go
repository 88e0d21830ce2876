package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/yourusername/members-portal/internal/account"
	"github.com/yourusername/members-portal/internal/config"
	"github.com/yourusername/members-portal/internal/session"
)

const connectTimeout = 10 * time.Second

// backends は設定に応じて選ばれたアカウントストアとセッション保存先です。
type backends struct {
	accounts account.Store
	sessions session.Backend
	closers  []func(context.Context) error
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	b := &backends{}
	ok := false
	defer func() {
		if !ok {
			b.close(logger)
		}
	}()

	var mongoClient *mongo.Client
	if cfg.UsesMongo() {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, client.Disconnect)
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		mongoClient = client
	}

	switch cfg.CredentialBackend {
	case config.BackendMongo:
		store := account.NewMongoStore(mongoClient.Database(cfg.MongoDatabase).Collection(cfg.MongoUsersCollection))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure account indexes: %w", err)
		}
		b.accounts = store
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		b.accounts = account.NewPostgresStore(pool)
	default:
		return nil, fmt.Errorf("unsupported credential backend: %s", cfg.CredentialBackend)
	}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.sessions = session.NewRedisBackend(client)
	case config.BackendMongo:
		backend := session.NewMongoBackend(mongoClient.Database(cfg.MongoSessionDatabase).Collection(cfg.MongoSessionCollection))
		if err := backend.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure session indexes: %w", err)
		}
		b.sessions = backend
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.SessionBackend)
	}

	ok = true
	return b, nil
}

// close は開いた接続を逆順に閉じます。
func (b *backends) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("failed to close backend", zap.Error(err))
		}
	}
	b.closers = nil
}
