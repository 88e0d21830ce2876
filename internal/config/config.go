// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// バックエンド種別
const (
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port      string // HTTPサーバーのポート番号
	GinMode   string // Ginの実行モード (debug, release, test)
	LogLevel  string // zap のログレベル
	StaticDir string // 静的ファイルの配置ディレクトリ

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// セッション設定
	SessionSecret           string // クッキー・レコード署名用の秘密鍵
	SessionEncryptionSecret string // セッションレコード暗号化用の秘密鍵
	SessionBackend          string // redis または mongo
	RedisURL                string // セッション保存用Redis接続URL

	// アカウント保存先
	CredentialBackend      string // mongo または postgres
	MongoURI               string // MongoDB接続URI
	MongoDatabase          string // ユーザーを保存するデータベース名
	MongoSessionDatabase   string // セッションを保存するデータベース名
	PostgresDSN            string // PostgreSQL接続文字列
	MongoUsersCollection   string
	MongoSessionCollection string

	// 認証フロー
	LoginIdentifier          string // email または username
	AutoLoginOnRegister      bool   // 登録直後にログイン状態にするか
	RevealNotFoundDistinctly bool   // 存在しないユーザーを別メッセージで返すか

	// パスワードハッシュ
	PasswordHashAlgorithm string // bcrypt または argon2id
	HashConcurrency       int    // 同時に実行するハッシュ計算の上限
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Port:      v.GetString("PORT"),
		GinMode:   v.GetString("GIN_MODE"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		StaticDir: v.GetString("STATIC_DIR"),

		CORSAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),

		SessionSecret:           v.GetString("SESSION_SECRET"),
		SessionEncryptionSecret: firstNonEmpty(v.GetString("SESSION_ENCRYPTION_SECRET"), v.GetString("MONGODB_SESSION_SECRET")),
		SessionBackend:          strings.ToLower(v.GetString("SESSION_BACKEND")),
		RedisURL:                v.GetString("REDIS_URL"),

		CredentialBackend:      strings.ToLower(v.GetString("CREDENTIAL_BACKEND")),
		MongoURI:               mongoURI(v),
		MongoDatabase:          v.GetString("MONGODB_DATABASE"),
		MongoSessionDatabase:   v.GetString("MONGODB_SESSION_DATABASE"),
		PostgresDSN:            v.GetString("DATABASE_URL"),
		MongoUsersCollection:   v.GetString("MONGODB_USERS_COLLECTION"),
		MongoSessionCollection: v.GetString("MONGODB_SESSION_COLLECTION"),

		LoginIdentifier:          strings.ToLower(v.GetString("LOGIN_IDENTIFIER")),
		AutoLoginOnRegister:      v.GetBool("AUTO_LOGIN_ON_REGISTER"),
		RevealNotFoundDistinctly: v.GetBool("REVEAL_NOT_FOUND_DISTINCTLY"),

		PasswordHashAlgorithm: strings.ToLower(v.GetString("PASSWORD_HASH_ALGORITHM")),
		HashConcurrency:       v.GetInt("HASH_CONCURRENCY"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_BACKEND", BackendRedis)
	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("CREDENTIAL_BACKEND", BackendMongo)
	v.SetDefault("MONGODB_DATABASE", "users")
	v.SetDefault("MONGODB_SESSION_DATABASE", "sessions")
	v.SetDefault("MONGODB_USERS_COLLECTION", "users")
	v.SetDefault("MONGODB_SESSION_COLLECTION", "sessions")
	v.SetDefault("LOGIN_IDENTIFIER", "email")
	v.SetDefault("AUTO_LOGIN_ON_REGISTER", false)
	v.SetDefault("REVEAL_NOT_FOUND_DISTINCTLY", false)
	v.SetDefault("PASSWORD_HASH_ALGORITHM", "bcrypt")
	v.SetDefault("HASH_CONCURRENCY", runtime.NumCPU())
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// mongoURI は MONGODB_URI を優先し、未設定なら HOST/USER/PASSWORD から組み立てます。
func mongoURI(v *viper.Viper) string {
	if uri := v.GetString("MONGODB_URI"); uri != "" {
		return uri
	}
	host := v.GetString("MONGODB_HOST")
	if host == "" {
		return "mongodb://127.0.0.1:27017"
	}
	u := url.URL{Scheme: "mongodb+srv", Host: host, Path: "/"}
	if user := v.GetString("MONGODB_USER"); user != "" {
		u.User = url.UserPassword(user, v.GetString("MONGODB_PASSWORD"))
	}
	return u.String()
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.SessionEncryptionSecret == "" {
		return fmt.Errorf("SESSION_ENCRYPTION_SECRET is required")
	}

	switch c.SessionBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	case BackendMongo:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND: %q", c.SessionBackend)
	}

	switch c.CredentialBackend {
	case BackendMongo:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required when CREDENTIAL_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported CREDENTIAL_BACKEND: %q", c.CredentialBackend)
	}

	if c.LoginIdentifier != "email" && c.LoginIdentifier != "username" {
		return fmt.Errorf("unsupported LOGIN_IDENTIFIER: %q", c.LoginIdentifier)
	}
	if c.PasswordHashAlgorithm != "bcrypt" && c.PasswordHashAlgorithm != "argon2id" {
		return fmt.Errorf("unsupported PASSWORD_HASH_ALGORITHM: %q", c.PasswordHashAlgorithm)
	}
	if c.HashConcurrency <= 0 {
		return fmt.Errorf("HASH_CONCURRENCY must be positive")
	}

	return nil
}

// UsesMongo は MongoDB への接続が必要かどうかを返します。
func (c *Config) UsesMongo() bool {
	return c.CredentialBackend == BackendMongo || c.SessionBackend == BackendMongo
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
