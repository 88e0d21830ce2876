// Package password はパスワードのハッシュ化と照合を提供します。
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost は bcrypt のコスト（2^12 ラウンド）です。
const DefaultCost = 12

// Algorithm は新規ハッシュに使うアルゴリズムです。
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

const argon2idPrefix = "$argon2id$"

// ErrMalformedDigest は保存されたダイジェストが解釈できない場合のエラーです。
var ErrMalformedDigest = errors.New("malformed password digest")

// Options は Hasher の設定です。
type Options struct {
	Algorithm   Algorithm
	Concurrency int // 同時実行数（0なら CPU 数）
	BcryptCost  int // 0なら DefaultCost
	// Observe はハッシュ計算1回ごとの所要時間を受け取ります（任意）。
	Observe func(op string, d time.Duration)
}

// Hasher はハッシュ計算をセマフォで制限しながら実行します。
type Hasher struct {
	algorithm Algorithm
	cost      int
	sem       *semaphore.Weighted
	observe   func(op string, d time.Duration)
}

// NewHasher は Hasher を作成します。
func NewHasher(opts Options) (*Hasher, error) {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmBcrypt
	}
	if algorithm != AlgorithmBcrypt && algorithm != AlgorithmArgon2id {
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost out of range: %d", cost)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Hasher{
		algorithm: algorithm,
		cost:      cost,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		observe:   opts.Observe,
	}, nil
}

// Cost は bcrypt のコストを返します。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash はランダムなソルトを埋め込んだダイジェストを返します。
func (h *Hasher) Hash(ctx context.Context, secret string) (string, error) {
	var digest string
	err := h.run(ctx, "hash", func() error {
		switch h.algorithm {
		case AlgorithmArgon2id:
			d, err := argon2id.CreateHash(secret, argon2id.DefaultParams)
			if err != nil {
				return err
			}
			digest = d
		default:
			b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
			if err != nil {
				return err
			}
			digest = string(b)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

// Verify はダイジェスト内のソルトで secret を再計算し、定数時間で比較します。
// 不一致は (false, nil)、ダイジェストが壊れている場合は ErrMalformedDigest を返します。
func (h *Hasher) Verify(ctx context.Context, secret, digest string) (bool, error) {
	var ok bool
	err := h.run(ctx, "verify", func() error {
		if strings.HasPrefix(digest, argon2idPrefix) {
			match, err := argon2id.ComparePasswordAndHash(secret, digest)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedDigest, err)
			}
			ok = match
			return nil
		}

		err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret))
		switch {
		case err == nil:
			ok = true
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			ok = false
		default:
			return fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (h *Hasher) run(ctx context.Context, op string, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	start := time.Now()
	err := fn()
	if h.observe != nil {
		h.observe(op, time.Since(start))
	}
	return err
}
