package password

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, opts Options) *Hasher {
	t.Helper()
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	h, err := NewHasher(opts)
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	return h
}

func TestDefaultCost(t *testing.T) {
	h, err := NewHasher(Options{})
	if err != nil {
		t.Fatalf("NewHasher returned error: %v", err)
	}
	if h.Cost() != 12 {
		t.Fatalf("Cost() = %d, want 12", h.Cost())
	}
}

func TestHashIsSaltedAndVerifiable(t *testing.T) {
	h := newTestHasher(t, Options{})
	ctx := context.Background()

	first, err := h.Hash(ctx, "pw12345")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := h.Hash(ctx, "pw12345")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected different digests for the same secret")
	}
	if strings.Contains(first, "pw12345") {
		t.Fatal("digest contains the plain secret")
	}

	for _, digest := range []string{first, second} {
		ok, err := h.Verify(ctx, "pw12345", digest)
		if err != nil || !ok {
			t.Fatalf("Verify(correct) = %v, %v", ok, err)
		}
	}
}

func TestVerifyMismatch(t *testing.T) {
	h := newTestHasher(t, Options{})
	ctx := context.Background()

	digest, err := h.Hash(ctx, "secret-two")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	ok, err := h.Verify(ctx, "secret-one", digest)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := newTestHasher(t, Options{})

	_, err := h.Verify(context.Background(), "pw", "not-a-digest")
	if !errors.Is(err, ErrMalformedDigest) {
		t.Fatalf("expected ErrMalformedDigest, got %v", err)
	}
}

func TestVerifyArgon2idDigest(t *testing.T) {
	h := newTestHasher(t, Options{})
	digest, err := argon2id.CreateHash("pw12345", argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("CreateHash returned error: %v", err)
	}

	ok, err := h.Verify(context.Background(), "pw12345", digest)
	if err != nil || !ok {
		t.Fatalf("Verify(argon2id) = %v, %v", ok, err)
	}
	ok, err = h.Verify(context.Background(), "wrong", digest)
	if err != nil || ok {
		t.Fatalf("Verify(argon2id, wrong) = %v, %v", ok, err)
	}
}

func TestHashArgon2id(t *testing.T) {
	h := newTestHasher(t, Options{Algorithm: AlgorithmArgon2id})

	digest, err := h.Hash(context.Background(), "pw12345")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Fatalf("unexpected digest: %s", digest)
	}
}

func TestHashHonorsContextWhenSaturated(t *testing.T) {
	h := newTestHasher(t, Options{Concurrency: 1})
	if err := h.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := h.Hash(ctx, "pw"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestObserveCalled(t *testing.T) {
	var ops []string
	h := newTestHasher(t, Options{Observe: func(op string, _ time.Duration) { ops = append(ops, op) }})

	digest, err := h.Hash(context.Background(), "pw")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if _, err := h.Verify(context.Background(), "pw", digest); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if len(ops) != 2 || ops[0] != "hash" || ops[1] != "verify" {
		t.Fatalf("unexpected observed ops: %v", ops)
	}
}

func TestNewHasherRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewHasher(Options{Algorithm: "md5"}); err == nil {
		t.Fatal("expected error")
	}
}
