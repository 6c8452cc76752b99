package otp

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mamog1381/fortune/internal/common"
)

// Cache is the key-value substrate the guard runs on. Incr must be atomic at
// the store level: concurrent verification attempts for the same phone number
// must never lose an increment.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr increments the counter and applies ttl if the key has none yet.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Settings struct {
	Length        int
	Expiry        time.Duration
	MaxAttempts   int
	BlockDuration time.Duration
	SendCooldown  time.Duration
}

// Guard decides whether an OTP may be sent or verified and keeps the
// attempt/block bookkeeping. It knows nothing about SMS delivery.
type Guard struct {
	cache Cache
	cfg   Settings
}

func NewGuard(cache Cache, cfg Settings) *Guard {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Guard{cache: cache, cfg: cfg}
}

func codeKey(phone string) string    { return "otp:code:" + phone }
func attemptKey(phone string) string { return "otp:attempt:" + phone }
func blockKey(phone string) string   { return "otp:blocked:" + phone }
func sendKey(phone string) string    { return "otp:send_limit:" + phone }

// CheckAndEnforce fails with ErrThrottled if the phone is blocked, or blocks
// it first when the attempt budget is already exhausted. It has no side
// effect on the happy path.
func (g *Guard) CheckAndEnforce(ctx context.Context, phone string) error {
	blocked, err := g.cache.Exists(ctx, blockKey(phone))
	if err != nil {
		return err
	}
	if blocked {
		return common.ErrThrottled
	}

	attempts, err := g.attempts(ctx, phone)
	if err != nil {
		return err
	}
	if attempts >= g.cfg.MaxAttempts {
		if err := g.block(ctx, phone); err != nil {
			return err
		}
		return common.ErrThrottled
	}
	return nil
}

// CanSend reports whether the per-phone send cooldown has elapsed.
// ResetSendLock clears the send cooldown. Support tooling uses it to unstick
// a phone number without waiting out the window.
func (g *Guard) ResetSendLock(ctx context.Context, phone string) error {
	return g.cache.Delete(ctx, sendKey(phone))
}

func (g *Guard) CanSend(ctx context.Context, phone string) (bool, error) {
	exists, err := g.cache.Exists(ctx, sendKey(phone))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// GenerateAndStore produces a fresh random code, overwrites any stored code
// with a new TTL and arms the send cooldown. The plain code is returned for
// the delivery path; only its bcrypt hash goes into the cache.
func (g *Guard) GenerateAndStore(ctx context.Context, phone string) (string, error) {
	code, err := randomDigits(g.cfg.Length)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	if err := g.cache.SetTTL(ctx, codeKey(phone), string(hash), g.cfg.Expiry); err != nil {
		return "", err
	}
	if err := g.cache.SetTTL(ctx, sendKey(phone), "1", g.cfg.SendCooldown); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the submitted code. A mismatch consumes one attempt; reaching
// the limit blocks the phone. A match clears both the code and the counter,
// so a repeated verify with the same code fails with ErrOTPNotFound.
func (g *Guard) Verify(ctx context.Context, phone, submitted string) error {
	hash, found, err := g.cache.Get(ctx, codeKey(phone))
	if err != nil {
		return err
	}
	if !found {
		return common.ErrOTPNotFound
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(submitted)) != nil {
		count, err := g.cache.Incr(ctx, attemptKey(phone), g.cfg.BlockDuration)
		if err != nil {
			return err
		}
		remaining := g.cfg.MaxAttempts - int(count)
		if remaining <= 0 {
			if err := g.block(ctx, phone); err != nil {
				return err
			}
			return common.ErrThrottled
		}
		return &common.InvalidCodeError{Remaining: remaining}
	}

	if err := g.cache.Delete(ctx, attemptKey(phone)); err != nil {
		return err
	}
	return g.cache.Delete(ctx, codeKey(phone))
}

func (g *Guard) attempts(ctx context.Context, phone string) (int, error) {
	v, found, err := g.cache.Get(ctx, attemptKey(phone))
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (g *Guard) block(ctx context.Context, phone string) error {
	return g.cache.SetTTL(ctx, blockKey(phone), "1", g.cfg.BlockDuration)
}

// randomDigits draws each digit from crypto/rand; OTP codes gate account
// access, so math/rand is not acceptable here.
func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
