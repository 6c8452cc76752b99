package otp

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Mamog1381/fortune/internal/common"
)

// fakeCache is an in-memory Cache with a manually advanced clock so TTL
// expiry can be tested without sleeping.
type fakeCache struct {
	now     time.Time
	values  map[string]string
	expires map[string]time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		now:     time.Now(),
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeCache) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fakeCache) expired(key string) bool {
	exp, ok := f.expires[key]
	return ok && !f.now.Before(exp)
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	if f.expired(key) {
		delete(f.values, key)
		delete(f.expires, key)
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	f.expires[key] = f.now.Add(ttl)
	return nil
}

func (f *fakeCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.expired(key) {
		delete(f.values, key)
		delete(f.expires, key)
	}
	n := int64(0)
	if v, ok := f.values[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	} else {
		f.expires[key] = f.now.Add(ttl)
	}
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.values, key)
	delete(f.expires, key)
	return nil
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := f.Get(ctx, key)
	return ok, err
}

func testSettings() Settings {
	return Settings{
		Length:        6,
		Expiry:        5 * time.Minute,
		MaxAttempts:   5,
		BlockDuration: time.Hour,
		SendCooldown:  time.Minute,
	}
}

func TestGenerateAndStore_CodeShapeAndCooldown(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()

	code, err := g.GenerateAndStore(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in code %q", code)
		}
	}

	canSend, err := g.CanSend(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("can send: %v", err)
	}
	if canSend {
		t.Fatalf("expected cooldown to be armed right after send")
	}

	cache.advance(61 * time.Second)

	canSend, err = g.CanSend(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("can send: %v", err)
	}
	if !canSend {
		t.Fatalf("expected cooldown to expire after 60s")
	}
}

func TestVerify_WrongCodeCountsDownThenBlocks(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()
	phone := "+15551234567"

	if _, err := g.GenerateAndStore(ctx, phone); err != nil {
		t.Fatalf("generate: %v", err)
	}

	// first 4 wrong attempts report remaining_attempts = 5 - n
	for n := 1; n <= 4; n++ {
		err := g.Verify(ctx, phone, "000000")
		var ice *common.InvalidCodeError
		if !errors.As(err, &ice) {
			t.Fatalf("attempt %d: expected InvalidCodeError, got %v", n, err)
		}
		if ice.Remaining != 5-n {
			t.Fatalf("attempt %d: remaining = %d, want %d", n, ice.Remaining, 5-n)
		}
	}

	// 5th wrong attempt blocks
	if err := g.Verify(ctx, phone, "000000"); !errors.Is(err, common.ErrThrottled) {
		t.Fatalf("expected throttled on 5th attempt, got %v", err)
	}

	// blocked phone rejects everything, even with the budget already spent
	if err := g.CheckAndEnforce(ctx, phone); !errors.Is(err, common.ErrThrottled) {
		t.Fatalf("expected CheckAndEnforce to throttle, got %v", err)
	}

	// block TTL elapses, the phone forgets
	cache.advance(time.Hour + time.Second)
	if err := g.CheckAndEnforce(ctx, phone); err != nil {
		t.Fatalf("expected unblocked after TTL, got %v", err)
	}
}

func TestCheckAndEnforce_BlocksWhenBudgetExhausted(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()
	phone := "+15550000001"

	// simulate 5 failed attempts without the terminal Verify call
	for i := 0; i < 5; i++ {
		if _, err := cache.Incr(ctx, attemptKey(phone), time.Hour); err != nil {
			t.Fatalf("incr: %v", err)
		}
	}

	if err := g.CheckAndEnforce(ctx, phone); !errors.Is(err, common.ErrThrottled) {
		t.Fatalf("expected throttled, got %v", err)
	}

	// the check must have set the block flag as a side effect
	blocked, err := cache.Exists(ctx, blockKey(phone))
	if err != nil || !blocked {
		t.Fatalf("expected block flag to be set, blocked=%v err=%v", blocked, err)
	}
}

func TestVerify_SuccessResetsAndDeletes(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()
	phone := "+15550000002"

	code, err := g.GenerateAndStore(ctx, phone)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// burn two attempts first
	for i := 0; i < 2; i++ {
		_ = g.Verify(ctx, phone, "999999")
	}

	if err := g.Verify(ctx, phone, code); err != nil {
		t.Fatalf("expected success with correct code, got %v", err)
	}

	// attempts were reset
	if _, ok, _ := cache.Get(ctx, attemptKey(phone)); ok {
		t.Fatalf("expected attempt counter to be deleted")
	}

	// code was deleted: verifying again is not-found, not wrong-code
	if err := g.Verify(ctx, phone, code); !errors.Is(err, common.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound on replay, got %v", err)
	}
}

func TestVerify_ExpiredCodeIsNotFound(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()
	phone := "+15550000003"

	code, err := g.GenerateAndStore(ctx, phone)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cache.advance(5*time.Minute + time.Second)

	if err := g.Verify(ctx, phone, code); !errors.Is(err, common.ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound after expiry, got %v", err)
	}
}

func TestGenerateAndStore_ResendOverwrites(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(cache, testSettings())
	ctx := context.Background()
	phone := "+15550000004"

	first, err := g.GenerateAndStore(ctx, phone)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cache.advance(2 * time.Minute)

	second, err := g.GenerateAndStore(ctx, phone)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}

	// only the latest code verifies; at most one active code per phone
	if first != second {
		if err := g.Verify(ctx, phone, first); err == nil {
			t.Fatalf("expected stale code to be rejected")
		}
	}
	if err := g.Verify(ctx, phone, second); err != nil {
		t.Fatalf("expected fresh code to verify, got %v", err)
	}
}
