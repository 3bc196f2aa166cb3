package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"remindly/testutils"
	"remindly/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPStoreIssueAndCheck(t *testing.T) {
	client, server := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 3)
	ctx := context.Background()

	code, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
	assert.NotContains(t, server.HGet(otpKey("ann@example.com"), "hash"), code)

	require.NoError(t, store.Check(ctx, "ann@example.com", code))

	// single use
	assert.ErrorIs(t, store.Check(ctx, "ann@example.com", code), usecase.ErrCodeNotIssued)
}

func TestOTPStoreExpiry(t *testing.T) {
	client, server := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 3)
	ctx := context.Background()

	code, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)

	server.FastForward(11 * time.Minute)
	assert.ErrorIs(t, store.Check(ctx, "ann@example.com", code), usecase.ErrCodeNotIssued)
}

func TestOTPStoreAttemptLimit(t *testing.T) {
	client, _ := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 2)
	ctx := context.Background()

	code, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	assert.ErrorIs(t, store.Check(ctx, "ann@example.com", wrong), usecase.ErrCodeMismatch)
	assert.ErrorIs(t, store.Check(ctx, "ann@example.com", wrong), usecase.ErrTooManyAttempts)
	assert.ErrorIs(t, store.Check(ctx, "ann@example.com", code), usecase.ErrCodeNotIssued)
}

func TestOTPStoreReissueReplacesCode(t *testing.T) {
	client, _ := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 3)
	store.now = testutils.FixedTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)
	second, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, store.Check(ctx, "ann@example.com", first), usecase.ErrCodeMismatch)
	}
	require.NoError(t, store.Check(ctx, "ann@example.com", second))
}

func TestCompareCode(t *testing.T) {
	hash, err := HashCode("123456")
	require.NoError(t, err)

	assert.True(t, CompareCode(hash, "123456"))
	assert.False(t, CompareCode(hash, "654321"))
	assert.False(t, CompareCode("garbage", "123456"))
}

func TestOTPStoreConcurrentChecksConsumeOnce(t *testing.T) {
	client, _ := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 5)
	ctx := context.Background()

	code, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Check(ctx, "ann@example.com", code) == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}

func TestOTPStoreConsumeRequiresCurrentCode(t *testing.T) {
	client, server := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 5)
	ctx := context.Background()

	_, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)
	key := otpKey("ann@example.com")
	hash := server.HGet(key, "hash")

	consumed, err := consumeScript.Run(ctx, client, []string{key}, "stale-hash").Int()
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
	assert.True(t, server.Exists(key))

	consumed, err = consumeScript.Run(ctx, client, []string{key}, hash).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, consumed)

	consumed, err = consumeScript.Run(ctx, client, []string{key}, hash).Int()
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
}

func TestOTPStoreFailedAttemptDoesNotRecreateExpiredCode(t *testing.T) {
	client, server := testutils.SetupTestRedis(t)
	store := NewOTPStore(client, "remindly", 10*time.Minute, 5)
	ctx := context.Background()

	_, err := store.Issue(ctx, "ann@example.com")
	require.NoError(t, err)
	key := otpKey("ann@example.com")
	hash := server.HGet(key, "hash")

	n, err := failAttemptScript.Run(ctx, client, []string{key}, hash, 5).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Greater(t, server.TTL(key), time.Duration(0), "expiry survives a wrong guess")

	server.FastForward(11 * time.Minute)
	n, err = failAttemptScript.Run(ctx, client, []string{key}, hash, 5).Int()
	require.NoError(t, err)
	assert.Equal(t, -1, n)
	assert.False(t, server.Exists(key))
}
