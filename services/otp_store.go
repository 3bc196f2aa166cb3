package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"remindly/usecase"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

// RedisOTPStore keeps one hashed code per email under "otp:<email>" with a TTL.
// A code is single use and locks after MaxAttempts wrong guesses.
type RedisOTPStore struct {
	Client      *redis.Client
	Issuer      string
	TTL         time.Duration
	MaxAttempts int
	now         func() time.Time
}

func NewOTPStore(client *redis.Client, issuer string, ttl time.Duration, maxAttempts int) *RedisOTPStore {
	return &RedisOTPStore{
		Client:      client,
		Issuer:      issuer,
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// Issue replaces any outstanding code for email with a fresh six digit one.
func (s *RedisOTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := s.generate(email)
	if err != nil {
		return "", err
	}
	hash, err := HashCode(code)
	if err != nil {
		return "", err
	}

	key := otpKey(email)
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store one-time code: %v", err)
	}
	return code, nil
}

// consumeScript deletes the code only if it still holds the hash the caller
// verified, so two submissions of the same code cannot both succeed.
var consumeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "hash") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// failAttemptScript counts a wrong guess without resurrecting an expired code.
// It returns -1 when the code is gone and deletes it once the limit is reached.
var failAttemptScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "hash") ~= ARGV[1] then
	return -1
end
local n = redis.call("HINCRBY", KEYS[1], "attempts", 1)
if n >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1])
end
return n
`)

func (s *RedisOTPStore) Check(ctx context.Context, email, code string) error {
	key := otpKey(email)
	fields, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to load one-time code: %v", err)
	}
	hash, ok := fields["hash"]
	if !ok {
		return usecase.ErrCodeNotIssued
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	if attempts >= s.MaxAttempts {
		s.Client.Del(ctx, key)
		return usecase.ErrTooManyAttempts
	}

	if !CompareCode(hash, code) {
		n, err := failAttemptScript.Run(ctx, s.Client, []string{key}, hash, s.MaxAttempts).Int()
		if err != nil {
			return fmt.Errorf("failed to record attempt: %v", err)
		}
		switch {
		case n < 0:
			return usecase.ErrCodeNotIssued
		case n >= s.MaxAttempts:
			return usecase.ErrTooManyAttempts
		}
		return usecase.ErrCodeMismatch
	}

	consumed, err := consumeScript.Run(ctx, s.Client, []string{key}, hash).Int()
	if err != nil {
		return fmt.Errorf("failed to consume one-time code: %v", err)
	}
	if consumed == 0 {
		return usecase.ErrCodeNotIssued
	}
	return nil
}

// generate derives the code from a throwaway TOTP secret so every issue is independent.
func (s *RedisOTPStore) generate(email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %v", err)
	}

	return totp.GenerateCodeCustom(key.Secret(), s.now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
