package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Expired codes must stay readable for a while so verification can tell
// "expired" apart from "never issued". The key itself lives longer than the
// logical OTP TTL.
const retentionTTL = 24 * time.Hour

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * SaveCode сохраняет одноразовый код, заменяя предыдущий для этого email
func (r *RedisRepo) SaveCode(ctx context.Context, code models.OneTimeCode) error {
	const op = "storage.redis.SaveCode"

	key := codeKey(code.Email)

	data := map[string]interface{}{
		"code":       code.Code,
		"created_at": code.CreatedAt.Unix(),
		"expires_at": code.ExpiresAt.Unix(),
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, retentionTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Code(ctx context.Context, email string) (models.OneTimeCode, error) {
	const op = "storage.redis.Code"

	data, err := r.client.HGetAll(ctx, codeKey(email)).Result()
	if err != nil {
		return models.OneTimeCode{}, fmt.Errorf("%s: %w", op, err)
	}

	// HGETALL returns an empty map for a missing key
	if len(data) == 0 {
		return models.OneTimeCode{}, storage.ErrOTPNotFound
	}

	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return models.OneTimeCode{}, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return models.OneTimeCode{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.OneTimeCode{
		Email:     email,
		Code:      data["code"],
		CreatedAt: time.Unix(createdAt, 0),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}

func (r *RedisRepo) DeleteCode(ctx context.Context, email string) error {
	const op = "storage.redis.DeleteCode"

	if err := r.client.Del(ctx, codeKey(email)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func codeKey(email string) string {
	return fmt.Sprintf("otp:code:%s", email)
}
