package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const resetTokenPrefix = "password_reset:"

var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenRepository 密码重置令牌存放在 Redis，只保存令牌的哈希
type ResetTokenRepository struct {
	Redis *redis.Client
}

func NewResetTokenRepository(rdb *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{Redis: rdb}
}

func resetTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return resetTokenPrefix + hex.EncodeToString(sum[:])
}

func (r *ResetTokenRepository) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return r.Redis.Set(ctx, resetTokenKey(token), userID, ttl).Err()
}

// Consume 读取并删除令牌，令牌只能使用一次
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (uint, error) {
	val, err := r.Redis.GetDel(ctx, resetTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrResetTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrResetTokenNotFound
	}
	return uint(id), nil
}
