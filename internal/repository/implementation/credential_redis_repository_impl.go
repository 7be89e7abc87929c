package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"edulycee-client/internal/model"
	"edulycee-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// RedisCredentialRepository stores the identity as one JSON value per profile.
type RedisCredentialRepository struct {
	rdb *redis.Client
	key string
}

var _ contract.CredentialRepository = (*RedisCredentialRepository)(nil)

func NewRedisCredentialRepository(rdb *redis.Client, profile string) *RedisCredentialRepository {
	if profile == "" {
		profile = "default"
	}
	return &RedisCredentialRepository{
		rdb: rdb,
		key: fmt.Sprintf("edulycee:credential:%s", profile),
	}
}

func (r *RedisCredentialRepository) Load(ctx context.Context) (*model.Identity, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	var identity model.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &identity, nil
}

func (r *RedisCredentialRepository) Save(ctx context.Context, identity model.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *RedisCredentialRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
