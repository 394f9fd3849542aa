package theme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/CoNote/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrUnknownTheme = errors.New("unknown theme")

// KV is the part of the redis client the store needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type RedisStore struct {
	kv  KV
	ttl time.Duration
}

// NewRedisStore keeps each preference for ttl after its last save. Zero ttl
// keeps it forever.
func NewRedisStore(kv KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

// Connect opens a redis client and checks that the server answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info().Str("module", "theme.redis").Str("addr", addr).Msg("connected")
	return client, nil
}

func key(client string) string { return "theme:" + client }

func (s *RedisStore) Load(ctx context.Context, client string) (domain.Theme, error) {
	v, err := s.kv.Get(ctx, key(client)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ThemeSystem, nil
	}
	if err != nil {
		return "", fmt.Errorf("load theme: %w", err)
	}
	t, ok := domain.ParseTheme(v)
	if !ok {
		log.Warn().Str("module", "theme.redis").Str("client", client).Str("value", v).Msg("ignoring stored theme")
		return domain.ThemeSystem, nil
	}
	return t, nil
}

func (s *RedisStore) Save(ctx context.Context, client string, t domain.Theme) error {
	if _, ok := domain.ParseTheme(string(t)); !ok {
		return &domain.ValidationError{Field: "theme", Err: ErrUnknownTheme}
	}
	if err := s.kv.Set(ctx, key(client), string(t), s.ttl).Err(); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
