package remote

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// RedisMirror stores the document as a Redis string.
type RedisMirror struct {
	client redis.Cmdable
	logger zerolog.Logger
}

// NewRedisMirror creates a Redis mirror.
func NewRedisMirror(client redis.Cmdable, logger zerolog.Logger) *RedisMirror {
	return &RedisMirror{
		client: client,
		logger: logger.With().Str("backend", string(BackendRedis)).Logger(),
	}
}

// Name returns "redis".
func (m *RedisMirror) Name() string { return string(BackendRedis) }

// Get reads the key.
func (m *RedisMirror) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := m.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(m.Name(), key)
	}
	if err != nil {
		return nil, wrapError(m.Name(), "get", key, err)
	}
	m.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Fetched remote document")
	return data, nil
}

// Put writes the key without expiry.
func (m *RedisMirror) Put(ctx context.Context, key string, data []byte) error {
	if err := m.client.Set(ctx, key, data, 0).Err(); err != nil {
		return wrapError(m.Name(), "put", key, err)
	}
	m.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Stored remote document")
	return nil
}

var _ engine.Mirror = (*RedisMirror)(nil)
