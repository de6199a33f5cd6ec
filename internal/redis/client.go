package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

// RedisClientInterface defines the Redis operations used by our client
type RedisClientInterface interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Client caches live flight state and share-token lookups. Everything
// here is best-effort: the database stays authoritative and callers
// treat cache errors as warnings.
type Client struct {
	client RedisClientInterface
}

// New creates a new Redis client
func New(addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// NewWithClient creates a new Redis client with a custom RedisClientInterface (useful for testing)
func NewWithClient(client RedisClientInterface) *Client {
	return &Client{client: client}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// StoreActiveFlight caches the live state snapshot for a pilot identity.
func (c *Client) StoreActiveFlight(ctx context.Context, state *types.ActiveFlightState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal active flight: %w", err)
	}
	key := fmt.Sprintf("active:%s", state.PilotIdentity)
	return c.client.Set(ctx, key, data, 24*time.Hour).Err()
}

// GetActiveFlight retrieves the cached live state for a pilot identity.
// Returns (nil, nil) on a cache miss.
func (c *Client) GetActiveFlight(ctx context.Context, pilotIdentity string) (*types.ActiveFlightState, error) {
	key := fmt.Sprintf("active:%s", pilotIdentity)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active flight: %w", err)
	}
	var state types.ActiveFlightState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active flight: %w", err)
	}
	return &state, nil
}

// DeleteActiveFlight drops the cached live state for a pilot identity.
func (c *Client) DeleteActiveFlight(ctx context.Context, pilotIdentity string) error {
	return c.client.Del(ctx, fmt.Sprintf("active:%s", pilotIdentity)).Err()
}

// StoreShareToken caches a share-token to flight-id mapping.
func (c *Client) StoreShareToken(ctx context.Context, token, flightID string) error {
	return c.client.Set(ctx, fmt.Sprintf("share:%s", token), flightID, 24*time.Hour).Err()
}

// GetShareToken resolves a cached share token to a flight id.
// Returns ("", nil) on a cache miss.
func (c *Client) GetShareToken(ctx context.Context, token string) (string, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("share:%s", token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get share token: %w", err)
	}
	return val, nil
}

// DeleteShareToken drops a cached share-token mapping.
func (c *Client) DeleteShareToken(ctx context.Context, token string) error {
	return c.client.Del(ctx, fmt.Sprintf("share:%s", token)).Err()
}
