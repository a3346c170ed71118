package storage

import (
	"context"

	r "gopkg.in/redis.v5"
)

// DefaultRedisPrefix is prepended to every key.
const DefaultRedisPrefix = "_TRANSLATOR_"

// Redis stores each document as a string value without expiry.
type Redis struct {
	client *r.Client
	addr   string
	Prefix string
}

// NewRedis connects to the server described by url (redis://[:pass@]host:port/db).
func NewRedis(url, prefix string) (*Redis, error) {
	opts, err := r.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: r.NewClient(opts), addr: opts.Addr, Prefix: prefix}, nil
}

// The v5 client has no context support; ctx is only checked before each call.
func (c *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("read", key, err)
	}
	data, err := c.client.Get(c.Prefix + key).Bytes()
	if err == r.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return data, nil
}

func (c *Redis) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("write", key, err)
	}
	if err := c.client.Set(c.Prefix+key, data, 0).Err(); err != nil {
		return unavailable("write", key, err)
	}
	return nil
}

// EnsureRoot pings the server.
func (c *Redis) EnsureRoot(ctx context.Context) error {
	if err := c.client.Ping().Err(); err != nil {
		return unavailable("ensure root", "", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) String() string {
	return "redis:" + c.addr + "/" + c.Prefix
}
