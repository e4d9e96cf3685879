package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no value is stored under a key.
	ErrNotFound = errors.New("key not found")
)

// Keys of the records the application persists outside the response cache.
const (
	KeySettings  = "weather_settings"
	KeyFavorites = "favorites"
	KeyDarkMode  = "darkMode"
	// KeyLastLocation holds the last requested city or coordinates so a
	// later settings change can re-fetch it.
	KeyLastLocation = "lastLocation"
)

// Store is a durable string key/value store. Writes are atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver     string
	SQLitePath string
	Redis      RedisConfig
}

// Open creates the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return NewSQLiteStore(opts.SQLitePath)
	case DriverRedis:
		r := NewRedisStore(opts.Redis)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
