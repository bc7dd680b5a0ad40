package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache stores raw source responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// ResponseKey generates a consistent cache key for a source URL.
func ResponseKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("response:%x", hash[:8])
}
