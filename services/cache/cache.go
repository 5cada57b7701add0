package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned when a key is not present in the cache.
var ErrMiss = errors.New("cache: miss")

// Service represents a generic cache used to remember hosts that asked us
// to back off. A nil Service disables blocking entirely.
type Service interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
