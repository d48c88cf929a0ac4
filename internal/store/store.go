// Package store provides a pluggable key-value store with pub/sub used for
// distributed sync locks and progress change notification.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Message is a single pub/sub message.
type Message struct {
	Channel string
	Payload []byte
}

// Subscription represents an active subscription to a channel.
type Subscription interface {
	// Channel returns the stream of messages for this subscription.
	Channel() <-chan *Message
	// Close terminates the subscription and releases its resources.
	Close() error
}

// Store is the abstraction over the memory and Redis backends.
type Store interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Del(keys ...string) error
	Exists(key string) (bool, error)
	// SetNX sets a key only if it does not already exist. It is the
	// primitive behind the per-(shop, domain) sync lock.
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)

	// Hash operations back the live sync progress snapshot.
	HSet(key string, values map[string]any) error
	HGetAll(key string) (map[string]string, error)
	HIncrBy(key, field string, incr int64) (int64, error)

	// Pub/Sub notifies viewers of SyncStatus changes without polling.
	Publish(channel string, message []byte) error
	Subscribe(channel string) (Subscription, error)

	Clear() error
	Close() error
}
