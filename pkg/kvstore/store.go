// Package kvstore holds the per-session slot storage backends.
package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when a slot is absent or expired.
var ErrNotFound = errors.New("kvstore: slot not found")

// Key addresses one slot of one session.
type Key struct {
	Session string
	Slot    string
}

// String renders the storage key, sf:slot:<session>:<slot>.
func (k Key) String() string {
	return strings.Join([]string{"sf", "slot", k.Session, k.Slot}, ":")
}

// Store persists raw slot payloads. A ttl <= 0 means no expiry.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...Key) error
	// Touch re-arms the expiry of keys that are still present. Absent keys
	// are skipped; a ttl <= 0 is a no-op.
	Touch(ctx context.Context, ttl time.Duration, keys ...Key) error
	// Take reads and removes a slot in one step. Of several concurrent
	// callers at most one gets the value; the rest get ErrNotFound.
	Take(ctx context.Context, key Key) ([]byte, error)
	Ping(ctx context.Context) error
}

// BatchGetter is implemented by backends that can read every slot of a session
// in one round trip. Absent slots are missing from the result.
type BatchGetter interface {
	GetSlots(ctx context.Context, session string, slots []string) (map[string][]byte, error)
}

// Sweeper is implemented by backends that need an external expiry pass.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
