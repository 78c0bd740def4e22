package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/petitor/internal/models"
)

// ErrKeyNotFound is returned when a key does not exist in storage
var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair represents a stored key/value setting
type KeyValuePair struct {
	Key         string    `json:"key" badgerhold:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegistryStorage is the durable application registry. A job key present in
// the registry is never applied to again, with one exception: a later
// successful application supersedes a recorded skip.
type RegistryStorage interface {
	// IsKnown reports whether the key was ever applied to or skipped
	IsKnown(key string) (bool, error)

	// StatusOf returns the recorded status for a key, or ErrKeyNotFound
	StatusOf(key string) (models.JobStatus, models.SkipReason, error)

	// MarkApplied records a successful application. Removes any prior
	// skip record for the key. Idempotent.
	MarkApplied(key string) error

	// MarkSkipped records a permanent skip. Never demotes an applied key.
	MarkSkipped(key string, reason models.SkipReason) error

	// Counts returns registry totals
	Counts() (models.RegistryCounts, error)
}

// AnswerStorage persists the questionnaire answer cache
type AnswerStorage interface {
	// List returns all cached answers
	List() ([]models.CacheEntry, error)

	// Save replaces the full answer set
	Save(entries []models.CacheEntry) error
}

// KeyValueStorage provides generic key/value settings storage
type KeyValueStorage interface {
	// Get retrieves a value by key, returns ErrKeyNotFound if missing
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or updates a key/value pair
	Set(ctx context.Context, key string, value string, description string) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// List returns all pairs ordered by most recently updated
	List(ctx context.Context) ([]KeyValuePair, error)
}

// StorageManager provides access to all storage services
type StorageManager interface {
	RegistryStorage() RegistryStorage
	AnswerStorage() AnswerStorage
	KeyValueStorage() KeyValueStorage

	// Close shuts down the underlying database
	Close() error
}
