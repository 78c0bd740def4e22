package badger

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// registryDocKey is the fixed store key the whole registry lives under.
// The registry is small (one entry per job ever touched) and every mutation
// persists the full document, so a crash can lose at most the in-flight write.
const registryDocKey = "application_registry"

// registryDocument is the persisted registry shape
type registryDocument struct {
	Applied   []string                     `json:"applied"`
	Skipped   map[string]models.SkipReason `json:"skipped"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// RegistryStorage implements the durable application registry on Badger
type RegistryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // Serializes read-modify-write cycles
}

// NewRegistryStorage creates a new RegistryStorage instance
func NewRegistryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RegistryStorage {
	return &RegistryStorage{
		db:     db,
		logger: logger,
	}
}

// load reads the registry document, returning an empty document when none
// has been persisted yet
func (s *RegistryStorage) load() (*registryDocument, error) {
	var doc registryDocument
	err := s.db.Store().Get(registryDocKey, &doc)
	if err == badgerhold.ErrNotFound {
		return &registryDocument{Skipped: make(map[string]models.SkipReason)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if doc.Skipped == nil {
		doc.Skipped = make(map[string]models.SkipReason)
	}
	return &doc, nil
}

// save persists the full registry document
func (s *RegistryStorage) save(doc *registryDocument) error {
	doc.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(registryDocKey, doc); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// IsKnown reports whether the key was ever applied to or skipped
func (s *RegistryStorage) IsKnown(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := doc.Skipped[key]; ok {
		return true, nil
	}
	for _, k := range doc.Applied {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}

// StatusOf returns the recorded status for a key
func (s *RegistryStorage) StatusOf(key string) (models.JobStatus, models.SkipReason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", "", err
	}
	for _, k := range doc.Applied {
		if k == key {
			return models.JobStatusApplied, "", nil
		}
	}
	if reason, ok := doc.Skipped[key]; ok {
		return models.JobStatusSkipped, reason, nil
	}
	return "", "", interfaces.ErrKeyNotFound
}

// MarkApplied records a successful application. A prior skip record for the
// same key is removed so the two sets stay mutually exclusive.
func (s *RegistryStorage) MarkApplied(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for _, k := range doc.Applied {
		if k == key {
			return nil // Already recorded
		}
	}

	doc.Applied = append(doc.Applied, key)
	delete(doc.Skipped, key)

	if err := s.save(doc); err != nil {
		return err
	}

	s.logger.Debug().Str("job_key", key).Msg("Registry: marked applied")
	return nil
}

// MarkSkipped records a permanent skip. An applied key is never demoted;
// re-skipping updates the stored reason.
func (s *RegistryStorage) MarkSkipped(key string, reason models.SkipReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	for _, k := range doc.Applied {
		if k == key {
			s.logger.Debug().Str("job_key", key).Msg("Registry: skip ignored for applied job")
			return nil
		}
	}

	doc.Skipped[key] = reason

	if err := s.save(doc); err != nil {
		return err
	}

	s.logger.Debug().Str("job_key", key).Str("reason", string(reason)).Msg("Registry: marked skipped")
	return nil
}

// Counts returns registry totals
func (s *RegistryStorage) Counts() (models.RegistryCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return models.RegistryCounts{}, err
	}
	return models.RegistryCounts{
		Applied: len(doc.Applied),
		Skipped: len(doc.Skipped),
	}, nil
}
