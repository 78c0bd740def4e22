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

const answerDocKey = "answer_cache"

// answerDocument is the persisted answer cache shape
type answerDocument struct {
	Entries   []models.CacheEntry `json:"entries"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// AnswerStorage persists the questionnaire answer cache as a single document
type AnswerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewAnswerStorage creates a new AnswerStorage instance
func NewAnswerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnswerStorage {
	return &AnswerStorage{
		db:     db,
		logger: logger,
	}
}

// List returns all cached answers
func (s *AnswerStorage) List() ([]models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc answerDocument
	err := s.db.Store().Get(answerDocKey, &doc)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load answer cache: %w", err)
	}
	return doc.Entries, nil
}

// Save replaces the full answer set
func (s *AnswerStorage) Save(entries []models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := answerDocument{
		Entries:   entries,
		UpdatedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(answerDocKey, &doc); err != nil {
		return fmt.Errorf("failed to save answer cache: %w", err)
	}

	s.logger.Debug().Int("count", len(entries)).Msg("Answer cache persisted")
	return nil
}
