package answers

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
)

// Cache remembers questionnaire answers across jobs and runs. Lookups match
// questions by token-set similarity rather than exact label equality, so
// rewordings of the same question still hit.
type Cache struct {
	storage interfaces.AnswerStorage
	config  *common.CacheConfig
	logger  arbor.ILogger

	mu      sync.Mutex
	entries []models.CacheEntry
	loaded  bool
}

// NewCache creates an answer cache backed by durable storage
func NewCache(storage interfaces.AnswerStorage, config *common.CacheConfig, logger arbor.ILogger) *Cache {
	return &Cache{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// ensureLoaded lazily pulls the persisted answer set. Caller holds c.mu.
func (c *Cache) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	entries, err := c.storage.List()
	if err != nil {
		return fmt.Errorf("failed to load answer cache: %w", err)
	}
	c.entries = entries
	c.loaded = true
	c.logger.Debug().Int("count", len(entries)).Msg("Answer cache loaded")
	return nil
}

// Lookup finds a remembered answer for a question. Only entries of the same
// input type compete: a free-text answer must never satisfy a select field.
// When the question carries options, the cached answer is snapped onto the
// closest option; a cached answer that maps to none of the current options
// counts as a miss.
func (c *Cache) Lookup(question models.WizardQuestion) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return "", false, err
	}

	tokens := Tokenize(question.Label)
	bestScore := 0.0
	bestIdx := -1
	for i, entry := range c.entries {
		if entry.InputType != question.Type {
			continue
		}
		if score := Jaccard(tokens, entry.Tokens); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < c.config.LookupThreshold {
		return "", false, nil
	}

	answer := c.entries[bestIdx].Answer
	if len(question.Options) > 0 {
		matched, ok := MatchOption(answer, question.Options, c.config.OptionThreshold)
		if !ok {
			c.logger.Debug().
				Str("label", question.Label).
				Str("cached", answer).
				Msg("Cache hit discarded: answer fits none of the options")
			return "", false, nil
		}
		answer = matched
	}

	c.logger.Debug().
		Str("label", question.Label).
		Float64("score", bestScore).
		Msg("Answer cache hit")
	return answer, true, nil
}

// Store remembers an answer. A near-duplicate question of the same input
// type (above the merge threshold) is updated in place; anything less
// similar, or the same label under a different type, becomes a new entry.
// The full set is persisted on every mutation.
func (c *Cache) Store(question models.WizardQuestion, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return err
	}

	tokens := Tokenize(question.Label)
	bestScore := 0.0
	bestIdx := -1
	for i, entry := range c.entries {
		if entry.InputType != question.Type {
			continue
		}
		if score := Jaccard(tokens, entry.Tokens); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	now := time.Now()
	if bestIdx >= 0 && bestScore >= c.config.MergeThreshold {
		c.entries[bestIdx].Answer = answer
		c.entries[bestIdx].Options = question.Options
		c.entries[bestIdx].InputType = question.Type
		c.entries[bestIdx].UpdatedAt = now
	} else {
		c.entries = append(c.entries, models.CacheEntry{
			Label:     question.Label,
			Tokens:    tokens,
			InputType: question.Type,
			Answer:    answer,
			Options:   question.Options,
			UpdatedAt: now,
		})
	}

	if err := c.storage.Save(c.entries); err != nil {
		return fmt.Errorf("failed to persist answer cache: %w", err)
	}
	return nil
}

// Size returns the number of cached answers
func (c *Cache) Size() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(c.entries), nil
}
