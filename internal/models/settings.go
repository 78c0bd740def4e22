package models

import "fmt"

// RunSettings are per-run overrides accepted by the start operation.
// Zero values fall back to the configured defaults.
type RunSettings struct {
	Queries     []string `json:"queries,omitempty"`
	Locale      string   `json:"locale,omitempty"`
	ApplyLimit  int      `json:"apply_limit,omitempty"`
	Concurrency int      `json:"concurrency,omitempty"`
	MaxPages    int      `json:"max_pages,omitempty"`
	Personalize *bool    `json:"personalize,omitempty"`
}

// Validate rejects settings that cannot produce a sane run
func (s *RunSettings) Validate() error {
	if s.ApplyLimit < 0 {
		return fmt.Errorf("apply_limit must not be negative, got %d", s.ApplyLimit)
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", s.Concurrency)
	}
	if s.MaxPages < 0 {
		return fmt.Errorf("max_pages must not be negative, got %d", s.MaxPages)
	}
	for i, q := range s.Queries {
		if q == "" {
			return fmt.Errorf("queries[%d] is empty", i)
		}
	}
	return nil
}
