package models

import "time"

// CacheEntry is one remembered questionnaire answer. Tokens are stored
// alongside the label so similarity scoring never re-tokenizes on lookup.
type CacheEntry struct {
	Label     string    `json:"label"`
	Tokens    []string  `json:"tokens"`
	InputType InputType `json:"input_type"`
	Answer    string    `json:"answer"`
	Options   []string  `json:"options,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerSource records where a questionnaire answer came from
type AnswerSource string

const (
	AnswerSourceCache     AnswerSource = "cache"
	AnswerSourceHeuristic AnswerSource = "heuristic"
	AnswerSourceLLM       AnswerSource = "llm"
)

// TailoredContent is the personalization output for one job
type TailoredContent struct {
	CV          string `json:"cv"`
	CoverLetter string `json:"cover_letter"`
}
