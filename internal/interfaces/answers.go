package interfaces

import (
	"context"

	"github.com/ternarybob/petitor/internal/models"
)

// AnswerRequest carries everything the answer service needs to answer one
// questionnaire field
type AnswerRequest struct {
	Question       models.WizardQuestion
	JobTitle       string
	JobDescription string
	ProfileContext string // Candidate summary injected into the prompt
	ErrorContext   string // Validation error from a previous attempt, if any
}

// AnswerResponse is a resolved questionnaire answer
type AnswerResponse struct {
	Answer string
	Source models.AnswerSource
}

// AnswerService resolves questionnaire answers and tailors application
// documents
type AnswerService interface {
	// AnswerQuestion resolves one wizard question, consulting the cache,
	// built-in heuristics, and the LLM in that order
	AnswerQuestion(ctx context.Context, req AnswerRequest) (AnswerResponse, error)

	// TailorContent rewrites the base CV and cover letter for a posting
	TailorContent(ctx context.Context, posting models.JobPosting, baseCV, baseCover string) (models.TailoredContent, error)
}

// LLMService generates free-form content from a prompt
type LLMService interface {
	// GenerateContent sends a prompt and returns the model's text
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// GetProviderName returns the provider identifier
	GetProviderName() string

	// Close releases provider resources
	Close() error
}
