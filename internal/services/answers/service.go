package answers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
	"github.com/ternarybob/petitor/internal/services/llm"
)

// contentGenerator is the slice of the LLM provider factory this service uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, request *llm.ContentRequest) (*llm.ContentResponse, error)
}

// Service resolves questionnaire answers. Resolution order is built-in
// heuristics, then the cache, then the LLM; the heuristics go first so a
// fuzzy cache hit can never override a legally sensitive default. Generated
// answers are written back to the cache so the next similar question stays
// off the API.
type Service struct {
	cache     *Cache
	generator contentGenerator
	config    *common.Config
	logger    arbor.ILogger
}

// NewService creates an answer service
func NewService(cache *Cache, generator contentGenerator, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		cache:     cache,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// AnswerQuestion resolves one wizard question
func (s *Service) AnswerQuestion(ctx context.Context, req interfaces.AnswerRequest) (interfaces.AnswerResponse, error) {
	q := req.Question

	// Retried questions carry a validation error; the cached answer already
	// failed once, so skip straight to generation
	if req.ErrorContext == "" {
		if answer, ok := HeuristicAnswer(q, req.JobTitle); ok {
			if err := s.cache.Store(q, answer); err != nil {
				s.logger.Warn().Err(err).Str("label", q.Label).Msg("Failed to cache heuristic answer")
			}
			return interfaces.AnswerResponse{Answer: answer, Source: models.AnswerSourceHeuristic}, nil
		}

		answer, hit, err := s.cache.Lookup(q)
		if err != nil {
			return interfaces.AnswerResponse{}, err
		}
		if hit {
			return interfaces.AnswerResponse{Answer: answer, Source: models.AnswerSourceCache}, nil
		}
	}

	answer, err := s.generateAnswer(ctx, req)
	if err != nil {
		return interfaces.AnswerResponse{}, err
	}

	if err := s.cache.Store(q, answer); err != nil {
		s.logger.Warn().Err(err).Str("label", q.Label).Msg("Failed to cache generated answer")
	}

	return interfaces.AnswerResponse{Answer: answer, Source: models.AnswerSourceLLM}, nil
}

// generateAnswer asks the LLM and snaps the result onto the field's options
func (s *Service) generateAnswer(ctx context.Context, req interfaces.AnswerRequest) (string, error) {
	prompt := buildQuestionPrompt(req)

	resp, err := s.generator.GenerateContent(ctx, &llm.ContentRequest{
		Prompt:    prompt,
		Model:     s.config.Claude.AnswerModel,
		MaxTokens: s.config.Claude.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		return "", fmt.Errorf("model returned an empty answer for %q", req.Question.Label)
	}

	if len(req.Question.Options) > 0 {
		matched, ok := MatchOption(answer, req.Question.Options, s.config.Cache.OptionThreshold)
		if !ok {
			// The model ignored the option constraint; fall back to the
			// first option rather than submitting text the form rejects
			s.logger.Warn().
				Str("label", req.Question.Label).
				Str("answer", answer).
				Msg("Generated answer matched no option, using first option")
			matched = req.Question.Options[0]
		}
		answer = matched
	}

	return answer, nil
}

// buildQuestionPrompt assembles the questionnaire answering prompt
func buildQuestionPrompt(req interfaces.AnswerRequest) string {
	var b strings.Builder

	b.WriteString("You are filling a job application questionnaire on behalf of a candidate.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Answer positively and in the candidate's favor.\n")
	b.WriteString("- For experience questions, claim 3 to 5 years unless the candidate profile says otherwise.\n")
	b.WriteString("- Answer in the same language the question is written in.\n")
	b.WriteString("- Reply with the answer only. No explanation, no punctuation around it.\n")

	if len(req.Question.Options) > 0 {
		b.WriteString("- You MUST reply with the exact text of one of the allowed options.\n")
		b.WriteString("\nAllowed options:\n")
		for _, opt := range req.Question.Options {
			b.WriteString("- ")
			b.WriteString(opt)
			b.WriteString("\n")
		}
	}

	if req.ProfileContext != "" {
		b.WriteString("\nCandidate profile:\n")
		b.WriteString(req.ProfileContext)
		b.WriteString("\n")
	}

	if req.JobTitle != "" {
		b.WriteString("\nJob title: ")
		b.WriteString(req.JobTitle)
		b.WriteString("\n")
	}
	if req.JobDescription != "" {
		b.WriteString("\nJob description:\n")
		b.WriteString(truncate(req.JobDescription, 4000))
		b.WriteString("\n")
	}

	if req.ErrorContext != "" {
		b.WriteString("\nA previous answer was rejected with this validation error, avoid repeating it:\n")
		b.WriteString(req.ErrorContext)
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(req.Question.Label)
	b.WriteString("\nAnswer:")

	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
