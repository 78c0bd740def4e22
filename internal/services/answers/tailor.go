package answers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
	"github.com/ternarybob/petitor/internal/services/llm"
)

var _ interfaces.AnswerService = (*Service)(nil)

// tailorResponse is the JSON shape the tailoring prompt demands
type tailorResponse struct {
	CV          string `json:"cv"`
	CoverLetter string `json:"cover_letter"`
}

// TailorContent rewrites the base CV and cover letter for one posting.
// Uses the stronger model; the output contract is strict JSON so the result
// can be rendered without human cleanup.
func (s *Service) TailorContent(ctx context.Context, posting models.JobPosting, baseCV, baseCover string) (models.TailoredContent, error) {
	prompt := buildTailorPrompt(posting, baseCV, baseCover)

	resp, err := s.generator.GenerateContent(ctx, &llm.ContentRequest{
		Prompt:    prompt,
		Model:     s.config.Claude.TailorModel,
		MaxTokens: 8192,
	})
	if err != nil {
		return models.TailoredContent{}, fmt.Errorf("failed to tailor content: %w", err)
	}

	parsed, err := parseTailorResponse(resp.Text)
	if err != nil {
		return models.TailoredContent{}, fmt.Errorf("tailoring response for %q: %w", posting.Title, err)
	}

	s.logger.Info().
		Str("job_key", posting.Key).
		Str("title", posting.Title).
		Msg("Tailored application documents")

	return models.TailoredContent{
		CV:          parsed.CV,
		CoverLetter: parsed.CoverLetter,
	}, nil
}

// parseTailorResponse unwraps markdown fences and decodes the JSON payload
func parseTailorResponse(text string) (*tailorResponse, error) {
	cleaned := StripMarkdownFences(text)

	var parsed tailorResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if parsed.CV == "" {
		return nil, fmt.Errorf("missing cv field")
	}
	if parsed.CoverLetter == "" {
		return nil, fmt.Errorf("missing cover_letter field")
	}
	return &parsed, nil
}

// StripMarkdownFences removes a surrounding ```json ... ``` block when the
// model wraps its output despite instructions
func StripMarkdownFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json")
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// buildTailorPrompt assembles the CV and cover letter tailoring prompt
func buildTailorPrompt(posting models.JobPosting, baseCV, baseCover string) string {
	var b strings.Builder

	b.WriteString("Rewrite the candidate's CV and cover letter to target the job below.\n")
	b.WriteString("Keep every factual claim from the originals; reorder and reword to emphasize what the posting asks for. Do not invent experience.\n")
	b.WriteString("Write in the same language as the job description.\n\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"cv": "<tailored cv markdown>", "cover_letter": "<tailored cover letter markdown>"}`)
	b.WriteString("\n\nJob title: ")
	b.WriteString(posting.Title)
	if posting.Company != "" {
		b.WriteString("\nCompany: ")
		b.WriteString(posting.Company)
	}
	b.WriteString("\n\nJob description:\n")
	b.WriteString(truncate(posting.Description, 8000))
	b.WriteString("\n\nBase CV:\n")
	b.WriteString(baseCV)
	b.WriteString("\n\nBase cover letter:\n")
	b.WriteString(baseCover)

	return b.String()
}
