package answers

import (
	"context"
	"fmt"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
	"github.com/ternarybob/petitor/internal/interfaces"
	"github.com/ternarybob/petitor/internal/models"
	"github.com/ternarybob/petitor/internal/services/llm"
)

// scriptedGenerator returns canned responses and records prompts
type scriptedGenerator struct {
	responses []string
	prompts   []string
	err       error
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, req *llm.ContentRequest) (*llm.ContentResponse, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	text := g.responses[0]
	g.responses = g.responses[1:]
	return &llm.ContentResponse{Text: text, Provider: llm.ProviderClaude}, nil
}

func newTestService(gen *scriptedGenerator) (*Service, *memoryAnswerStorage) {
	storage := &memoryAnswerStorage{}
	cfg := common.DefaultConfig()
	cache := NewCache(storage, &cfg.Cache, arbor.NewLogger())
	return NewService(cache, gen, cfg, arbor.NewLogger()), storage
}

func TestAnswerQuestionHeuristicBeforeLLM(t *testing.T) {
	gen := &scriptedGenerator{}
	service, _ := newTestService(gen)

	resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{
		Question: models.WizardQuestion{
			Label:   "Do you have a disability?",
			Type:    models.InputTypeRadio,
			Options: []string{"Yes", "No"},
		},
	})
	if err != nil {
		t.Fatalf("AnswerQuestion failed: %v", err)
	}
	if resp.Source != models.AnswerSourceHeuristic || resp.Answer != "No" {
		t.Errorf("expected heuristic No, got source=%s answer=%q", resp.Source, resp.Answer)
	}
	if len(gen.prompts) != 0 {
		t.Error("heuristic answer must not reach the LLM")
	}
}

func TestHeuristicPreemptsCachedAnswer(t *testing.T) {
	gen := &scriptedGenerator{}
	service, _ := newTestService(gen)

	// Seed a loosely similar cached answer; the built-in rule must still win
	seed := models.WizardQuestion{
		Label:   "Do you have a disability certificate?",
		Type:    models.InputTypeRadio,
		Options: []string{"Yes", "No"},
	}
	if err := service.cache.Store(seed, "Yes"); err != nil {
		t.Fatal(err)
	}

	resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{
		Question: models.WizardQuestion{
			Label:   "Do you have a disability?",
			Type:    models.InputTypeRadio,
			Options: []string{"Yes", "No"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.AnswerSourceHeuristic || resp.Answer != "No" {
		t.Errorf("expected heuristic No over cached Yes, got source=%s answer=%q", resp.Source, resp.Answer)
	}
}

func TestAnswerQuestionSalaryBySeniority(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Junior Backend Developer", "3000"},
		{"Senior Go Engineer", "14000"},
		{"Desenvolvedor Pleno", "9000"},
		{"Software Engineer", "9000"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			gen := &scriptedGenerator{}
			service, _ := newTestService(gen)

			resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{
				Question: models.WizardQuestion{
					Label: "What is your expected salary?",
					Type:  models.InputTypeNumber,
				},
				JobTitle: tt.title,
			})
			if err != nil {
				t.Fatal(err)
			}
			if resp.Answer != tt.want {
				t.Errorf("salary for %q = %q, want %q", tt.title, resp.Answer, tt.want)
			}
		})
	}
}

func TestAnswerQuestionLLMWithWriteBack(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"5"}}
	service, _ := newTestService(gen)

	q := models.WizardQuestion{
		Label: "How many years of experience do you have with Kubernetes?",
		Type:  models.InputTypeText,
	}
	resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{Question: q})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.AnswerSourceLLM || resp.Answer != "5" {
		t.Errorf("expected LLM answer 5, got source=%s answer=%q", resp.Source, resp.Answer)
	}

	// Same question again hits the cache without touching the generator
	resp2, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{Question: q})
	if err != nil {
		t.Fatal(err)
	}
	if resp2.Source != models.AnswerSourceCache || resp2.Answer != "5" {
		t.Errorf("expected cache hit 5, got source=%s answer=%q", resp2.Source, resp2.Answer)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("expected exactly one generation, got %d", len(gen.prompts))
	}
}

func TestAnswerQuestionSnapsLLMAnswerToOption(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"yes, definitely"}}
	service, _ := newTestService(gen)

	resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{
		Question: models.WizardQuestion{
			Label:   "Are you willing to relocate for this role?",
			Type:    models.InputTypeRadio,
			Options: []string{"Yes", "No"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Yes" {
		t.Errorf("expected snap to Yes, got %q", resp.Answer)
	}
}

func TestAnswerQuestionErrorContextBypassesCache(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"30000"}}
	service, _ := newTestService(gen)

	q := models.WizardQuestion{
		Label: "What is your hourly rate in USD?",
		Type:  models.InputTypeNumber,
	}
	if err := service.cache.Store(q, "not a number"); err != nil {
		t.Fatal(err)
	}

	resp, err := service.AnswerQuestion(context.Background(), interfaces.AnswerRequest{
		Question:     q,
		ErrorContext: "Please enter a valid number",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.AnswerSourceLLM {
		t.Errorf("retry with error context must regenerate, got source=%s", resp.Source)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generation, got %d", len(gen.prompts))
	}

	// The corrected answer replaces the cached one
	answer, hit, err := service.cache.Lookup(q)
	if err != nil {
		t.Fatal(err)
	}
	if !hit || answer != "30000" {
		t.Errorf("expected corrected answer cached, got hit=%v answer=%q", hit, answer)
	}
}

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"cv": "a"}`, `{"cv": "a"}`},
		{"json fence", "```json\n{\"cv\": \"a\"}\n```", `{"cv": "a"}`},
		{"bare fence", "```\n{\"cv\": \"a\"}\n```", `{"cv": "a"}`},
		{"leading whitespace", "  \n```json\n{}\n```  ", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTailorContent(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"```json\n{\"cv\": \"tailored cv\", \"cover_letter\": \"tailored letter\"}\n```"},
	}
	service, _ := newTestService(gen)

	posting := models.JobPosting{
		Key:         "abc123",
		Title:       "Senior Go Engineer",
		Description: "We need Go and Kubernetes.",
	}
	content, err := service.TailorContent(context.Background(), posting, "base cv", "base letter")
	if err != nil {
		t.Fatalf("TailorContent failed: %v", err)
	}
	if content.CV != "tailored cv" || content.CoverLetter != "tailored letter" {
		t.Errorf("unexpected content: %+v", content)
	}
}

func TestTailorContentRejectsPartialJSON(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"cv": "only cv"}`}}
	service, _ := newTestService(gen)

	_, err := service.TailorContent(context.Background(), models.JobPosting{Title: "X"}, "cv", "letter")
	if err == nil {
		t.Fatal("expected error for missing cover_letter field")
	}
}
