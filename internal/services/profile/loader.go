package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// Profile is the candidate profile loaded from YAML. It feeds both the
// questionnaire prompts and the personalization pipeline.
type Profile struct {
	Name     string   `yaml:"name"`
	Email    string   `yaml:"email"`
	Phone    string   `yaml:"phone,omitempty"`
	Location string   `yaml:"location,omitempty"`
	LinkedIn string   `yaml:"linkedin,omitempty"`
	GitHub   string   `yaml:"github,omitempty"`
	Summary  string   `yaml:"summary,omitempty"`
	Skills   []string `yaml:"skills,omitempty"`

	// Answers are fixed label -> answer overrides that bypass both cache
	// and LLM, for fields the candidate wants verbatim control over
	Answers map[string]string `yaml:"answers,omitempty"`
}

// Load reads and validates a candidate profile file
func Load(path string, logger arbor.ILogger) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}

	logger.Info().
		Str("name", p.Name).
		Int("skills", len(p.Skills)).
		Int("fixed_answers", len(p.Answers)).
		Msg("Candidate profile loaded")

	return &p, nil
}

// Validate checks required profile fields
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// PromptContext renders the profile as a compact block for LLM prompts
func (p *Profile) PromptContext() string {
	var b strings.Builder
	b.WriteString("Name: ")
	b.WriteString(p.Name)
	if p.Location != "" {
		b.WriteString("\nLocation: ")
		b.WriteString(p.Location)
	}
	if p.Summary != "" {
		b.WriteString("\nSummary: ")
		b.WriteString(p.Summary)
	}
	if len(p.Skills) > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(p.Skills, ", "))
	}
	return b.String()
}

// FixedAnswer returns a verbatim answer override for a question label
func (p *Profile) FixedAnswer(label string) (string, bool) {
	if len(p.Answers) == 0 {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(label))
	for key, value := range p.Answers {
		if strings.ToLower(strings.TrimSpace(key)) == normalized {
			return value, true
		}
	}
	return "", false
}
