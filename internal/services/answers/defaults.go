package answers

import (
	"strconv"
	"strings"

	"github.com/ternarybob/petitor/internal/models"
)

// Built-in answers for questions that should never reach the LLM: legally
// sensitive fields and compensation, where a wrong generated answer is worse
// than no answer.

// defaultSalaries are monthly salary expectations keyed by title seniority
const (
	salaryJunior  = 3000
	salaryMid     = 9000
	salarySenior  = 14000
	salaryDefault = 9000
)

// HeuristicAnswer resolves a question from built-in rules. Returns ok=false
// when no rule applies.
func HeuristicAnswer(q models.WizardQuestion, jobTitle string) (string, bool) {
	label := strings.ToLower(q.Label)

	if isDisabilityQuestion(label) {
		return disabilityAnswer(q)
	}

	if isContractTypeQuestion(label, q.Options) {
		return contractTypeAnswer(q)
	}

	if isSalaryQuestion(label) {
		return strconv.Itoa(salaryForTitle(jobTitle)), true
	}

	return "", false
}

func isDisabilityQuestion(label string) bool {
	return strings.Contains(label, "disability") ||
		strings.Contains(label, "deficiência") ||
		strings.Contains(label, "deficiencia") ||
		strings.Contains(label, "pcd")
}

// disabilityAnswer declines: picks the negative option when present,
// otherwise answers free text
func disabilityAnswer(q models.WizardQuestion) (string, bool) {
	for _, opt := range q.Options {
		lower := strings.ToLower(opt)
		if lower == "no" || lower == "não" || lower == "nao" ||
			strings.HasPrefix(lower, "no,") || strings.HasPrefix(lower, "não,") {
			return opt, true
		}
	}
	if len(q.Options) > 0 {
		// No recognizable negative option; let the LLM read the choices
		return "", false
	}
	return "Não", true
}

func isContractTypeQuestion(label string, options []string) bool {
	if strings.Contains(label, "contrat") || strings.Contains(label, "contract") ||
		strings.Contains(label, "regime") {
		return true
	}
	// Some forms only reveal the topic through the options
	for _, opt := range options {
		lower := strings.ToLower(opt)
		if lower == "pj" || lower == "clt" {
			return true
		}
	}
	return false
}

// contractTypeAnswer prefers contractor (PJ) engagements
func contractTypeAnswer(q models.WizardQuestion) (string, bool) {
	for _, opt := range q.Options {
		if strings.Contains(strings.ToLower(opt), "pj") {
			return opt, true
		}
	}
	if len(q.Options) == 0 {
		return "PJ", true
	}
	return "", false
}

func isSalaryQuestion(label string) bool {
	return strings.Contains(label, "salary") ||
		strings.Contains(label, "salári") ||
		strings.Contains(label, "salari") ||
		strings.Contains(label, "pretensão") ||
		strings.Contains(label, "pretensao") ||
		strings.Contains(label, "remuneração") ||
		strings.Contains(label, "remuneracao") ||
		strings.Contains(label, "compensation")
}

// salaryForTitle infers the expectation from the job title's seniority
func salaryForTitle(title string) int {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "junior") || strings.Contains(lower, "júnior") ||
		strings.Contains(lower, " jr"):
		return salaryJunior
	case strings.Contains(lower, "senior") || strings.Contains(lower, "sênior") ||
		strings.Contains(lower, " sr") || strings.Contains(lower, "staff") ||
		strings.Contains(lower, "principal"):
		return salarySenior
	case strings.Contains(lower, "pleno") || strings.Contains(lower, "mid"):
		return salaryMid
	default:
		return salaryDefault
	}
}
