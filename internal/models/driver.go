package models

// JobLink is a raw job card extracted from a search result page
type JobLink struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// JobPosting is the scraped detail view of a job
type JobPosting struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"` // Markdown
}

// ApplyOutcome is the result of triggering the apply control on a posting
type ApplyOutcome string

const (
	ApplyOutcomeClicked  ApplyOutcome = "clicked"  // On-site wizard opened
	ApplyOutcomeExternal ApplyOutcome = "external" // Apply leads off-site
	ApplyOutcomeNotFound ApplyOutcome = "not_found"
)

// InputType classifies a wizard form field
type InputType string

const (
	InputTypeText     InputType = "text"
	InputTypeTextarea InputType = "textarea"
	InputTypeSelect   InputType = "select"
	InputTypeRadio    InputType = "radio"
	InputTypeCheckbox InputType = "checkbox"
	InputTypeNumber   InputType = "number"
	InputTypeFile     InputType = "file"
)

// WizardQuestion is one unanswered field on the current wizard step
type WizardQuestion struct {
	Label    string    `json:"label"`
	Type     InputType `json:"type"`
	Options  []string  `json:"options,omitempty"` // Present for select/radio/checkbox
	Required bool      `json:"required"`
}

// WizardState describes the current step of an application wizard
type WizardState struct {
	Step       int              `json:"step"`
	Questions  []WizardQuestion `json:"questions"`
	CanAdvance bool             `json:"can_advance"` // A continue/submit control is present
	IsReview   bool             `json:"is_review"`   // Final review screen requiring the user
}

// FillAction is what a fill pass did with the current wizard step
type FillAction string

const (
	FillActionFilled     FillAction = "filled"      // Answered fields, step not yet advanced
	FillActionContinued  FillAction = "continued"   // Advanced to the next step
	FillActionSubmitted  FillAction = "submitted"   // Application submitted
	FillActionNeedsInput FillAction = "needs_input" // A field could not be answered
)

// FillResult reports one fill pass over a wizard step
type FillResult struct {
	Action     FillAction `json:"action"`
	Answered   int        `json:"answered"`
	Unanswered []string   `json:"unanswered,omitempty"` // Labels left blank
}

// WizardSignal is an asynchronous notification from a wizard tab
type WizardSignal string

const (
	WizardSignalAdvanced  WizardSignal = "advanced"
	WizardSignalSubmitted WizardSignal = "submitted"
	WizardSignalClosed    WizardSignal = "closed"
)

// CountEstimate is the result-count hint parsed off a search page
type CountEstimate struct {
	Total int  `json:"total"`
	Found bool `json:"found"` // The page actually carried a count
}
