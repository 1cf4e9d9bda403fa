package models

// Severity classifies how serious an answer-key issue is.
type Severity string

const (
	SeverityHigh   Severity = "H"
	SeverityMedium Severity = "M"
	SeverityLow    Severity = "L"
)

// Weight returns the scoring weight for this severity. An unset severity
// counts as medium; unrecognized values weigh 1.
func (s Severity) Weight() int {
	if s == "" {
		s = SeverityMedium
	}
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 1
	}
}

// Label returns the long form used in rendered reports.
func (s Severity) Label() string {
	switch s {
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MED"
	case SeverityLow:
		return "LOW"
	default:
		return ""
	}
}

// Issue is one findable concern in an answer key. The rubric phrases the
// yes/no question a judge answers when deciding detection.
type Issue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Rubric      string   `json:"rubric,omitempty"`
	Description string   `json:"description,omitempty"`
}

// AnswerKey is the ground truth for one test document.
type AnswerKey struct {
	Issues                 []Issue  `json:"issues"`
	FalsePositiveTraps     []string `json:"false_positive_traps,omitempty"`
	BusinessContext        string   `json:"business_context,omitempty"`
	ExpectedRecommendation string   `json:"expected_recommendation,omitempty"`
}

// IssueByID returns the issue with the given id, or nil.
func (k *AnswerKey) IssueByID(id string) *Issue {
	for i := range k.Issues {
		if k.Issues[i].ID == id {
			return &k.Issues[i]
		}
	}
	return nil
}
