package analysis

// RiskScore enum
type RiskScore string

const (
	RiskHigh   RiskScore = "High"
	RiskMedium RiskScore = "Medium"
	RiskLow    RiskScore = "Low"
)

// InputMode selects which user input is active and which request is built.
type InputMode string

const (
	ModeText  InputMode = "text"
	ModeImage InputMode = "image"
	ModeLink  InputMode = "link"
)

// ParseMode converts a raw mode string, returning false for unknown values.
func ParseMode(s string) (InputMode, bool) {
	switch InputMode(s) {
	case ModeText, ModeImage, ModeLink:
		return InputMode(s), true
	}
	return "", false
}

// GroundingSource is a web citation returned alongside a verdict.
type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Result is the validated verdict promoted into the internal model.
type Result struct {
	RiskScore RiskScore         `json:"risk_score"`
	ScamType  string            `json:"scam_type"`
	RedFlags  []string          `json:"red_flags"`
	Advice    string            `json:"advice"`
	Sources   []GroundingSource `json:"sources,omitempty"`
}

// State of one analysis attempt. At most one of Result/Error is set and
// Loading implies neither is.
type State struct {
	Loading bool    `json:"loading"`
	Result  *Result `json:"result"`
	Error   *string `json:"error"`
}

// Phase is the UI state derived from State.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseResult  Phase = "result"
	PhaseError   Phase = "error"
)

func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Result != nil:
		return PhaseResult
	case s.Error != nil:
		return PhaseError
	default:
		return PhaseIdle
	}
}
