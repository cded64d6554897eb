package history

import "time"

// RecordID identifier type
type RecordID string

// Record is a completed analysis stored for auditing and retrieval.
type Record struct {
	ID          RecordID  `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	Mode        string    `json:"mode"`
	InputDigest string    `json:"input_digest"`
	RiskScore   string    `json:"risk_score"`
	ScamType    string    `json:"scam_type"`
	Result      string    `json:"result"` // normalized result as JSON
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Failure is the diagnostic cause behind a user-facing analysis failure.
type Failure struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Mode      string    `json:"mode"`
	Phase     string    `json:"phase"` // build | generate | normalize
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Failure phases
const (
	PhaseBuild     = "build"
	PhaseGenerate  = "generate"
	PhaseNormalize = "normalize"
)

// Page is a paginated slice of records.
type Page struct {
	Data     []*Record `json:"data"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}
