package domain

import "time"

// ExtractionPath tags which strategy produced the field map.
type ExtractionPath string

const (
	PathCapability ExtractionPath = "llm"
	PathPattern    ExtractionPath = "pattern"
)

// TrailEntry is one ordered line of a pipeline run's audit trail.
type TrailEntry struct {
	Stage    string    `json:"stage"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	At       time.Time `json:"at"`
}

// ProcessRequest carries the inputs of one pipeline run. Exactly one of
// FilePath, Content(+Filename) or RawText must be supplied; supplying none
// aborts the run.
type ProcessRequest struct {
	InvoiceID  string `json:"invoice_id,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	Content    []byte `json:"-"`
	Filename   string `json:"filename,omitempty"`
	RawText    string `json:"raw_text,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
}

// SourceRefOrFilename is the reference recorded on the assembled invoice:
// the stored filename when the run came from an upload, otherwise the path.
func (r ProcessRequest) SourceRefOrFilename() string {
	if r.Filename != "" {
		return r.Filename
	}
	return r.FilePath
}

// ProcessOutcome is the complete result of one pipeline run. Trail is
// populated on success and on abort alike.
type ProcessOutcome struct {
	Invoice        *Invoice         `json:"invoice,omitempty"`
	Cashflow       CashflowAnalysis `json:"cashflow_analysis"`
	ExtractionPath ExtractionPath   `json:"extraction_path"`
	EmailDrafted   bool             `json:"email_drafted"`
	EmailDraftID   string           `json:"email_draft_id,omitempty"`
	DurationMillis float64          `json:"processing_time_ms"`
	Trail          []TrailEntry     `json:"agent_logs"`
}
