package certificates

import "errors"

var (
	// a ByIDs selection with no ids is a caller mistake, rejected before
	// any rendering or sending happens
	ErrEmptySelection = errors.New("participant selection is empty")

	ErrNoParticipantName = errors.New("participant name is required")
	ErrNoIssueDate       = errors.New("event has neither start nor end date")
)

// why a participant's dispatch failed
type FailureReason string

const (
	ReasonRenderFailed FailureReason = "render_failed"
	ReasonSendFailed   FailureReason = "send_failed"
)

// Outcome is the per-participant result of one batch run.
type Outcome struct {
	ParticipantID string        `json:"participantId"`
	Email         string        `json:"email"`
	Success       bool          `json:"success"`
	Reason        FailureReason `json:"reason,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// BatchResult aggregates one pipeline invocation. The {sent,total} pair
// is the stable wire shape; Outcomes carries per-recipient diagnosis.
type BatchResult struct {
	Sent     int       `json:"sent"`
	Total    int       `json:"total"`
	Outcomes []Outcome `json:"outcomes,omitempty"`

	// how many participants the run was supposed to cover; differs from
	// Total only when the run stopped early (cancellation, fail-fast)
	Intended int `json:"-"`
}
