package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Severity grades how strongly a conversation contradicts a decision.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Validate checks if the severity is valid.
func (s Severity) Validate() error {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return nil
	default:
		return goerr.New("invalid severity", goerr.V("severity", string(s)))
	}
}

// AlignmentResult is the verdict for a single alignment check. It is produced
// fresh per invocation and never stored.
//
// Similarity always reflects the best retrieval candidate (0.0 when the store
// is empty), even when the check short-circuited below the threshold.
type AlignmentResult struct {
	Aligned          bool      `json:"aligned"`
	Issue            *string   `json:"issue"`
	RelevantDecision *string   `json:"relevant_decision"`
	MeetingTitle     *string   `json:"meeting_title"`
	MeetingDate      *Date     `json:"meeting_date"`
	Similarity       float64   `json:"similarity"`
	Severity         *Severity `json:"severity"`
}

// Aligned returns a result for a conversation with no contradiction.
func AlignedResult(similarity float64) *AlignmentResult {
	return &AlignmentResult{
		Aligned:    true,
		Similarity: similarity,
	}
}

// Validate enforces the field coupling: a misaligned result must carry issue,
// decision, meeting title and severity; an aligned result must carry none of
// them. Similarity must be a valid cosine similarity.
func (r *AlignmentResult) Validate() error {
	if r.Similarity < -1 || r.Similarity > 1 {
		return goerr.New("similarity out of cosine range", goerr.V("similarity", r.Similarity))
	}

	if r.Aligned {
		if r.Issue != nil || r.RelevantDecision != nil || r.MeetingTitle != nil || r.Severity != nil {
			return goerr.New("aligned result must not carry violation fields")
		}
		return nil
	}

	if r.Issue == nil || r.RelevantDecision == nil || r.MeetingTitle == nil || r.Severity == nil {
		return goerr.New("misaligned result is missing violation fields")
	}
	return r.Severity.Validate()
}
