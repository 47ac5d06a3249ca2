package models

import "time"

// DispatchResult describes the outcome of a broadcast.
type DispatchResult struct {
	RecordID          string             `json:"record_id,omitempty"`
	Channel           string             `json:"channel"`
	Status            NotificationStatus `json:"status"`
	ProviderMessageID string             `json:"provider_message_id,omitempty"`
	FailureReason     string             `json:"failure_reason,omitempty"`
	Duplicate         bool               `json:"duplicate"`
	SentAt            time.Time          `json:"sent_at"`
}

// WorkflowOutcome names what a capacity-freed event led to.
type WorkflowOutcome string

const (
	WorkflowOutcomeNoSpots        WorkflowOutcome = "no_spots"
	WorkflowOutcomeNoCandidates   WorkflowOutcome = "no_candidates"
	WorkflowOutcomeNotified       WorkflowOutcome = "notified"
	WorkflowOutcomeDispatchFailed WorkflowOutcome = "dispatch_failed"
	WorkflowOutcomeRetryScheduled WorkflowOutcome = "retry_scheduled"
)

// WorkflowResult reports the result of running the waitlist workflow for an occurrence.
type WorkflowResult struct {
	Occurrence     OccurrenceKey   `json:"occurrence"`
	Outcome        WorkflowOutcome `json:"outcome"`
	AvailableSpots int             `json:"available_spots"`
	OfferedSpots   int             `json:"offered_spots"`
	CandidateIDs   []string        `json:"candidate_ids,omitempty"`
	Token          *IssuedToken    `json:"token,omitempty"`
	Dispatch       *DispatchResult `json:"dispatch,omitempty"`
	Error          string          `json:"error,omitempty"`
}
