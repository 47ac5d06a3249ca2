package models

// ClaimReason is the machine-readable failure vocabulary of the claim endpoint.
type ClaimReason string

const (
	ClaimReasonExpired           ClaimReason = "expired"
	ClaimReasonExhausted         ClaimReason = "exhausted"
	ClaimReasonAlreadyEnrolled   ClaimReason = "already_enrolled"
	ClaimReasonNotFound          ClaimReason = "not_found"
	ClaimReasonInvalidToken      ClaimReason = "invalid_token"
	ClaimReasonUnauthenticated   ClaimReason = "unauthenticated"
	ClaimReasonForbidden         ClaimReason = "forbidden"
	ClaimReasonCapacityViolation ClaimReason = "capacity_violation"
	ClaimReasonRateLimited       ClaimReason = "rate_limited"
	ClaimReasonInternal          ClaimReason = "internal_error"
)

// ClaimResult is the body returned by GET/POST /enroll/:token.
type ClaimResult struct {
	Success       bool        `json:"success"`
	ParticipantID string      `json:"participantId,omitempty"`
	Reason        ClaimReason `json:"reason,omitempty"`
	Message       string      `json:"message,omitempty"`
}
