package dto

// EnqueueRequest captures POST /classes/:classId/occurrences/:date/waitlist payload.
type EnqueueRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	RequestedSpots int    `json:"requested_spots" validate:"omitempty,min=1,max=10"`
}

// EnrollRequest captures a direct enrollment by staff.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	AsSubstitute bool   `json:"as_substitute"`
}

// ResendRequest re-dispatches an existing token. Force skips the duplicate check.
type ResendRequest struct {
	Channel string `json:"channel"`
	Force   bool   `json:"force"`
}

// InvalidateTokenResponse is returned after a token is revoked.
type InvalidateTokenResponse struct {
	Invalidated bool   `json:"invalidated"`
	State       string `json:"state"`
}
