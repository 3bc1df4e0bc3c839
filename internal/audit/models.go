package audit

import "time"

// Event records one state change on a verification record. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID             string    `json:"id"`
	VerificationID string    `json:"verificationId"`
	InstructorID   string    `json:"instructorId"`
	ActorID        string    `json:"actorId"`
	ActorRole      string    `json:"actorRole"`
	Action         Action    `json:"action"`
	Step           string    `json:"step,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	RequestID      string    `json:"requestId,omitempty"`
	Device         string    `json:"device,omitempty"`
	ClientIP       string    `json:"clientIp,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type Action string

const (
	ActionInitialized           Action = "initialized"
	ActionCodeSent              Action = "code_sent"
	ActionCodeRejected          Action = "code_rejected"
	ActionStepVerified          Action = "step_verified"
	ActionPersonalInfoSubmitted Action = "personal_info_submitted"
	ActionDocumentUploaded      Action = "document_uploaded"
	ActionCertificateUploaded   Action = "certificate_uploaded"
	ActionSubmittedForReview    Action = "submitted_for_review"
	ActionCertificateReviewed   Action = "certificate_reviewed"
	ActionApproved              Action = "approved"
	ActionRejected              Action = "rejected"
	ActionInfoRequested         Action = "info_requested"
	ActionSuspended             Action = "suspended"
	ActionLimitsReset           Action = "limits_reset"
)
