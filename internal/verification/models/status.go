package models

// Status is the overall record status.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusSuspended   Status = "suspended"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusUnderReview, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

var statusTransitions = map[Status][]Status{
	StatusPending:     {StatusInProgress},
	StatusInProgress:  {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusInProgress},
	StatusRejected:    {StatusInProgress},
	StatusApproved:    {StatusSuspended},
}

// CanTransitionStatus reports whether the record may move between statuses.
// rejected -> in_progress additionally requires the resubmission flag (see Record).
func CanTransitionStatus(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EducationStatus is the derived status of the education sub-document.
type EducationStatus string

const (
	EducationPending     EducationStatus = "pending"
	EducationUnderReview EducationStatus = "under_review"
	EducationVerified    EducationStatus = "verified"
	EducationRejected    EducationStatus = "rejected"
)

func (s EducationStatus) IsValid() bool {
	switch s {
	case EducationPending, EducationUnderReview, EducationVerified, EducationRejected:
		return true
	}
	return false
}

// ReviewStatus is the admin review state of a submitted artifact
// (certificate, ID document, selfie, personal info).
type ReviewStatus string

const (
	ReviewPending     ReviewStatus = "pending"
	ReviewUnderReview ReviewStatus = "under_review"
	ReviewVerified    ReviewStatus = "verified"
	ReviewRejected    ReviewStatus = "rejected"
)

func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewUnderReview, ReviewVerified, ReviewRejected:
		return true
	}
	return false
}

// IsReviewDecision reports whether an admin may set this status explicitly.
func (s ReviewStatus) IsReviewDecision() bool {
	return s == ReviewUnderReview || s == ReviewVerified || s == ReviewRejected
}
