package models

import (
	"time"
)

type CertificateResponse struct {
	ID                      string     `json:"id"`
	CertificateType         string     `json:"certificateType"`
	Institution             string     `json:"institution"`
	FieldOfStudy            string     `json:"fieldOfStudy"`
	GraduationYear          int        `json:"graduationYear"`
	GPA                     *float64   `json:"gpa,omitempty"`
	DocumentURL             string     `json:"documentUrl"`
	VerificationStatus      string     `json:"verificationStatus"`
	VerifierNotes           string     `json:"verifierNotes,omitempty"`
	MeetsMinimumRequirement bool       `json:"meetsMinimumRequirement"`
	UploadedAt              time.Time  `json:"uploadedAt"`
	VerifiedAt              *time.Time `json:"verifiedAt,omitempty"`
}

type EducationResponse struct {
	Certificates          []CertificateResponse `json:"certificates"`
	MinimumRequirementMet bool                  `json:"minimumRequirementMet"`
	OverallStatus         string                `json:"overallStatus"`
}

type ReviewResponse struct {
	Decision          string    `json:"decision"`
	Feedback          string    `json:"feedback,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	AllowResubmission bool      `json:"allowResubmission"`
	Message           string    `json:"message,omitempty"`
	RequestedSteps    []string  `json:"requestedSteps,omitempty"`
	ReviewedAt        time.Time `json:"reviewedAt"`
}

// StatusResponse is the instructor-facing progress view.
type StatusResponse struct {
	VerificationID        string            `json:"verificationId"`
	ProgressPercentage    int               `json:"progressPercentage"`
	CompletedCount        int               `json:"completedCount"`
	TotalSteps            int               `json:"totalSteps"`
	VerificationStatus    string            `json:"verificationStatus"`
	CompletedSteps        map[string]bool   `json:"completedSteps"`
	Steps                 map[string]string `json:"steps"`
	EducationVerification EducationResponse `json:"educationVerification"`
	Review                *ReviewResponse   `json:"review,omitempty"`
	SubmittedAt           *time.Time        `json:"submittedAt,omitempty"`
	LastUpdatedAt         time.Time         `json:"lastUpdatedAt"`
}

type InitializeResponse struct {
	Message            string         `json:"message"`
	AlreadyInitialized bool           `json:"alreadyInitialized"`
	Verification       StatusResponse `json:"verification"`
}

type SendCodeResponse struct {
	Message          string `json:"message"`
	Destination      string `json:"destination"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type StepResponse struct {
	Message      string         `json:"message"`
	Verification StatusResponse `json:"verification"`
}

type AddressResponse struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
}

type PersonalInfoResponse struct {
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	MiddleName         string          `json:"middleName,omitempty"`
	DateOfBirth        string          `json:"dateOfBirth"`
	Nationality        string          `json:"nationality"`
	Address            AddressResponse `json:"address"`
	Bio                string          `json:"bio,omitempty"`
	LinkedInURL        string          `json:"linkedinUrl,omitempty"`
	VerificationStatus string          `json:"verificationStatus"`
	SubmittedAt        time.Time       `json:"submittedAt"`
}

type IDDocumentResponse struct {
	DocumentType       string    `json:"documentType"`
	FrontImageURL      string    `json:"frontImageUrl"`
	BackImageURL       string    `json:"backImageUrl,omitempty"`
	VerificationStatus string    `json:"verificationStatus"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

type SelfieResponse struct {
	ImageURL           string    `json:"imageUrl"`
	VerificationStatus string    `json:"verificationStatus"`
	SubmittedAt        time.Time `json:"submittedAt"`
}

// DetailResponse is the admin view of a full record.
type DetailResponse struct {
	StatusResponse
	InstructorID string                `json:"instructorId"`
	Email        string                `json:"email"`
	PhoneNumber  string                `json:"phoneNumber"`
	CountryCode  string                `json:"countryCode"`
	PersonalInfo *PersonalInfoResponse `json:"personalInfo,omitempty"`
	IDDocument   *IDDocumentResponse   `json:"idDocument,omitempty"`
	Selfie       *SelfieResponse       `json:"selfie,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// SummaryResponse is one row of the admin listing.
type SummaryResponse struct {
	ID                         string     `json:"id"`
	InstructorID               string     `json:"instructorId"`
	Email                      string     `json:"email"`
	FullName                   string     `json:"fullName,omitempty"`
	VerificationStatus         string     `json:"verificationStatus"`
	ProgressPercentage         int        `json:"progressPercentage"`
	EducationStatus            string     `json:"educationStatus"`
	EducationCertificatesCount int        `json:"educationCertificatesCount"`
	SubmittedAt                *time.Time `json:"submittedAt,omitempty"`
	LastUpdatedAt              time.Time  `json:"lastUpdatedAt"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type ListResponse struct {
	Verifications []SummaryResponse `json:"verifications"`
	Pagination    Pagination        `json:"pagination"`
}

type DecisionResponse struct {
	Message      string         `json:"message"`
	Notified     bool           `json:"notified"`
	Verification DetailResponse `json:"verification"`
}

// HistoryEntry is one audit event in the admin timeline.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Step      string    `json:"step,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	ActorID   string    `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Device    string    `json:"device,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	VerificationID string         `json:"verificationId"`
	Events         []HistoryEntry `json:"events"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CertificateReviewResponse struct {
	Message               string              `json:"message"`
	Certificate           CertificateResponse `json:"certificate"`
	EducationVerification EducationResponse   `json:"educationVerification"`
}

// ToStatusResponse renders the instructor view of a record.
func ToStatusResponse(r *Record, now time.Time) StatusResponse {
	progress := r.Progress()
	completed := make(map[string]bool, TotalSteps)
	steps := make(map[string]string, TotalSteps)
	for _, step := range AllSteps {
		state := r.Steps.Get(step)
		completed[string(step)] = state.IsComplete()
		steps[string(step)] = string(state)
	}
	resp := StatusResponse{
		VerificationID:        r.ID.String(),
		ProgressPercentage:    progress.Percentage,
		CompletedCount:        progress.CompletedCount,
		TotalSteps:            progress.TotalSteps,
		VerificationStatus:    string(r.Status),
		CompletedSteps:        completed,
		Steps:                 steps,
		EducationVerification: ToEducationResponse(r.Education, now),
		SubmittedAt:           r.SubmittedAt,
		LastUpdatedAt:         r.LastUpdatedAt,
	}
	if r.Review != nil {
		rv := &ReviewResponse{
			Decision:          string(r.Review.Decision),
			Feedback:          r.Review.Feedback,
			Reason:            r.Review.Reason,
			AllowResubmission: r.Review.AllowResubmission,
			Message:           r.Review.Message,
			ReviewedAt:        r.Review.ReviewedAt,
		}
		for _, s := range r.Review.RequestedSteps {
			rv.RequestedSteps = append(rv.RequestedSteps, string(s))
		}
		resp.Review = rv
	}
	return resp
}

func ToEducationResponse(e EducationVerification, now time.Time) EducationResponse {
	certs := make([]CertificateResponse, 0, len(e.Certificates))
	for _, c := range e.Certificates {
		certs = append(certs, ToCertificateResponse(c, now))
	}
	status := e.OverallStatus
	if status == "" {
		status = EducationPending
	}
	return EducationResponse{
		Certificates:          certs,
		MinimumRequirementMet: e.MinimumRequirementMet,
		OverallStatus:         string(status),
	}
}

func ToCertificateResponse(c Certificate, now time.Time) CertificateResponse {
	return CertificateResponse{
		ID:                      c.ID.String(),
		CertificateType:         string(c.Type),
		Institution:             c.Institution,
		FieldOfStudy:            c.FieldOfStudy,
		GraduationYear:          c.GraduationYear,
		GPA:                     c.GPA,
		DocumentURL:             c.Document.URL,
		VerificationStatus:      string(c.Status),
		VerifierNotes:           c.Notes,
		MeetsMinimumRequirement: c.MeetsMinimumRequirement(now),
		UploadedAt:              c.UploadedAt,
		VerifiedAt:              c.VerifiedAt,
	}
}

// ToDetailResponse renders the admin view of a record.
func ToDetailResponse(r *Record, now time.Time) DetailResponse {
	resp := DetailResponse{
		StatusResponse: ToStatusResponse(r, now),
		InstructorID:   r.InstructorID.String(),
		Email:          r.Email,
		PhoneNumber:    r.PhoneNumber,
		CountryCode:    r.CountryCode,
		CreatedAt:      r.CreatedAt,
	}
	if pi := r.PersonalInfo; pi != nil {
		resp.PersonalInfo = &PersonalInfoResponse{
			FirstName:   pi.FirstName,
			LastName:    pi.LastName,
			MiddleName:  pi.MiddleName,
			DateOfBirth: pi.DateOfBirth.Format(time.DateOnly),
			Nationality: pi.Nationality,
			Address: AddressResponse{
				Street:     pi.Address.Street,
				City:       pi.Address.City,
				State:      pi.Address.State,
				Country:    pi.Address.Country,
				PostalCode: pi.Address.PostalCode,
			},
			Bio:                pi.Bio,
			LinkedInURL:        pi.LinkedInURL,
			VerificationStatus: string(pi.Status),
			SubmittedAt:        pi.SubmittedAt,
		}
	}
	if doc := r.IDDocument; doc != nil {
		resp.IDDocument = &IDDocumentResponse{
			DocumentType:       string(doc.Type),
			FrontImageURL:      doc.Front.URL,
			VerificationStatus: string(doc.Status),
			SubmittedAt:        doc.SubmittedAt,
		}
		if doc.Back != nil {
			resp.IDDocument.BackImageURL = doc.Back.URL
		}
	}
	if s := r.Selfie; s != nil {
		resp.Selfie = &SelfieResponse{
			ImageURL:           s.Image.URL,
			VerificationStatus: string(s.Status),
			SubmittedAt:        s.SubmittedAt,
		}
	}
	return resp
}

func ToSummaryResponse(r *Record) SummaryResponse {
	resp := SummaryResponse{
		ID:                         r.ID.String(),
		InstructorID:               r.InstructorID.String(),
		Email:                      r.Email,
		VerificationStatus:         string(r.Status),
		ProgressPercentage:         r.Progress().Percentage,
		EducationStatus:            string(r.Education.OverallStatus),
		EducationCertificatesCount: len(r.Education.Certificates),
		SubmittedAt:                r.SubmittedAt,
		LastUpdatedAt:              r.LastUpdatedAt,
	}
	if r.PersonalInfo != nil {
		resp.FullName = r.PersonalInfo.FirstName + " " + r.PersonalInfo.LastName
	}
	return resp
}

// NewPagination derives page counts for a listing.
func NewPagination(f ListFilter, total int64) Pagination {
	pages := int64(0)
	if f.Limit > 0 {
		pages = (total + int64(f.Limit) - 1) / int64(f.Limit)
	}
	return Pagination{Page: f.Page, Limit: f.Limit, Total: total, TotalPages: pages}
}
