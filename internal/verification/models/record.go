package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	id "jojo/pkg/domain"
	dErrors "jojo/pkg/domain-errors"
)

// Record is the single verification document owned by one instructor.
type Record struct {
	ID            id.VerificationID
	InstructorID  id.UserID
	Email         string
	PhoneNumber   string
	CountryCode   string
	Steps         StepStates
	PersonalInfo  *PersonalInfo
	IDDocument    *IDDocument
	Selfie        *Selfie
	Education     EducationVerification
	Status        Status
	Review        *Review
	SubmittedAt   *time.Time
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	// Version increments on every persisted write; stores compare it on update.
	Version int64
}

// Upload references a file held in object storage.
type Upload struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

type PersonalInfo struct {
	FirstName   string
	LastName    string
	MiddleName  string
	DateOfBirth time.Time
	Nationality string
	Address     Address
	Bio         string
	LinkedInURL string
	Status      ReviewStatus
	SubmittedAt time.Time
}

// IDDocumentType enumerates accepted government identity documents.
type IDDocumentType string

const (
	IDPassport       IDDocumentType = "passport"
	IDNationalID     IDDocumentType = "national_id"
	IDDriversLicense IDDocumentType = "drivers_license"
	IDVotersCard     IDDocumentType = "voters_card"
)

func (t IDDocumentType) IsValid() bool {
	switch t {
	case IDPassport, IDNationalID, IDDriversLicense, IDVotersCard:
		return true
	}
	return false
}

type IDDocument struct {
	Type        IDDocumentType
	Front       Upload
	Back        *Upload
	Status      ReviewStatus
	SubmittedAt time.Time
}

type Selfie struct {
	Image       Upload
	Status      ReviewStatus
	SubmittedAt time.Time
}

// Review captures the latest admin decision on the record.
type Review struct {
	Decision          Status
	Feedback          string
	Reason            string
	AllowResubmission bool
	Message           string
	RequestedSteps    []Step
	ReviewedBy        id.UserID
	ReviewedAt        time.Time
}

// NewRecord creates a pending record with all steps not started.
func NewRecord(recordID id.VerificationID, instructorID id.UserID, email, phoneNumber, countryCode string, now time.Time) (*Record, error) {
	if instructorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "instructor is required")
	}
	if phoneNumber == "" || countryCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone number and country code are required")
	}
	r := &Record{
		ID:            recordID,
		InstructorID:  instructorID,
		Email:         email,
		PhoneNumber:   phoneNumber,
		CountryCode:   countryCode,
		Steps:         NewStepStates(),
		Education:     EducationVerification{OverallStatus: EducationPending},
		Status:        StatusPending,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	return r, nil
}

// E164 returns the phone number in international format.
func (r *Record) E164() string {
	return r.CountryCode + strings.TrimLeft(r.PhoneNumber, "0")
}

// Progress evaluates the record's completed steps.
func (r *Record) Progress() Progress {
	return Evaluate(r.Steps.Completed())
}

// EnsureInstructorMutable rejects instructor-side changes once the record is
// with an admin or decided. A rejection flagged for resubmission stays open.
func (r *Record) EnsureInstructorMutable() error {
	switch r.Status {
	case StatusUnderReview:
		return dErrors.New(dErrors.CodeInvariantViolation, "verification is under review")
	case StatusApproved:
		return dErrors.New(dErrors.CodeInvariantViolation, "verification is already approved")
	case StatusSuspended:
		return dErrors.New(dErrors.CodeInvariantViolation, "verification is suspended")
	case StatusRejected:
		if r.Review == nil || !r.Review.AllowResubmission {
			return dErrors.New(dErrors.CodeInvariantViolation, "verification was rejected without resubmission")
		}
	}
	return nil
}

// SetStep moves a step through the transition table and reopens the record
// for progress when the instructor acts on it.
func (r *Record) SetStep(step Step, to StepState, now time.Time) error {
	if !step.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown step "+string(step))
	}
	if r.Steps == nil {
		r.Steps = NewStepStates()
	}
	from := r.Steps.Get(step)
	if !CanTransition(from, to) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("step %s cannot move from %s to %s", step, from, to))
	}
	r.Steps[step] = to
	r.markInProgress()
	r.touch(now)
	return nil
}

// UpdatePhone replaces the contact phone while it is still unverified.
// Returns false when nothing changed.
func (r *Record) UpdatePhone(phoneNumber, countryCode string, now time.Time) bool {
	if r.Steps.Get(StepPhone).IsComplete() {
		return false
	}
	if r.PhoneNumber == phoneNumber && r.CountryCode == countryCode {
		return false
	}
	r.PhoneNumber = phoneNumber
	r.CountryCode = countryCode
	r.touch(now)
	return true
}

func (r *Record) RecordPersonalInfo(info PersonalInfo, now time.Time) error {
	info.Status = ReviewVerified
	info.SubmittedAt = now
	if err := r.SetStep(StepPersonalInfo, StepVerified, now); err != nil {
		return err
	}
	r.PersonalInfo = &info
	return nil
}

// RecordIDDocument stores the uploaded document and returns the previous one
// so its blobs can be cleaned up.
func (r *Record) RecordIDDocument(doc IDDocument, now time.Time) (*IDDocument, error) {
	doc.Status = ReviewVerified
	doc.SubmittedAt = now
	if err := r.SetStep(StepIDDocument, StepVerified, now); err != nil {
		return nil, err
	}
	previous := r.IDDocument
	r.IDDocument = &doc
	return previous, nil
}

func (r *Record) RecordSelfie(image Upload, now time.Time) (*Selfie, error) {
	if err := r.SetStep(StepSelfie, StepVerified, now); err != nil {
		return nil, err
	}
	previous := r.Selfie
	r.Selfie = &Selfie{Image: image, Status: ReviewVerified, SubmittedAt: now}
	return previous, nil
}

// AddCertificate appends a certificate and re-derives the education sub-document.
func (r *Record) AddCertificate(cert Certificate, now time.Time) {
	cert.Status = ReviewPending
	cert.UploadedAt = now
	r.Education.Certificates = append(r.Education.Certificates, cert)
	r.markInProgress()
	r.DeriveEducation(now)
	r.touch(now)
}

// SubmitForReview moves the record to under_review once every step is verified.
func (r *Record) SubmitForReview(now time.Time) error {
	if err := r.EnsureInstructorMutable(); err != nil {
		return err
	}
	if missing := r.Steps.Incomplete(); len(missing) > 0 {
		return dErrors.New(dErrors.CodeIncompleteSteps, "incomplete steps: "+joinSteps(missing))
	}
	r.markInProgress()
	if err := r.transition(StatusUnderReview, now); err != nil {
		return err
	}
	submitted := now
	r.SubmittedAt = &submitted
	return nil
}

// ReviewCertificate records an admin decision on one certificate.
func (r *Record) ReviewCertificate(certID id.CertificateID, status ReviewStatus, notes string, reviewer id.UserID, now time.Time) (*Certificate, error) {
	if !status.IsReviewDecision() {
		return nil, dErrors.NewField("status", "status must be one of [under_review verified rejected]")
	}
	if r.Status == StatusApproved || r.Status == StatusSuspended {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification is already decided")
	}
	idx := slices.IndexFunc(r.Education.Certificates, func(c Certificate) bool { return c.ID == certID })
	if idx < 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	cert := &r.Education.Certificates[idx]
	cert.Status = status
	cert.Notes = notes
	cert.ReviewedBy = reviewer
	if status == ReviewVerified {
		at := now
		cert.VerifiedAt = &at
	} else {
		cert.VerifiedAt = nil
	}
	r.DeriveEducation(now)
	r.touch(now)
	out := *cert
	return &out, nil
}

// Approve is the terminal positive decision.
func (r *Record) Approve(feedback string, reviewer id.UserID, now time.Time) error {
	if r.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation, "only verifications under review can be approved")
	}
	if missing := r.Steps.Incomplete(); len(missing) > 0 {
		return dErrors.New(dErrors.CodeIncompleteSteps, "incomplete steps: "+joinSteps(missing))
	}
	if err := r.transition(StatusApproved, now); err != nil {
		return err
	}
	r.Review = &Review{Decision: StatusApproved, Feedback: feedback, ReviewedBy: reviewer, ReviewedAt: now}
	return nil
}

// Reject is the terminal negative decision, optionally reopening the record.
func (r *Record) Reject(reason string, allowResubmission bool, reviewer id.UserID, now time.Time) error {
	if r.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation, "only verifications under review can be rejected")
	}
	if err := r.transition(StatusRejected, now); err != nil {
		return err
	}
	r.Review = &Review{
		Decision:          StatusRejected,
		Reason:            reason,
		AllowResubmission: allowResubmission,
		ReviewedBy:        reviewer,
		ReviewedAt:        now,
	}
	return nil
}

// RequestInfo sends the record back to the instructor with the listed steps rejected.
// The education step stays derived from the certificates: it can be requested
// only after certificate review has left it unverified, and it is not rewritten.
func (r *Record) RequestInfo(message string, steps []Step, reviewer id.UserID, now time.Time) error {
	if r.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation, "information can only be requested while under review")
	}
	if len(steps) == 0 {
		return dErrors.NewField("steps", "steps must list at least one step")
	}
	for _, step := range steps {
		if !step.IsValid() {
			return dErrors.NewField("steps", "unknown verification step: "+string(step))
		}
		if step == StepEducationCertificate && r.Steps.Get(step) == StepVerified {
			return dErrors.NewField("steps", "education is verified; reject the certificate before requesting a new one")
		}
	}
	for _, step := range steps {
		if step == StepEducationCertificate {
			continue
		}
		from := r.Steps.Get(step)
		if !CanTransition(from, StepRejected) {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("step %s cannot move from %s to %s", step, from, StepRejected))
		}
		r.Steps[step] = StepRejected
	}
	if err := r.transition(StatusInProgress, now); err != nil {
		return err
	}
	r.SubmittedAt = nil
	r.Review = &Review{
		Decision:       StatusInProgress,
		Message:        message,
		RequestedSteps: slices.Clone(steps),
		ReviewedBy:     reviewer,
		ReviewedAt:     now,
	}
	return nil
}

// Suspend revokes an approval.
func (r *Record) Suspend(reason string, reviewer id.UserID, now time.Time) error {
	if r.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvariantViolation, "only approved verifications can be suspended")
	}
	if err := r.transition(StatusSuspended, now); err != nil {
		return err
	}
	r.Review = &Review{Decision: StatusSuspended, Reason: reason, ReviewedBy: reviewer, ReviewedAt: now}
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = make(StepStates, len(r.Steps))
	for k, v := range r.Steps {
		out.Steps[k] = v
	}
	if r.PersonalInfo != nil {
		pi := *r.PersonalInfo
		out.PersonalInfo = &pi
	}
	if r.IDDocument != nil {
		doc := *r.IDDocument
		if r.IDDocument.Back != nil {
			back := *r.IDDocument.Back
			doc.Back = &back
		}
		out.IDDocument = &doc
	}
	if r.Selfie != nil {
		s := *r.Selfie
		out.Selfie = &s
	}
	out.Education.Certificates = make([]Certificate, len(r.Education.Certificates))
	for i, c := range r.Education.Certificates {
		out.Education.Certificates[i] = c.clone()
	}
	if r.Review != nil {
		rv := *r.Review
		rv.RequestedSteps = slices.Clone(r.Review.RequestedSteps)
		out.Review = &rv
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		out.SubmittedAt = &t
	}
	return &out
}

func (r *Record) markInProgress() {
	switch r.Status {
	case StatusPending:
		r.Status = StatusInProgress
	case StatusRejected:
		if r.Review != nil && r.Review.AllowResubmission {
			r.Status = StatusInProgress
		}
	}
}

func (r *Record) transition(to Status, now time.Time) error {
	if !CanTransitionStatus(r.Status, to) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("verification cannot move from %s to %s", r.Status, to))
	}
	r.Status = to
	r.touch(now)
	return nil
}

func (r *Record) touch(now time.Time) {
	r.LastUpdatedAt = now
}

func joinSteps(steps []Step) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
