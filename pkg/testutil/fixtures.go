package testutil

import (
	"time"

	"github.com/google/uuid"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
)

// TestIDs provides deterministic IDs for tests.
var TestIDs = struct {
	InstructorID1 id.UserID
	InstructorID2 id.UserID
	AdminID       id.UserID
	SessionID1    id.SessionID
}{
	InstructorID1: id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	InstructorID2: id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	AdminID:       id.UserID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	SessionID1:    id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
}

// FixedNow is the reference time used by fixtures.
var FixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// RecordBuilder provides a fluent interface for building verification records.
type RecordBuilder struct {
	record *models.Record
}

// NewRecordBuilder starts from a freshly initialized record for InstructorID1.
func NewRecordBuilder() *RecordBuilder {
	r, err := models.NewRecord(id.NewVerificationID(), TestIDs.InstructorID1, "instructor@example.com", "8012345678", "+234", FixedNow)
	if err != nil {
		panic(err)
	}
	return &RecordBuilder{record: r}
}

func (b *RecordBuilder) WithID(recordID id.VerificationID) *RecordBuilder {
	b.record.ID = recordID
	return b
}

func (b *RecordBuilder) WithInstructor(instructorID id.UserID) *RecordBuilder {
	b.record.InstructorID = instructorID
	return b
}

func (b *RecordBuilder) WithEmail(email string) *RecordBuilder {
	b.record.Email = email
	return b
}

func (b *RecordBuilder) WithStep(step models.Step, state models.StepState) *RecordBuilder {
	b.record.Steps[step] = state
	if b.record.Status == models.StatusPending {
		b.record.Status = models.StatusInProgress
	}
	return b
}

// WithFirstFiveSteps verifies every step except the education certificate.
func (b *RecordBuilder) WithFirstFiveSteps() *RecordBuilder {
	for _, step := range []models.Step{
		models.StepEmail, models.StepPhone, models.StepPersonalInfo, models.StepIDDocument, models.StepSelfie,
	} {
		b.WithStep(step, models.StepVerified)
	}
	return b
}

// WithCertificate appends a certificate and re-derives the education state.
func (b *RecordBuilder) WithCertificate(certType models.CertificateType, year int) *RecordBuilder {
	b.record.AddCertificate(NewCertificate(certType, year), FixedNow)
	return b
}

func (b *RecordBuilder) WithStatus(status models.Status) *RecordBuilder {
	b.record.Status = status
	return b
}

// UnderReview produces a fully completed record awaiting a decision.
func (b *RecordBuilder) UnderReview() *RecordBuilder {
	b.WithFirstFiveSteps().WithCertificate(models.CertBachelor, 2015)
	if err := b.record.SubmitForReview(FixedNow); err != nil {
		panic(err)
	}
	return b
}

func (b *RecordBuilder) Build() *models.Record {
	return b.record
}

// NewCertificate returns certificate metadata with a fake stored document.
func NewCertificate(certType models.CertificateType, year int) models.Certificate {
	certID := id.NewCertificateID()
	return models.Certificate{
		ID:             certID,
		Type:           certType,
		Institution:    "University of Lagos",
		FieldOfStudy:   "Computer Science",
		GraduationYear: year,
		Document: models.Upload{
			Key:         "verifications/test/certificate/" + certID.String() + ".pdf",
			URL:         "https://blob.example.com/" + certID.String() + ".pdf",
			ContentType: "application/pdf",
			Size:        2048,
		},
	}
}
