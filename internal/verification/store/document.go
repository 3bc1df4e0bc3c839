package store

import (
	"time"

	"github.com/google/uuid"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
)

// recordDocument is the persisted shape of a verification record.
// Progress and education status are denormalized for filtering and sorting.
type recordDocument struct {
	ID            string            `bson:"_id"`
	InstructorID  string            `bson:"instructor_id"`
	Email         string            `bson:"email"`
	PhoneNumber   string            `bson:"phone_number"`
	CountryCode   string            `bson:"country_code"`
	Steps         map[string]string `bson:"steps"`
	PersonalInfo  *personalInfoDoc  `bson:"personal_info,omitempty"`
	IDDocument    *idDocumentDoc    `bson:"id_document,omitempty"`
	Selfie        *selfieDoc        `bson:"selfie,omitempty"`
	Education     educationDoc      `bson:"education_verification"`
	Status        string            `bson:"verification_status"`
	Review        *reviewDoc        `bson:"review,omitempty"`
	Progress      int               `bson:"progress"`
	SubmittedAt   *time.Time        `bson:"submitted_at,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	LastUpdatedAt time.Time         `bson:"last_updated_at"`
	Version       int64             `bson:"version"`
}

type uploadDoc struct {
	Key         string    `bson:"key"`
	URL         string    `bson:"url"`
	ContentType string    `bson:"content_type"`
	Size        int64     `bson:"size"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

type personalInfoDoc struct {
	FirstName   string    `bson:"first_name"`
	LastName    string    `bson:"last_name"`
	MiddleName  string    `bson:"middle_name,omitempty"`
	DateOfBirth time.Time `bson:"date_of_birth"`
	Nationality string    `bson:"nationality"`
	Street      string    `bson:"street"`
	City        string    `bson:"city"`
	State       string    `bson:"state,omitempty"`
	Country     string    `bson:"country"`
	PostalCode  string    `bson:"postal_code,omitempty"`
	Bio         string    `bson:"bio,omitempty"`
	LinkedInURL string    `bson:"linkedin_url,omitempty"`
	Status      string    `bson:"status"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

type idDocumentDoc struct {
	Type        string     `bson:"type"`
	Front       uploadDoc  `bson:"front"`
	Back        *uploadDoc `bson:"back,omitempty"`
	Status      string     `bson:"status"`
	SubmittedAt time.Time  `bson:"submitted_at"`
}

type selfieDoc struct {
	Image       uploadDoc `bson:"image"`
	Status      string    `bson:"status"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

type certificateDoc struct {
	ID             string     `bson:"id"`
	Type           string     `bson:"type"`
	Institution    string     `bson:"institution"`
	FieldOfStudy   string     `bson:"field_of_study"`
	GraduationYear int        `bson:"graduation_year"`
	GPA            *float64   `bson:"gpa,omitempty"`
	Document       uploadDoc  `bson:"document"`
	Status         string     `bson:"verification_status"`
	Notes          string     `bson:"verifier_notes,omitempty"`
	ReviewedBy     string     `bson:"reviewed_by,omitempty"`
	UploadedAt     time.Time  `bson:"uploaded_at"`
	VerifiedAt     *time.Time `bson:"verified_at,omitempty"`
}

type educationDoc struct {
	Certificates          []certificateDoc `bson:"certificates"`
	MinimumRequirementMet bool             `bson:"minimum_requirement_met"`
	OverallStatus         string           `bson:"overall_status"`
}

type reviewDoc struct {
	Decision          string    `bson:"decision"`
	Feedback          string    `bson:"feedback,omitempty"`
	Reason            string    `bson:"reason,omitempty"`
	AllowResubmission bool      `bson:"allow_resubmission"`
	Message           string    `bson:"message,omitempty"`
	RequestedSteps    []string  `bson:"requested_steps,omitempty"`
	ReviewedBy        string    `bson:"reviewed_by"`
	ReviewedAt        time.Time `bson:"reviewed_at"`
}

func toDocument(r *models.Record) recordDocument {
	doc := recordDocument{
		ID:            r.ID.String(),
		InstructorID:  r.InstructorID.String(),
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		CountryCode:   r.CountryCode,
		Steps:         make(map[string]string, models.TotalSteps),
		Status:        string(r.Status),
		Progress:      r.Progress().Percentage,
		SubmittedAt:   r.SubmittedAt,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
		Version:       r.Version,
		Education: educationDoc{
			Certificates:          make([]certificateDoc, 0, len(r.Education.Certificates)),
			MinimumRequirementMet: r.Education.MinimumRequirementMet,
			OverallStatus:         string(r.Education.OverallStatus),
		},
	}
	for _, step := range models.AllSteps {
		doc.Steps[string(step)] = string(r.Steps.Get(step))
	}
	if pi := r.PersonalInfo; pi != nil {
		doc.PersonalInfo = &personalInfoDoc{
			FirstName:   pi.FirstName,
			LastName:    pi.LastName,
			MiddleName:  pi.MiddleName,
			DateOfBirth: pi.DateOfBirth,
			Nationality: pi.Nationality,
			Street:      pi.Address.Street,
			City:        pi.Address.City,
			State:       pi.Address.State,
			Country:     pi.Address.Country,
			PostalCode:  pi.Address.PostalCode,
			Bio:         pi.Bio,
			LinkedInURL: pi.LinkedInURL,
			Status:      string(pi.Status),
			SubmittedAt: pi.SubmittedAt,
		}
	}
	if d := r.IDDocument; d != nil {
		doc.IDDocument = &idDocumentDoc{
			Type:        string(d.Type),
			Front:       toUploadDoc(d.Front),
			Status:      string(d.Status),
			SubmittedAt: d.SubmittedAt,
		}
		if d.Back != nil {
			back := toUploadDoc(*d.Back)
			doc.IDDocument.Back = &back
		}
	}
	if s := r.Selfie; s != nil {
		doc.Selfie = &selfieDoc{Image: toUploadDoc(s.Image), Status: string(s.Status), SubmittedAt: s.SubmittedAt}
	}
	for _, c := range r.Education.Certificates {
		cd := certificateDoc{
			ID:             c.ID.String(),
			Type:           string(c.Type),
			Institution:    c.Institution,
			FieldOfStudy:   c.FieldOfStudy,
			GraduationYear: c.GraduationYear,
			GPA:            c.GPA,
			Document:       toUploadDoc(c.Document),
			Status:         string(c.Status),
			Notes:          c.Notes,
			UploadedAt:     c.UploadedAt,
			VerifiedAt:     c.VerifiedAt,
		}
		if !c.ReviewedBy.IsNil() {
			cd.ReviewedBy = c.ReviewedBy.String()
		}
		doc.Education.Certificates = append(doc.Education.Certificates, cd)
	}
	if rv := r.Review; rv != nil {
		doc.Review = &reviewDoc{
			Decision:          string(rv.Decision),
			Feedback:          rv.Feedback,
			Reason:            rv.Reason,
			AllowResubmission: rv.AllowResubmission,
			Message:           rv.Message,
			ReviewedBy:        rv.ReviewedBy.String(),
			ReviewedAt:        rv.ReviewedAt,
		}
		for _, s := range rv.RequestedSteps {
			doc.Review.RequestedSteps = append(doc.Review.RequestedSteps, string(s))
		}
	}
	return doc
}

func (d recordDocument) toModel() *models.Record {
	r := &models.Record{
		ID:            id.VerificationID(parseStoredUUID(d.ID)),
		InstructorID:  id.UserID(parseStoredUUID(d.InstructorID)),
		Email:         d.Email,
		PhoneNumber:   d.PhoneNumber,
		CountryCode:   d.CountryCode,
		Steps:         make(models.StepStates, len(d.Steps)),
		Status:        models.Status(d.Status),
		SubmittedAt:   d.SubmittedAt,
		CreatedAt:     d.CreatedAt.UTC(),
		LastUpdatedAt: d.LastUpdatedAt.UTC(),
		Version:       d.Version,
		Education: models.EducationVerification{
			MinimumRequirementMet: d.Education.MinimumRequirementMet,
			OverallStatus:         models.EducationStatus(d.Education.OverallStatus),
		},
	}
	for k, v := range d.Steps {
		r.Steps[models.Step(k)] = models.StepState(v)
	}
	r.Steps = r.Steps.Normalize()
	if pi := d.PersonalInfo; pi != nil {
		r.PersonalInfo = &models.PersonalInfo{
			FirstName:   pi.FirstName,
			LastName:    pi.LastName,
			MiddleName:  pi.MiddleName,
			DateOfBirth: pi.DateOfBirth.UTC(),
			Nationality: pi.Nationality,
			Address: models.Address{
				Street:     pi.Street,
				City:       pi.City,
				State:      pi.State,
				Country:    pi.Country,
				PostalCode: pi.PostalCode,
			},
			Bio:         pi.Bio,
			LinkedInURL: pi.LinkedInURL,
			Status:      models.ReviewStatus(pi.Status),
			SubmittedAt: pi.SubmittedAt.UTC(),
		}
	}
	if dd := d.IDDocument; dd != nil {
		r.IDDocument = &models.IDDocument{
			Type:        models.IDDocumentType(dd.Type),
			Front:       dd.Front.toModel(),
			Status:      models.ReviewStatus(dd.Status),
			SubmittedAt: dd.SubmittedAt.UTC(),
		}
		if dd.Back != nil {
			back := dd.Back.toModel()
			r.IDDocument.Back = &back
		}
	}
	if s := d.Selfie; s != nil {
		r.Selfie = &models.Selfie{Image: s.Image.toModel(), Status: models.ReviewStatus(s.Status), SubmittedAt: s.SubmittedAt.UTC()}
	}
	for _, c := range d.Education.Certificates {
		cert := models.Certificate{
			ID:             id.CertificateID(parseStoredUUID(c.ID)),
			Type:           models.CertificateType(c.Type),
			Institution:    c.Institution,
			FieldOfStudy:   c.FieldOfStudy,
			GraduationYear: c.GraduationYear,
			GPA:            c.GPA,
			Document:       c.Document.toModel(),
			Status:         models.ReviewStatus(c.Status),
			Notes:          c.Notes,
			UploadedAt:     c.UploadedAt.UTC(),
			VerifiedAt:     c.VerifiedAt,
		}
		if c.ReviewedBy != "" {
			cert.ReviewedBy = id.UserID(parseStoredUUID(c.ReviewedBy))
		}
		r.Education.Certificates = append(r.Education.Certificates, cert)
	}
	if rv := d.Review; rv != nil {
		r.Review = &models.Review{
			Decision:          models.Status(rv.Decision),
			Feedback:          rv.Feedback,
			Reason:            rv.Reason,
			AllowResubmission: rv.AllowResubmission,
			Message:           rv.Message,
			ReviewedBy:        id.UserID(parseStoredUUID(rv.ReviewedBy)),
			ReviewedAt:        rv.ReviewedAt.UTC(),
		}
		for _, s := range rv.RequestedSteps {
			r.Review.RequestedSteps = append(r.Review.RequestedSteps, models.Step(s))
		}
	}
	return r
}

func toUploadDoc(u models.Upload) uploadDoc {
	return uploadDoc{Key: u.Key, URL: u.URL, ContentType: u.ContentType, Size: u.Size, UploadedAt: u.UploadedAt}
}

func (u uploadDoc) toModel() models.Upload {
	return models.Upload{Key: u.Key, URL: u.URL, ContentType: u.ContentType, Size: u.Size, UploadedAt: u.UploadedAt.UTC()}
}

// parseStoredUUID trusts IDs we wrote ourselves; corrupt values read as nil.
func parseStoredUUID(s string) uuid.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return u
}
