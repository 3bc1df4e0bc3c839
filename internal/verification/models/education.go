package models

import (
	"time"

	id "jojo/pkg/domain"
)

// CertificateType is the kind of education credential.
type CertificateType string

const (
	CertBachelor                  CertificateType = "bachelor"
	CertMaster                    CertificateType = "master"
	CertDoctorate                 CertificateType = "doctorate"
	CertProfessionalCertification CertificateType = "professional_certification"
	CertDiploma                   CertificateType = "diploma"
	CertHighSchool                CertificateType = "high_school"
	CertOther                     CertificateType = "other"
)

func (t CertificateType) IsValid() bool {
	switch t {
	case CertBachelor, CertMaster, CertDoctorate, CertProfessionalCertification,
		CertDiploma, CertHighSchool, CertOther:
		return true
	}
	return false
}

// IsQualifying reports whether the type can satisfy the minimum requirement.
func (t CertificateType) IsQualifying() bool {
	switch t {
	case CertBachelor, CertMaster, CertDoctorate, CertProfessionalCertification:
		return true
	}
	return false
}

type Certificate struct {
	ID             id.CertificateID
	Type           CertificateType
	Institution    string
	FieldOfStudy   string
	GraduationYear int
	GPA            *float64
	Document       Upload
	Status         ReviewStatus
	Notes          string
	ReviewedBy     id.UserID
	UploadedAt     time.Time
	VerifiedAt     *time.Time
}

// MeetsMinimumRequirement is the one rule deciding whether a certificate
// qualifies an instructor: qualifying type, plausible graduation year, and
// not rejected by a reviewer.
func (c Certificate) MeetsMinimumRequirement(now time.Time) bool {
	return c.Type.IsQualifying() &&
		id.GraduationYearInRange(c.GraduationYear, now) &&
		c.Status != ReviewRejected
}

func (c Certificate) clone() Certificate {
	out := c
	if c.GPA != nil {
		gpa := *c.GPA
		out.GPA = &gpa
	}
	if c.VerifiedAt != nil {
		at := *c.VerifiedAt
		out.VerifiedAt = &at
	}
	return out
}

// EducationVerification holds certificates and the fields derived from them.
// MinimumRequirementMet and OverallStatus are written only by DeriveEducation.
type EducationVerification struct {
	Certificates          []Certificate
	MinimumRequirementMet bool
	OverallStatus         EducationStatus
}

// Certificate returns the certificate with the given ID.
func (e EducationVerification) Certificate(certID id.CertificateID) (Certificate, bool) {
	for _, c := range e.Certificates {
		if c.ID == certID {
			return c, true
		}
	}
	return Certificate{}, false
}

// DeriveEducation recomputes minimumRequirementMet, overallStatus and the
// educationCertificate step from the certificate list.
func (r *Record) DeriveEducation(now time.Time) {
	certs := r.Education.Certificates

	met := false
	anyVerified := false
	anyUnderReview := false
	allRejected := len(certs) > 0
	for _, c := range certs {
		qualifies := c.MeetsMinimumRequirement(now)
		if qualifies {
			met = true
		}
		if qualifies && c.Status == ReviewVerified {
			anyVerified = true
		}
		if c.Status == ReviewUnderReview {
			anyUnderReview = true
		}
		if c.Status != ReviewRejected {
			allRejected = false
		}
	}

	r.Education.MinimumRequirementMet = met
	switch {
	case anyVerified:
		r.Education.OverallStatus = EducationVerified
	case allRejected:
		r.Education.OverallStatus = EducationRejected
	case anyUnderReview:
		r.Education.OverallStatus = EducationUnderReview
	default:
		r.Education.OverallStatus = EducationPending
	}

	if r.Steps == nil {
		r.Steps = NewStepStates()
	}
	switch {
	case met:
		r.Steps[StepEducationCertificate] = StepVerified
	case allRejected:
		r.Steps[StepEducationCertificate] = StepRejected
	case len(certs) > 0:
		r.Steps[StepEducationCertificate] = StepSubmitted
	default:
		r.Steps[StepEducationCertificate] = StepNotStarted
	}
}
