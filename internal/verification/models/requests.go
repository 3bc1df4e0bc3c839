package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	id "jojo/pkg/domain"
	dErrors "jojo/pkg/domain-errors"
	strutil "jojo/pkg/string"
	"jojo/pkg/validation"
)

type InitializeRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,numeric,min=6,max=15"`
	CountryCode string `json:"countryCode" validate:"required,dialcode"`
}

func (r *InitializeRequest) Normalize() {
	if r == nil {
		return
	}
	r.PhoneNumber = strutil.DigitsOnly(r.PhoneNumber)
	r.CountryCode = strings.TrimSpace(r.CountryCode)
	if r.CountryCode != "" && !strings.HasPrefix(r.CountryCode, "+") {
		r.CountryCode = "+" + r.CountryCode
	}
}

func (r *InitializeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,otpcode"`
}

func (r *VerifyCodeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyCodeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type AddressRequest struct {
	Street     string `json:"street" validate:"required,notblank,max=200"`
	City       string `json:"city" validate:"required,notblank,max=100"`
	State      string `json:"state" validate:"omitempty,max=100"`
	Country    string `json:"country" validate:"required,notblank,max=100"`
	PostalCode string `json:"postalCode" validate:"omitempty,max=20"`
}

type PersonalInfoRequest struct {
	FirstName   string         `json:"firstName" validate:"required,notblank,max=100"`
	LastName    string         `json:"lastName" validate:"required,notblank,max=100"`
	MiddleName  string         `json:"middleName" validate:"omitempty,max=100"`
	DateOfBirth string         `json:"dateOfBirth" validate:"required,isodate"`
	Nationality string         `json:"nationality" validate:"required,notblank,max=100"`
	Address     AddressRequest `json:"address"`
	Bio         string         `json:"bio" validate:"omitempty,max=2000"`
	LinkedInURL string         `json:"linkedinUrl" validate:"omitempty,url"`
}

func (r *PersonalInfoRequest) Normalize() {
	if r == nil {
		return
	}
	strutil.TrimStrings(&r.FirstName, &r.LastName, &r.MiddleName, &r.DateOfBirth,
		&r.Nationality, &r.Bio, &r.LinkedInURL,
		&r.Address.Street, &r.Address.City, &r.Address.State, &r.Address.Country, &r.Address.PostalCode)
	r.FirstName = strutil.CollapseSpaces(r.FirstName)
	r.LastName = strutil.CollapseSpaces(r.LastName)
	r.MiddleName = strutil.CollapseSpaces(r.MiddleName)
}

func (r *PersonalInfoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ToPersonalInfo applies the checks that depend on the current date.
func (r *PersonalInfoRequest) ToPersonalInfo(now time.Time) (PersonalInfo, error) {
	dob, err := time.Parse(time.DateOnly, r.DateOfBirth)
	if err != nil {
		return PersonalInfo{}, dErrors.NewField("dateOfBirth", "dateOfBirth must be a date in YYYY-MM-DD format")
	}
	if dob.After(now) {
		return PersonalInfo{}, dErrors.NewField("dateOfBirth", "dateOfBirth cannot be in the future")
	}
	if !id.IsOldEnoughToTeach(dob, now) {
		return PersonalInfo{}, dErrors.NewField("dateOfBirth", "instructors must be at least 18 years old")
	}
	return PersonalInfo{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		MiddleName:  r.MiddleName,
		DateOfBirth: dob,
		Nationality: r.Nationality,
		Address: Address{
			Street:     r.Address.Street,
			City:       r.Address.City,
			State:      r.Address.State,
			Country:    r.Address.Country,
			PostalCode: r.Address.PostalCode,
		},
		Bio:         r.Bio,
		LinkedInURL: r.LinkedInURL,
	}, nil
}

// IDDocumentRequest carries the non-file multipart fields of an ID upload.
type IDDocumentRequest struct {
	DocumentType string `json:"documentType" validate:"required,oneof=passport national_id drivers_license voters_card"`
}

func (r *IDDocumentRequest) Normalize() {
	if r == nil {
		return
	}
	r.DocumentType = strings.ToLower(strings.TrimSpace(r.DocumentType))
}

func (r *IDDocumentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// CertificateRequest carries the metadata fields of a certificate upload.
// Numeric fields arrive as multipart strings.
type CertificateRequest struct {
	CertificateType string `json:"certificateType" validate:"required,oneof=bachelor master doctorate professional_certification diploma high_school other"`
	Institution     string `json:"institution" validate:"required,notblank,max=200"`
	FieldOfStudy    string `json:"fieldOfStudy" validate:"required,notblank,max=200"`
	GraduationYear  string `json:"graduationYear" validate:"required,numeric,len=4"`
	GPA             string `json:"gpa" validate:"omitempty,numeric"`
}

func (r *CertificateRequest) Normalize() {
	if r == nil {
		return
	}
	strutil.TrimStrings(&r.Institution, &r.FieldOfStudy, &r.GraduationYear, &r.GPA)
	r.CertificateType = strings.ToLower(strings.TrimSpace(r.CertificateType))
}

func (r *CertificateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ToCertificate converts validated metadata, checking the year against now.
func (r *CertificateRequest) ToCertificate(now time.Time) (Certificate, error) {
	year, err := strconv.Atoi(r.GraduationYear)
	if err != nil {
		return Certificate{}, dErrors.NewField("graduationYear", "graduationYear must be a year")
	}
	if year < 1900 || year > now.UTC().Year() {
		return Certificate{}, dErrors.NewField("graduationYear", "graduationYear must be between 1900 and the current year")
	}
	cert := Certificate{
		Type:           CertificateType(r.CertificateType),
		Institution:    r.Institution,
		FieldOfStudy:   r.FieldOfStudy,
		GraduationYear: year,
	}
	if r.GPA != "" {
		gpa, err := strconv.ParseFloat(r.GPA, 64)
		if err != nil || gpa < 0 || gpa > 10 {
			return Certificate{}, dErrors.NewField("gpa", "gpa must be a number between 0 and 10")
		}
		cert.GPA = &gpa
	}
	return cert, nil
}

// ListFilter narrows and orders the admin listing.
type ListFilter struct {
	Status          Status
	EducationStatus EducationStatus
	Page            int
	Limit           int
	Sort            string
	Descending      bool
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*limit inside int for every accepted limit.
	MaxPage = math.MaxInt / MaxPageSize
)

// SortFields maps accepted sort keys to persisted field names.
var SortFields = map[string]string{
	"lastUpdatedAt":      "last_updated_at",
	"createdAt":          "created_at",
	"progressPercentage": "progress",
	"submittedAt":        "submitted_at",
}

// ParseListFilter reads query parameters; unset values fall back to defaults.
func ParseListFilter(status, educationStatus, page, limit, sort, order string) (ListFilter, error) {
	f := ListFilter{Page: 1, Limit: DefaultPageSize, Sort: "lastUpdatedAt", Descending: true}
	if status != "" {
		f.Status = Status(status)
		if !f.Status.IsValid() {
			return f, dErrors.NewField("status", "unknown verification status: "+status)
		}
	}
	if educationStatus != "" {
		f.EducationStatus = EducationStatus(educationStatus)
		if !f.EducationStatus.IsValid() {
			return f, dErrors.NewField("educationStatus", "unknown education status: "+educationStatus)
		}
	}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return f, dErrors.NewField("page", "page must be a positive integer")
		}
		if n > MaxPage {
			return f, dErrors.NewField("page", "page is out of range")
		}
		f.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxPageSize {
			return f, dErrors.NewField("limit", "limit must be between 1 and 100")
		}
		f.Limit = n
	}
	if sort != "" {
		if _, ok := SortFields[sort]; !ok {
			return f, dErrors.NewField("sort", "sort must be one of lastUpdatedAt, createdAt, progressPercentage, submittedAt")
		}
		f.Sort = sort
	}
	switch strings.ToLower(order) {
	case "", "desc":
		f.Descending = true
	case "asc":
		f.Descending = false
	default:
		return f, dErrors.NewField("order", "order must be asc or desc")
	}
	return f, nil
}

// Offset returns the number of records skipped before the page.
// Pages beyond what int can address clamp to math.MaxInt, past any result set.
func (f ListFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

type ApproveRequest struct {
	Feedback string `json:"feedback" validate:"omitempty,max=2000"`
}

func (r *ApproveRequest) Normalize() {
	if r == nil {
		return
	}
	r.Feedback = strings.TrimSpace(r.Feedback)
}

func (r *ApproveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type RejectRequest struct {
	Reason            string `json:"reason" validate:"required,notblank,max=2000"`
	AllowResubmission bool   `json:"allowResubmission"`
}

func (r *RejectRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RejectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type RequestInfoRequest struct {
	Message string   `json:"message" validate:"required,notblank,max=2000"`
	Steps   []string `json:"steps" validate:"required,min=1,dive,oneof=email phone personalInfo idDocument selfie educationCertificate"`
}

func (r *RequestInfoRequest) Normalize() {
	if r == nil {
		return
	}
	r.Message = strings.TrimSpace(r.Message)
	strutil.TrimSlice(r.Steps)
}

func (r *RequestInfoRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ParsedSteps converts validated step names, dropping duplicates.
func (r *RequestInfoRequest) ParsedSteps() []Step {
	seen := make(map[Step]bool, len(r.Steps))
	var out []Step
	for _, s := range r.Steps {
		step := Step(s)
		if seen[step] {
			continue
		}
		seen[step] = true
		out = append(out, step)
	}
	return out
}

type SuspendRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=2000"`
}

func (r *SuspendRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SuspendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type CertificateReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=under_review verified rejected"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

func (r *CertificateReviewRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CertificateReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
