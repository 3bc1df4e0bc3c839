//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"jojo/internal/verification/models"
	"jojo/internal/verification/store"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/sentinel"
	"jojo/pkg/testutil"
	"jojo/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	store *store.Mongo
	ctx   context.Context
	now   time.Time
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	db := containers.GetManager().GetMongo(s.T()).FreshDatabase(s.T())
	s.store = store.NewMongo(db)
	s.Require().NoError(s.store.EnsureIndexes(s.ctx))
}

func (s *MongoStoreSuite) newRecord() *models.Record {
	r, err := models.NewRecord(id.NewVerificationID(), id.UserID(uuid.New()), "ada@example.com", "8012345678", "+234", s.now)
	s.Require().NoError(err)
	return r
}

func (s *MongoStoreSuite) TestUniqueInstructor() {
	r := s.newRecord()
	s.Require().NoError(s.store.Create(s.ctx, r))

	dup := s.newRecord()
	dup.InstructorID = r.InstructorID
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyExists)
}

func (s *MongoStoreSuite) TestRoundTrip() {
	r := s.newRecord()
	s.Require().NoError(s.store.Create(s.ctx, r))

	gpa := 3.9
	s.Require().NoError(r.SetStep(models.StepEmail, models.StepVerified, s.now))
	r.AddCertificate(models.Certificate{
		ID:             id.NewCertificateID(),
		Type:           models.CertMaster,
		Institution:    "University of Nairobi",
		FieldOfStudy:   "Physics",
		GraduationYear: 2019,
		GPA:            &gpa,
		Document:       models.Upload{Key: "verifications/x/certificate/01.pdf", URL: "https://blob/x", ContentType: "application/pdf", Size: 1024},
	}, s.now)
	s.Require().NoError(s.store.Update(s.ctx, r))

	got, err := s.store.FindByInstructor(s.ctx, r.InstructorID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.Equal(models.StepVerified, got.Steps[models.StepEmail])
	s.Equal(models.StepVerified, got.Steps[models.StepEducationCertificate])
	s.True(got.Education.MinimumRequirementMet)
	s.Require().Len(got.Education.Certificates, 1)
	s.Equal(r.Education.Certificates[0].ID, got.Education.Certificates[0].ID)
	s.InDelta(3.9, *got.Education.Certificates[0].GPA, 0.0001)
	s.Equal(models.StatusInProgress, got.Status)
}

func (s *MongoStoreSuite) TestVersionConflict() {
	r := s.newRecord()
	s.Require().NoError(s.store.Create(s.ctx, r))

	result := testutil.RunConcurrent(10, func(int) error {
		snapshot, err := s.store.FindByID(s.ctx, r.ID)
		if err != nil {
			return err
		}
		snapshot.Version = 1
		return s.store.Update(s.ctx, snapshot)
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.Conflicts)

	s.ErrorIs(s.store.Update(s.ctx, s.newRecord()), sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestList() {
	for i := 0; i < 3; i++ {
		r := s.newRecord()
		r.LastUpdatedAt = s.now.Add(time.Duration(i) * time.Minute)
		if i > 0 {
			r.Status = models.StatusUnderReview
		}
		s.Require().NoError(s.store.Create(s.ctx, r))
	}

	page, total, err := s.store.List(s.ctx, models.ListFilter{Status: models.StatusUnderReview, Page: 1, Limit: 1, Sort: "lastUpdatedAt", Descending: true})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(page, 1)
	s.Equal(s.now.Add(2*time.Minute), page[0].LastUpdatedAt)
}
