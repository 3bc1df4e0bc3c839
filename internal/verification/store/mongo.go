package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jojo/internal/verification/models"
	id "jojo/pkg/domain"
	"jojo/pkg/platform/sentinel"
)

// CollectionName holds one document per instructor.
const CollectionName = "instructor_verifications"

// Mongo persists records in MongoDB with version-checked replaces.
type Mongo struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique instructor index and the listing indexes.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "instructor_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_instructor"),
		},
		{
			Keys:    bson.D{{Key: "verification_status", Value: 1}, {Key: "last_updated_at", Value: -1}},
			Options: options.Index().SetName("status_updated"),
		},
		{
			Keys:    bson.D{{Key: "education_verification.overall_status", Value: 1}},
			Options: options.Index().SetName("education_status"),
		},
	})
	if err != nil {
		return fmt.Errorf("create verification indexes: %w", err)
	}
	return nil
}

func (s *Mongo) Create(ctx context.Context, r *models.Record) error {
	r.Version = 1
	if _, err := s.coll.InsertOne(ctx, toDocument(r)); err != nil {
		r.Version = 0
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("verification for instructor %s: %w", r.InstructorID, sentinel.ErrAlreadyExists)
		}
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *Mongo) FindByID(ctx context.Context, recordID id.VerificationID) (*models.Record, error) {
	return s.findOne(ctx, bson.M{"_id": recordID.String()})
}

func (s *Mongo) FindByInstructor(ctx context.Context, instructorID id.UserID) (*models.Record, error) {
	return s.findOne(ctx, bson.M{"instructor_id": instructorID.String()})
}

func (s *Mongo) findOne(ctx context.Context, filter bson.M) (*models.Record, error) {
	var doc recordDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find verification: %w", err)
	}
	return doc.toModel(), nil
}

// Update replaces the document only if the stored version equals r.Version.
func (s *Mongo) Update(ctx context.Context, r *models.Record) error {
	expected := r.Version
	doc := toDocument(r)
	doc.Version = expected + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": expected}, doc)
	if err != nil {
		return fmt.Errorf("replace verification: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": doc.ID}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("check verification existence: %w", err)
		}
		if n == 0 {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("verification %s changed since version %d: %w", r.ID, expected, sentinel.ErrConflict)
	}
	r.Version = doc.Version
	return nil
}

func (s *Mongo) List(ctx context.Context, f models.ListFilter) ([]*models.Record, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["verification_status"] = string(f.Status)
	}
	if f.EducationStatus != "" {
		filter["education_verification.overall_status"] = string(f.EducationStatus)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count verifications: %w", err)
	}

	column, ok := models.SortFields[f.Sort]
	if !ok {
		column = "last_updated_at"
	}
	direction := 1
	if f.Descending {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: column, Value: direction}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list verifications: %w", err)
	}
	defer cur.Close(ctx)

	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode verifications: %w", err)
	}
	out := make([]*models.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, total, nil
}
