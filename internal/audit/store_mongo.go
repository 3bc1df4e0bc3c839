package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "verification_audit_events"

type eventDocument struct {
	ID             string    `bson:"_id"`
	VerificationID string    `bson:"verification_id"`
	InstructorID   string    `bson:"instructor_id"`
	ActorID        string    `bson:"actor_id"`
	ActorRole      string    `bson:"actor_role"`
	Action         string    `bson:"action"`
	Step           string    `bson:"step,omitempty"`
	Detail         string    `bson:"detail,omitempty"`
	RequestID      string    `bson:"request_id,omitempty"`
	Device         string    `bson:"device,omitempty"`
	ClientIP       string    `bson:"client_ip,omitempty"`
	Timestamp      time.Time `bson:"timestamp"`
}

// MongoStore appends events to an insert-only collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "verification_id", Value: 1}, {Key: "timestamp", Value: 1}},
		Options: options.Index().SetName("verification_timeline"),
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, e Event) error {
	_, err := s.coll.InsertOne(ctx, eventDocument{
		ID:             e.ID,
		VerificationID: e.VerificationID,
		InstructorID:   e.InstructorID,
		ActorID:        e.ActorID,
		ActorRole:      e.ActorRole,
		Action:         string(e.Action),
		Step:           e.Step,
		Detail:         e.Detail,
		RequestID:      e.RequestID,
		Device:         e.Device,
		ClientIP:       e.ClientIP,
		Timestamp:      e.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *MongoStore) ListByVerification(ctx context.Context, verificationID string) ([]Event, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"verification_id": verificationID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	out := make([]Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, Event{
			ID:             d.ID,
			VerificationID: d.VerificationID,
			InstructorID:   d.InstructorID,
			ActorID:        d.ActorID,
			ActorRole:      d.ActorRole,
			Action:         Action(d.Action),
			Step:           d.Step,
			Detail:         d.Detail,
			RequestID:      d.RequestID,
			Device:         d.Device,
			ClientIP:       d.ClientIP,
			Timestamp:      d.Timestamp,
		})
	}
	return out, nil
}
