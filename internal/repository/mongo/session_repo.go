package mongo

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new session into the database.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.CoachID == primitive.NilObjectID || session.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires coachId and clientId")
	}

	session.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = domain.StatusScheduled
	}

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted session ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByBatchID returns every session generated by one recurrence batch, in sequence order.
func (r *mongoSessionRepository) GetByBatchID(ctx context.Context, batchID string) ([]domain.Session, error) {
	filter := bson.M{"metadata.recurrence.batchId": batchID}
	findOptions := options.Find().SetSort(bson.D{{Key: "metadata.recurrence.sequence", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

// List retrieves sessions matching f, ordered by scheduledAt.
func (r *mongoSessionRepository) List(ctx context.Context, f repository.SessionFilter) ([]domain.Session, error) {
	filter := bson.M{}
	if f.CoachID != nil {
		filter["coachId"] = *f.CoachID
	}
	if f.ClientID != nil {
		filter["clientId"] = *f.ClientID
	}
	switch {
	case len(f.Statuses) > 0:
		filter["status"] = bson.M{"$in": f.Statuses}
	case !f.IncludeCancelled:
		filter["status"] = bson.M{"$ne": domain.StatusCancelled}
	}
	if f.From != nil || f.To != nil {
		window := bson.M{}
		if f.From != nil {
			window["$gte"] = *f.From
		}
		if f.To != nil {
			window["$lte"] = *f.To
		}
		filter["scheduledAt"] = window
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}})
	return r.find(ctx, filter, findOptions)
}

func (r *mongoSessionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Session, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.Session{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update overwrites the mutable fields of a session.
// coachId and clientId never change after creation.
func (r *mongoSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session.ID == primitive.NilObjectID {
		return errors.New("session ID is required for update")
	}

	session.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": session.ID}
	update := bson.M{
		"$set": bson.M{
			"workoutId":       session.WorkoutID,
			"scheduledAt":     session.ScheduledAt,
			"durationMinutes": session.DurationMinutes,
			"location":        session.Location,
			"status":          session.Status,
			"notes":           session.Notes,
			"completedAt":     session.CompletedAt,
			"metadata":        session.Metadata,
			"updatedAt":       session.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete hard-deletes a session.
func (r *mongoSessionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureSessionIndexes creates indexes needed for efficient session queries
// and the unique (batchId, sequence) pair that makes batch replays idempotent.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys: bson.D{
				{Key: "metadata.recurrence.batchId", Value: 1},
				{Key: "metadata.recurrence.sequence", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"metadata.recurrence.batchId": bson.M{"$exists": true}}),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
