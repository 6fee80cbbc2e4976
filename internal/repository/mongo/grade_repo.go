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

const gradeCollectionName = "session_grades"

// mongoGradeRepository implements repository.GradeRepository
type mongoGradeRepository struct {
	collection *mongo.Collection
}

// NewMongoGradeRepository creates a new Grade repository backed by MongoDB.
func NewMongoGradeRepository(db *mongo.Database) repository.GradeRepository {
	return &mongoGradeRepository{
		collection: db.Collection(gradeCollectionName),
	}
}

// Upsert writes the grade keyed by (sessionId, clientId) and decodes the
// stored document back into grade.
func (r *mongoGradeRepository) Upsert(ctx context.Context, grade *domain.SessionGrade) error {
	if grade.SessionID == primitive.NilObjectID || grade.ClientID == primitive.NilObjectID {
		return errors.New("grade requires sessionId and clientId")
	}
	now := time.Now().UTC()
	filter := bson.M{"sessionId": grade.SessionID, "clientId": grade.ClientID}
	update := bson.M{
		"$set": bson.M{
			"coachId":            grade.CoachID,
			"sessionScheduledAt": grade.SessionScheduledAt,
			"gradeValue":         grade.GradeValue,
			"numericScore":       grade.NumericScore,
			"comments":           grade.Comments,
			"updatedAt":          now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.SessionGrade
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return err
	}
	*grade = stored
	return nil
}

func (r *mongoGradeRepository) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.SessionGrade, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "sessionScheduledAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	grades := []domain.SessionGrade{}
	if err = cursor.All(ctx, &grades); err != nil {
		return nil, err
	}
	return grades, nil
}

// EnsureGradeIndexes creates the one-grade-per-session-and-client index.
func EnsureGradeIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "clientId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "sessionScheduledAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
