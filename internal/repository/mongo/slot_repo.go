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

const timeSlotCollectionName = "time_slots"

// mongoTimeSlotRepository implements repository.TimeSlotRepository
type mongoTimeSlotRepository struct {
	collection *mongo.Collection
}

// NewMongoTimeSlotRepository creates a new TimeSlot repository backed by MongoDB.
func NewMongoTimeSlotRepository(db *mongo.Database) repository.TimeSlotRepository {
	return &mongoTimeSlotRepository{
		collection: db.Collection(timeSlotCollectionName),
	}
}

func (r *mongoTimeSlotRepository) Create(ctx context.Context, slot *domain.TimeSlot) (primitive.ObjectID, error) {
	if slot.CoachID == primitive.NilObjectID || slot.StartTime == "" {
		return primitive.NilObjectID, errors.New("time slot requires coachId and startTime")
	}
	slot.ID = primitive.NewObjectID()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted time slot ID")
	}
	return insertedID, nil
}

func (r *mongoTimeSlotRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TimeSlot, error) {
	var slot domain.TimeSlot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *mongoTimeSlotRepository) ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.TimeSlot, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "dayOfWeek", Value: 1}, {Key: "startTime", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"coachId": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	slots := []domain.TimeSlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// Delete removes a slot only if it belongs to coachID. Sessions already
// created from it are kept.
func (r *mongoTimeSlotRepository) Delete(ctx context.Context, id, coachID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "coachId": coachID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTimeSlotIndexes creates necessary indexes. Call during startup.
func EnsureTimeSlotIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "dayOfWeek", Value: 1}, {Key: "startTime", Value: 1}},
		Options: options.Index(),
	})
	return err
}
