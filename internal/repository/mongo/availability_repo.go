package mongo

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	availabilityCollectionName = "availability"
	holidayCollectionName      = "holidays"
)

type mongoAvailabilityRepository struct {
	collection *mongo.Collection
}

// NewMongoAvailabilityRepository creates the per-coach availability store.
func NewMongoAvailabilityRepository(db *mongo.Database) repository.AvailabilityRepository {
	return &mongoAvailabilityRepository{
		collection: db.Collection(availabilityCollectionName),
	}
}

func (r *mongoAvailabilityRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) (*domain.AvailabilityProfile, error) {
	var profile domain.AvailabilityProfile
	err := r.collection.FindOne(ctx, bson.M{"coachId": coachID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert replaces the coach's profile wholesale.
func (r *mongoAvailabilityRepository) Upsert(ctx context.Context, profile *domain.AvailabilityProfile) error {
	filter := bson.M{"coachId": profile.CoachID}
	update := bson.M{
		"$set": bson.M{
			"workingDays":    profile.WorkingDays,
			"recurrenceType": profile.RecurrenceType,
			"updatedAt":      profile.UpdatedAt,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

type mongoHolidayRepository struct {
	collection *mongo.Collection
}

// NewMongoHolidayRepository creates the coach holiday store.
func NewMongoHolidayRepository(db *mongo.Database) repository.HolidayRepository {
	return &mongoHolidayRepository{
		collection: db.Collection(holidayCollectionName),
	}
}

func (r *mongoHolidayRepository) Create(ctx context.Context, holiday *domain.Holiday) (primitive.ObjectID, error) {
	if holiday.CoachID == primitive.NilObjectID || holiday.Date == "" {
		return primitive.NilObjectID, errors.New("holiday requires coachId and date")
	}
	holiday.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, holiday)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted holiday ID")
	}
	return insertedID, nil
}

func (r *mongoHolidayRepository) ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Holiday, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"coachId": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	holidays := []domain.Holiday{}
	if err = cursor.All(ctx, &holidays); err != nil {
		return nil, err
	}
	return holidays, nil
}

// Delete removes a holiday only if it belongs to coachID.
func (r *mongoHolidayRepository) Delete(ctx context.Context, id, coachID primitive.ObjectID) error {
	filter := bson.M{
		"_id":     id,
		"coachId": coachID,
	}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// Holiday not found OR not owned by this coach.
		return repository.ErrNotFound
	}
	return nil
}

// EnsureAvailabilityIndexes creates the one-profile-per-coach and
// one-holiday-per-day indexes.
func EnsureAvailabilityIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(availabilityCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "coachId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(holidayCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "coachId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
