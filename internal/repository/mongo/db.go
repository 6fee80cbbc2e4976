package mongo

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	err = client.Ping(pingCtx, readpref.Primary())
	if err != nil {
		// If ping fails, disconnect the client before returning the error
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates every index the repositories rely on. Failures are
// logged per collection and do not stop the remaining collections, except
// that a missing unique batch index is reported back to the caller since
// recurring-batch idempotency depends on it.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureCoachIndexes(ctx, db.Collection(coachCollectionName)); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", coachCollectionName, err)
	}
	if err := EnsureClientIndexes(ctx, db.Collection(clientCollectionName)); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", clientCollectionName, err)
	}
	if err := EnsureProgressIndexes(ctx, db.Collection(progressCollectionName)); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", progressCollectionName, err)
	}
	if err := EnsureAvailabilityIndexes(ctx, db); err != nil {
		log.Printf("WARN: Failed to create availability indexes: %v", err)
	}
	if err := EnsureTimeSlotIndexes(ctx, db.Collection(timeSlotCollectionName)); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", timeSlotCollectionName, err)
	}
	if err := EnsureGradeIndexes(ctx, db.Collection(gradeCollectionName)); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", gradeCollectionName, err)
	}
	if err := EnsureSessionIndexes(ctx, db.Collection(sessionCollectionName)); err != nil {
		log.Printf("ERROR: Failed to create indexes for collection %s: %v", sessionCollectionName, err)
		return err
	}
	return nil
}
