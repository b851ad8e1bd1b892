package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTripCollection implements TripCollection for MongoDB.
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip inserts a trip record into the collection.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	_, err := c.Collection.InsertOne(ctx, trip)
	return wrapWriteError(err)
}

// FindTrips queries trip records from the collection.
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter TripFilter, opts ListOptions) ([]models.Trip, int64, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.VehicleID != nil {
		q["vehicleId"] = *filter.VehicleID
	}
	if filter.DriverID != nil {
		q["driverId"] = *filter.DriverID
	}
	timeRange(q, "startTime", filter.From, filter.To)
	trips := []models.Trip{}
	total, err := findPage(ctx, c.Collection, q, opts, "startTime", &trips)
	if err != nil {
		return nil, 0, err
	}
	return trips, total, nil
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var trip models.Trip
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip); err != nil {
		return nil, wrapFindError(err)
	}
	return &trip, nil
}

// UpdateTrip replaces a trip whose stored status is still expected.
func (c *MongoTripCollection) UpdateTrip(ctx context.Context, trip *models.Trip, expected models.TripStatus) error {
	trip.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": trip.ID, "status": expected}, trip)
	if err != nil {
		return wrapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return conditionalMiss(ctx, c.Collection, trip.ID)
	}
	return nil
}

// DeleteTrip deletes a trip by its ID.
func (c *MongoTripCollection) DeleteTrip(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, id)
}
