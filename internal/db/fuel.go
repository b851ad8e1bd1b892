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

// MongoFuelCollection implements FuelCollection for MongoDB.
type MongoFuelCollection struct {
	Collection *mongo.Collection
}

// InsertFuel inserts a fuel record into the collection.
func (c *MongoFuelCollection) InsertFuel(ctx context.Context, record *models.Fuel) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	_, err := c.Collection.InsertOne(ctx, record)
	return wrapWriteError(err)
}

// FindFuel queries fuel records from the collection.
func (c *MongoFuelCollection) FindFuel(ctx context.Context, filter FuelFilter, opts ListOptions) ([]models.Fuel, int64, error) {
	q := bson.M{}
	if filter.VehicleID != nil {
		q["vehicleId"] = *filter.VehicleID
	}
	if filter.DriverID != nil {
		q["driverId"] = *filter.DriverID
	}
	timeRange(q, "date", filter.From, filter.To)
	records := []models.Fuel{}
	total, err := findPage(ctx, c.Collection, q, opts, "date", &records)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindFuelByID finds a fuel record by its ID.
func (c *MongoFuelCollection) FindFuelByID(ctx context.Context, id primitive.ObjectID) (*models.Fuel, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var record models.Fuel
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record); err != nil {
		return nil, wrapFindError(err)
	}
	return &record, nil
}

// UpdateFuel replaces a fuel record.
func (c *MongoFuelCollection) UpdateFuel(ctx context.Context, record *models.Fuel) error {
	record.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	if err != nil {
		return wrapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFuel deletes a fuel record by its ID.
func (c *MongoFuelCollection) DeleteFuel(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, id)
}
