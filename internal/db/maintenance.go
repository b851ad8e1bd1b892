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

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB.
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a maintenance record into the collection.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, record *models.Maintenance) error {
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

// FindMaintenance queries maintenance records from the collection.
func (c *MongoMaintenanceCollection) FindMaintenance(ctx context.Context, filter MaintenanceFilter, opts ListOptions) ([]models.Maintenance, int64, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.VehicleID != nil {
		q["vehicleId"] = *filter.VehicleID
	}
	if filter.ExcludeID != nil {
		q["_id"] = bson.M{"$ne": *filter.ExcludeID}
	}
	timeRange(q, "dateScheduled", filter.From, filter.To)
	records := []models.Maintenance{}
	total, err := findPage(ctx, c.Collection, q, opts, "dateScheduled", &records)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (c *MongoMaintenanceCollection) FindMaintenanceByID(ctx context.Context, id primitive.ObjectID) (*models.Maintenance, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var record models.Maintenance
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record); err != nil {
		return nil, wrapFindError(err)
	}
	return &record, nil
}

// UpdateMaintenance replaces a record whose stored status is still expected.
func (c *MongoMaintenanceCollection) UpdateMaintenance(ctx context.Context, record *models.Maintenance, expected models.MaintenanceStatus) error {
	record.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": record.ID, "status": expected}, record)
	if err != nil {
		return wrapWriteError(err)
	}
	if result.MatchedCount == 0 {
		return conditionalMiss(ctx, c.Collection, record.ID)
	}
	return nil
}

// DeleteMaintenance deletes a maintenance record by its ID.
func (c *MongoMaintenanceCollection) DeleteMaintenance(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, id)
}
