package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAlertCollection implements AlertCollection for MongoDB.
type MongoAlertCollection struct {
	Collection *mongo.Collection
}

// InsertAlert inserts an alert into the collection.
func (c *MongoAlertCollection) InsertAlert(ctx context.Context, alert *models.Alert) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	stampAlert(alert, time.Now())
	_, err := c.Collection.InsertOne(ctx, alert)
	return wrapWriteError(err)
}

// InsertAlerts inserts a batch of alerts.
func (c *MongoAlertCollection) InsertAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(alerts))
	for i := range alerts {
		stampAlert(&alerts[i], now)
		docs[i] = alerts[i]
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return wrapWriteError(err)
}

func stampAlert(alert *models.Alert, now time.Time) {
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	alert.CreatedAt = now
	alert.UpdatedAt = now
}

// FindAlerts queries alerts from the collection.
func (c *MongoAlertCollection) FindAlerts(ctx context.Context, filter AlertFilter, opts ListOptions) ([]models.Alert, int64, error) {
	q := bson.M{}
	if filter.Type != "" {
		q["type"] = filter.Type
	}
	if filter.Priority != "" {
		q["priority"] = filter.Priority
	}
	if filter.IsRead != nil {
		q["isRead"] = *filter.IsRead
	}
	alerts := []models.Alert{}
	total, err := findPage(ctx, c.Collection, q, opts, "createdAt", &alerts)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// FindAlertByID finds an alert by its ID.
func (c *MongoAlertCollection) FindAlertByID(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var alert models.Alert
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert); err != nil {
		return nil, wrapFindError(err)
	}
	return &alert, nil
}

// UpdateAlert replaces an alert.
func (c *MongoAlertCollection) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	alert.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, alert)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAlertRead flags an alert as read and returns the stored document.
func (c *MongoAlertCollection) MarkAlertRead(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Alert, error) {
	var alert models.Alert
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&alert)
	if err != nil {
		return nil, wrapFindError(err)
	}
	return &alert, nil
}

// CountUnread counts unread alerts.
func (c *MongoAlertCollection) CountUnread(ctx context.Context) (int64, error) {
	return c.Collection.CountDocuments(ctx, bson.M{"isRead": false})
}

// DeleteGeneratedAlerts deletes all alerts created by the alert job.
func (c *MongoAlertCollection) DeleteGeneratedAlerts(ctx context.Context) (int64, error) {
	result, err := c.Collection.DeleteMany(ctx, bson.M{"generated": true})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteAlert deletes an alert by its ID.
func (c *MongoAlertCollection) DeleteAlert(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, c.Collection, id)
}
