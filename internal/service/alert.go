package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AlertService struct {
	base
}

// AlertDetail is an alert with its related document resolved.
type AlertDetail struct {
	models.Alert
	Related interface{} `json:"related,omitempty"`
}

func (s *AlertService) List(ctx context.Context, filter db.AlertFilter, opts db.ListOptions) (Page[models.Alert], error) {
	items, total, err := s.store.Alerts.FindAlerts(ctx, filter, opts)
	if err != nil {
		return Page[models.Alert]{}, err
	}
	return newPage(items, total, opts), nil
}

// Get returns the alert and the document it refers to. A dangling reference
// is returned without the related document.
func (s *AlertService) Get(ctx context.Context, id primitive.ObjectID) (*AlertDetail, error) {
	a, err := s.store.Alerts.FindAlertByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Alert")
	}
	detail := &AlertDetail{Alert: *a}
	if a.RelatedTo == nil {
		return detail, nil
	}
	related, err := s.resolve(ctx, *a.RelatedTo)
	switch {
	case errors.Is(err, db.ErrNotFound):
		s.log.WithField("related_to", a.RelatedTo.String()).Debug("Alert refers to a missing document")
	case err != nil:
		return nil, err
	default:
		detail.Related = related
	}
	return detail, nil
}

func (s *AlertService) resolve(ctx context.Context, ref models.EntityRef) (interface{}, error) {
	switch ref.Kind {
	case models.KindVehicle:
		return s.store.Vehicles.FindVehicleByID(ctx, ref.ID)
	case models.KindDriver:
		return s.store.Drivers.FindDriverByID(ctx, ref.ID)
	case models.KindTrip:
		return s.store.Trips.FindTripByID(ctx, ref.ID)
	case models.KindMaintenance:
		return s.store.Maintenance.FindMaintenanceByID(ctx, ref.ID)
	case models.KindUser:
		return s.store.Users.FindUserByID(ctx, ref.ID.Hex())
	default:
		return nil, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}
}

func (s *AlertService) Create(ctx context.Context, in models.AlertInput) (*models.Alert, error) {
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if in.RelatedTo != nil {
		if _, err := s.resolve(ctx, *in.RelatedTo); err != nil {
			return nil, missingRef(err, string(in.RelatedTo.Kind))
		}
	}
	a := &models.Alert{
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Priority:  in.Priority,
		RelatedTo: in.RelatedTo,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.store.Alerts.InsertAlert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AlertService) Update(ctx context.Context, id primitive.ObjectID, upd models.AlertUpdate) (*models.Alert, error) {
	a, err := s.store.Alerts.FindAlertByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Alert")
	}
	if upd.Title != nil {
		a.Title = *upd.Title
	}
	if upd.Message != nil {
		a.Message = *upd.Message
	}
	if upd.Priority != nil {
		a.Priority = *upd.Priority
	}
	if upd.ExpiresAt != nil {
		a.ExpiresAt = upd.ExpiresAt
	}
	if upd.IsRead != nil && *upd.IsRead != a.IsRead {
		a.IsRead = *upd.IsRead
		if a.IsRead {
			now := time.Now()
			a.ReadAt = &now
		} else {
			a.ReadAt = nil
		}
	}
	if err := s.store.Alerts.UpdateAlert(ctx, a); err != nil {
		return nil, notFound(err, "Alert")
	}
	return a, nil
}

func (s *AlertService) MarkRead(ctx context.Context, id primitive.ObjectID) (*models.Alert, error) {
	a, err := s.store.Alerts.MarkAlertRead(ctx, id, time.Now())
	if err != nil {
		return nil, notFound(err, "Alert")
	}
	return a, nil
}

func (s *AlertService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return notFound(s.store.Alerts.DeleteAlert(ctx, id), "Alert")
}

func (s *AlertService) UnreadCount(ctx context.Context) (int64, error) {
	return s.store.Alerts.CountUnread(ctx)
}
