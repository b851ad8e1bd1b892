// Package alerts derives dashboard alerts from the current fleet state.
package alerts

import (
	"fmt"
	"time"

	"github.com/ukydev/aivodrive/internal/models"
)

const (
	serviceIntervalMonths = 3
	vehicleDocWindow      = 30 * 24 * time.Hour
	licenceWindow         = 60 * 24 * time.Hour
	tripDelayAfter        = 3 * time.Hour
)

// Snapshot is the state the rules run over.
type Snapshot struct {
	Now                  time.Time
	Vehicles             []models.Vehicle
	Drivers              []models.Driver
	RunningTrips         []models.Trip
	ScheduledMaintenance []models.Maintenance
}

// Rule maps a snapshot to the alerts it implies.
type Rule func(Snapshot) []models.Alert

// Rules is every rule applied by Derive, in output order.
var Rules = []Rule{
	ServiceOverdue,
	VehicleDocuments,
	DriverLicences,
	TripDelays,
	MaintenanceOverdue,
}

// Derive applies every rule to s. All results are marked Generated.
func Derive(s Snapshot) []models.Alert {
	out := []models.Alert{}
	for _, rule := range Rules {
		for _, a := range rule(s) {
			a.Generated = true
			out = append(out, a)
		}
	}
	return out
}

// ServiceOverdue flags vehicles never serviced or not serviced in three months.
func ServiceOverdue(s Snapshot) []models.Alert {
	cutoff := s.Now.AddDate(0, -serviceIntervalMonths, 0)
	var out []models.Alert
	for _, v := range s.Vehicles {
		if v.Status == models.VehicleInactive {
			continue
		}
		var msg string
		switch {
		case v.LastServiceDate == nil:
			msg = fmt.Sprintf("%s %s (%s) has no recorded service", v.Make, v.Model, v.LicensePlate)
		case v.LastServiceDate.Before(cutoff):
			msg = fmt.Sprintf("%s %s (%s) was last serviced on %s", v.Make, v.Model, v.LicensePlate, v.LastServiceDate.Format("2006-01-02"))
		default:
			continue
		}
		out = append(out, models.Alert{
			Type:      models.AlertMaintenanceDue,
			Title:     "Vehicle service due",
			Message:   msg,
			Priority:  models.PriorityMedium,
			RelatedTo: &models.EntityRef{Kind: models.KindVehicle, ID: v.ID},
		})
	}
	return out
}

// expiry classifies a document expiry date; ok is false outside the window.
func expiry(now time.Time, at *time.Time, window time.Duration) (p models.Priority, expired, ok bool) {
	if at == nil {
		return "", false, false
	}
	if at.Before(now) {
		return models.PriorityCritical, true, true
	}
	if at.Sub(now) <= window {
		return models.PriorityHigh, false, true
	}
	return "", false, false
}

func expiryMessage(subject, doc string, at time.Time, expired bool) string {
	if expired {
		return fmt.Sprintf("%s %s expired on %s", subject, doc, at.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s %s expires on %s", subject, doc, at.Format("2006-01-02"))
}

// VehicleDocuments flags registrations and insurance expiring within 30 days.
func VehicleDocuments(s Snapshot) []models.Alert {
	var out []models.Alert
	for _, v := range s.Vehicles {
		subject := fmt.Sprintf("%s %s (%s)", v.Make, v.Model, v.LicensePlate)
		docs := []struct {
			name string
			at   *time.Time
		}{
			{"registration", v.RegistrationExpiry},
			{"insurance", v.InsuranceExpiry},
		}
		for _, d := range docs {
			p, expired, ok := expiry(s.Now, d.at, vehicleDocWindow)
			if !ok {
				continue
			}
			exp := *d.at
			out = append(out, models.Alert{
				Type:      models.AlertDocumentExpiry,
				Title:     "Vehicle " + d.name + " expiring",
				Message:   expiryMessage(subject, d.name, exp, expired),
				Priority:  p,
				RelatedTo: &models.EntityRef{Kind: models.KindVehicle, ID: v.ID},
				ExpiresAt: &exp,
			})
		}
	}
	return out
}

// DriverLicences flags driving licences expiring within 60 days.
func DriverLicences(s Snapshot) []models.Alert {
	var out []models.Alert
	for _, d := range s.Drivers {
		if d.Status == models.DriverInactive {
			continue
		}
		exp := d.LicenseExpiry
		p, expired, ok := expiry(s.Now, &exp, licenceWindow)
		if !ok {
			continue
		}
		out = append(out, models.Alert{
			Type:      models.AlertDocumentExpiry,
			Title:     "Driver licence expiring",
			Message:   expiryMessage(d.Name, "licence "+d.LicenseNumber, exp, expired),
			Priority:  p,
			RelatedTo: &models.EntityRef{Kind: models.KindDriver, ID: d.ID},
			ExpiresAt: &exp,
		})
	}
	return out
}

// TripDelays flags trips running for more than three hours.
func TripDelays(s Snapshot) []models.Alert {
	var out []models.Alert
	for _, t := range s.RunningTrips {
		if t.Status != models.TripInProgress || s.Now.Sub(t.StartTime) <= tripDelayAfter {
			continue
		}
		hours := s.Now.Sub(t.StartTime).Hours()
		out = append(out, models.Alert{
			Type:      models.AlertTripDelay,
			Title:     "Trip running late",
			Message:   fmt.Sprintf("Trip to %s has been in progress for %.1f hours", t.Destination.Address, hours),
			Priority:  models.PriorityHigh,
			RelatedTo: &models.EntityRef{Kind: models.KindTrip, ID: t.ID},
		})
	}
	return out
}

// MaintenanceOverdue flags scheduled maintenance whose date has passed.
func MaintenanceOverdue(s Snapshot) []models.Alert {
	var out []models.Alert
	for _, m := range s.ScheduledMaintenance {
		if m.Status != models.MaintenanceScheduled || m.DateScheduled == nil || !m.DateScheduled.Before(s.Now) {
			continue
		}
		out = append(out, models.Alert{
			Type:      models.AlertMaintenanceOverdue,
			Title:     "Maintenance overdue",
			Message:   fmt.Sprintf("%s scheduled for %s has not started", m.Description, m.DateScheduled.Format("2006-01-02")),
			Priority:  models.PriorityHigh,
			RelatedTo: &models.EntityRef{Kind: models.KindMaintenance, ID: m.ID},
		})
	}
	return out
}
