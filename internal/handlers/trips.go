package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// TripHandler serves /api/trips. Drivers are scoped to their own trips by
// the trip service.
type TripHandler struct {
	errorWriter
	trips *service.TripService
}

func NewTripHandler(trips *service.TripService, logger *log.Logger, dev bool) *TripHandler {
	return &TripHandler{errorWriter: newErrorWriter(logger, dev), trips: trips}
}

// List supports status, vehicleId, driverId, from and to.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter, err := tripFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.trips.List(r.Context(), actor, filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Trips", page)
}

func tripFilter(r *http.Request) (db.TripFilter, error) {
	f := db.TripFilter{Status: models.TripStatus(r.URL.Query().Get("status"))}
	var err error
	if f.VehicleID, err = queryID(r, "vehicleId"); err != nil {
		return f, err
	}
	if f.DriverID, err = queryID(r, "driverId"); err != nil {
		return f, err
	}
	f.From, f.To, err = dateRange(r)
	return f, err
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "Trip")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	trip, err := h.trips.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Trip retrieved successfully", trip)
}

func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.TripInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	trip, err := h.trips.Create(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Trip created successfully", trip)
}

// Update applies a partial update. A driver's body may only name status,
// actualDistance and notes; any other key is refused before decoding.
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "Trip")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if actor.IsDriver() {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			h.writeError(w, r, service.Validation("Invalid JSON: %v", err))
			return
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		if err := service.CheckDriverTripFields(keys); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	var upd models.TripUpdate
	if err := decode(body, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	trip, err := h.trips.Update(r.Context(), actor, id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Trip updated successfully", trip)
}

func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Trip")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.trips.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Trip deleted successfully", nil)
}

func (h *TripHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.trips.Stats(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Trip statistics retrieved successfully", stats)
}
