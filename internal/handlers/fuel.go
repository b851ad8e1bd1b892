package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// FuelHandler serves /api/fuel.
type FuelHandler struct {
	errorWriter
	fuel *service.FuelService
}

func NewFuelHandler(fuel *service.FuelService, logger *log.Logger, dev bool) *FuelHandler {
	return &FuelHandler{errorWriter: newErrorWriter(logger, dev), fuel: fuel}
}

func fuelFilter(r *http.Request) (db.FuelFilter, error) {
	var (
		f   db.FuelFilter
		err error
	)
	if f.VehicleID, err = queryID(r, "vehicleId"); err != nil {
		return f, err
	}
	if f.DriverID, err = queryID(r, "driverId"); err != nil {
		return f, err
	}
	f.From, f.To, err = dateRange(r)
	return f, err
}

func (h *FuelHandler) List(w http.ResponseWriter, r *http.Request) {
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
	filter, err := fuelFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.fuel.List(r.Context(), actor, filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Fuel records", page)
}

func (h *FuelHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := pathID(r, "Fuel record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.fuel.Get(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fuel record retrieved successfully", f)
}

func (h *FuelHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.FuelInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.fuel.Create(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Fuel record created successfully", f)
}

func (h *FuelHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Fuel record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd models.FuelUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.fuel.Update(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fuel record updated successfully", f)
}

func (h *FuelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Fuel record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.fuel.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fuel record deleted successfully", nil)
}

func (h *FuelHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := fuelFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.fuel.Stats(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fuel statistics retrieved successfully", stats)
}

// EfficiencyReport ranks vehicles by distance per litre over from..to.
func (h *FuelHandler) EfficiencyReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.fuel.EfficiencyReport(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Fuel efficiency report generated successfully", rows)
}
