package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// VehicleHandler serves /api/vehicles.
type VehicleHandler struct {
	errorWriter
	vehicles *service.VehicleService
}

func NewVehicleHandler(vehicles *service.VehicleService, logger *log.Logger, dev bool) *VehicleHandler {
	return &VehicleHandler{errorWriter: newErrorWriter(logger, dev), vehicles: vehicles}
}

// List supports status, fuelType and search (make, model or plate).
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := db.VehicleFilter{
		Status:   models.VehicleStatus(q.Get("status")),
		FuelType: q.Get("fuelType"),
		Search:   q.Get("search"),
	}
	page, err := h.vehicles.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Vehicles", page)
}

func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Vehicle")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.vehicles.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Vehicle retrieved successfully", v)
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.VehicleInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.vehicles.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Vehicle created successfully", v)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Vehicle")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd models.VehicleUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.vehicles.Update(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Vehicle updated successfully", v)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Vehicle")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.vehicles.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Vehicle deleted successfully", nil)
}

func (h *VehicleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.vehicles.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Vehicle statistics retrieved successfully", stats)
}
