package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// MaintenanceHandler serves /api/maintenance.
type MaintenanceHandler struct {
	errorWriter
	maintenance *service.MaintenanceService
}

func NewMaintenanceHandler(maintenance *service.MaintenanceService, logger *log.Logger, dev bool) *MaintenanceHandler {
	return &MaintenanceHandler{errorWriter: newErrorWriter(logger, dev), maintenance: maintenance}
}

func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := db.MaintenanceFilter{Status: models.MaintenanceStatus(r.URL.Query().Get("status"))}
	if filter.VehicleID, err = queryID(r, "vehicleId"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.From, filter.To, err = dateRange(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.maintenance.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Maintenance records", page)
}

func (h *MaintenanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Maintenance record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.maintenance.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Maintenance record retrieved successfully", m)
}

func (h *MaintenanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in models.MaintenanceInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.maintenance.Create(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Maintenance record created successfully", m)
}

func (h *MaintenanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Maintenance record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd models.MaintenanceUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.maintenance.Update(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Maintenance record updated successfully", m)
}

func (h *MaintenanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Maintenance record")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.maintenance.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Maintenance record deleted successfully", nil)
}

func (h *MaintenanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.maintenance.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Maintenance statistics retrieved successfully", stats)
}
