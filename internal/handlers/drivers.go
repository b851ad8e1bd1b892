package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// DriverHandler serves /api/drivers.
type DriverHandler struct {
	errorWriter
	drivers *service.DriverService
}

func NewDriverHandler(drivers *service.DriverService, logger *log.Logger, dev bool) *DriverHandler {
	return &DriverHandler{errorWriter: newErrorWriter(logger, dev), drivers: drivers}
}

func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := db.DriverFilter{
		Status: models.DriverStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	page, err := h.drivers.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Drivers", page)
}

func (h *DriverHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Driver")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.drivers.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Driver retrieved successfully", d)
}

func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.DriverInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.drivers.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Driver created successfully", d)
}

func (h *DriverHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Driver")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd models.DriverUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.drivers.Update(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Driver updated successfully", d)
}

func (h *DriverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Driver")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.drivers.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Driver deleted successfully", nil)
}

func (h *DriverHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.drivers.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Driver statistics retrieved successfully", stats)
}
