package handlers

import (
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
)

// AlertHandler serves /api/alerts.
type AlertHandler struct {
	errorWriter
	alerts *service.AlertService
}

func NewAlertHandler(alerts *service.AlertService, logger *log.Logger, dev bool) *AlertHandler {
	return &AlertHandler{errorWriter: newErrorWriter(logger, dev), alerts: alerts}
}

// List supports type, priority and isRead.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := db.AlertFilter{
		Type:     models.AlertType(q.Get("type")),
		Priority: models.Priority(q.Get("priority")),
	}
	if s := q.Get("isRead"); s != "" {
		read, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, r, service.Validation("isRead must be true or false"))
			return
		}
		filter.IsRead = &read
	}
	page, err := h.alerts.List(r.Context(), filter, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paginated(w, "Alerts", page)
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Alert")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.alerts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Alert retrieved successfully", a)
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.AlertInput
	if err := decodeRequest(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.alerts.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, "Alert created successfully", a)
}

func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Alert")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var upd models.AlertUpdate
	if err := decodeRequest(r, &upd); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.alerts.Update(r.Context(), id, upd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Alert updated successfully", a)
}

func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Alert")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.alerts.MarkRead(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Alert marked as read", a)
}

func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Alert")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.alerts.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Alert deleted successfully", nil)
}

func (h *AlertHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.alerts.UnreadCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, "Unread alert count retrieved successfully", map[string]int64{"count": n})
}
