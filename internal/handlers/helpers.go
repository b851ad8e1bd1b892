// Package handlers exposes the fleet services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/middleware"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 10
	maxLimit     = 100
)

// errorWriter translates errors into envelopes. Server error details are
// only exposed in development.
type errorWriter struct {
	log *log.Logger
	dev bool
}

func newErrorWriter(logger *log.Logger, dev bool) errorWriter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return errorWriter{log: logger, dev: dev}
}

func (e errorWriter) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		serr *service.Error
		verr *models.ValidationError
		dup  *db.DuplicateKeyError
	)
	switch {
	case errors.As(err, &serr):
		response.Error(w, serr.Status, serr.Message, "")
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "Validation failed: "+verr.Error(), "")
	case errors.As(err, &dup):
		response.Error(w, http.StatusBadRequest, dup.Field+" already exists", "")
	case errors.Is(err, db.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Resource not found", "")
	case errors.Is(err, db.ErrPreconditionFailed):
		response.Error(w, http.StatusBadRequest, "The record was modified by another request, reload and retry", "")
	default:
		e.log.WithError(err).WithFields(log.Fields{
			"request_id": middleware.GetRequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("Request failed")
		detail := ""
		if e.dev {
			detail = err.Error()
		}
		response.Error(w, http.StatusInternalServerError, "Internal server error", detail)
	}
}

// readBody reads the request body with a size cap.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, service.Validation("Failed to read request body")
	}
	return body, nil
}

// decode unmarshals body into dst and validates it.
func decode(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return service.Validation("Invalid JSON: %v", err)
	}
	return models.Validate(dst)
}

// decodeRequest reads, unmarshals and validates the request body.
func decodeRequest(r *http.Request, dst interface{}) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	return decode(body, dst)
}

// pathID parses the {id} route variable. A malformed id is reported as not
// found, like an unknown one.
func pathID(r *http.Request, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, service.NotFound(what)
	}
	return id, nil
}

func actorOf(r *http.Request) (service.Actor, error) {
	claims, _ := middleware.GetUserFromContext(r.Context())
	return service.ActorFromClaims(claims)
}

// listOptions reads page and limit, defaulting to the first page of 10.
func listOptions(r *http.Request) (db.ListOptions, error) {
	q := r.URL.Query()
	opts := db.ListOptions{Page: 1, Limit: defaultLimit}
	if s := q.Get("page"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return opts, service.Validation("page must be a positive integer")
		}
		opts.Page = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return opts, service.Validation("limit must be a positive integer")
		}
		if n > maxLimit {
			n = maxLimit
		}
		opts.Limit = n
	}
	opts.Ascending = q.Get("order") == "asc"
	return opts, nil
}

// queryID parses an optional ObjectID query parameter.
func queryID(r *http.Request, key string) (*primitive.ObjectID, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, service.Validation("%s must be a valid id", key)
	}
	return &id, nil
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, service.Validation("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", key)
	}
	return &t, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// dateRange reads the from/to query pair. A date-only "to" covers the
// whole day.
func dateRange(r *http.Request) (from, to *time.Time, err error) {
	if from, err = queryTime(r, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = queryTime(r, "to"); err != nil {
		return nil, nil, err
	}
	if to != nil && len(r.URL.Query().Get("to")) == len("2006-01-02") {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, service.Validation("from must not be after to")
	}
	return from, to, nil
}

func paginated[T any](w http.ResponseWriter, what string, page service.Page[T]) {
	response.Paginated(w, fmt.Sprintf("%s retrieved successfully", what), page.Items,
		response.NewPagination(page.Page, page.Limit, page.Total))
}
