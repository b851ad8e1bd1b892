package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/aivodrive/internal/db"
	"github.com/ukydev/aivodrive/internal/models"
	"github.com/ukydev/aivodrive/internal/response"
	"github.com/ukydev/aivodrive/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// envelope mirrors response.Envelope with the payload left raw.
type envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	StatusCode int                  `json:"statusCode"`
	Data       json.RawMessage      `json:"data"`
	Pagination *response.Pagination `json:"pagination"`
	Error      string               `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	assert.Equal(t, w.Code, env.StatusCode)
	return env
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		dev     bool
		status  int
		message string
		detail  string
	}{
		{"service error", service.Forbidden("You can only access your own trips"), false, http.StatusForbidden, "You can only access your own trips", ""},
		{"validation", &models.ValidationError{Fields: []string{"name is required"}}, false, http.StatusBadRequest, "Validation failed: name is required", ""},
		{"duplicate key", &db.DuplicateKeyError{Field: "licensePlate"}, false, http.StatusBadRequest, "licensePlate already exists", ""},
		{"wrapped not found", fmt.Errorf("load: %w", db.ErrNotFound), false, http.StatusNotFound, "Resource not found", ""},
		{"precondition", db.ErrPreconditionFailed, false, http.StatusBadRequest, "The record was modified by another request, reload and retry", ""},
		{"server error hidden", assert.AnError, false, http.StatusInternalServerError, "Internal server error", ""},
		{"server error in development", assert.AnError, true, http.StatusInternalServerError, "Internal server error", assert.AnError.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			ew := newErrorWriter(logger, tt.dev)
			w := httptest.NewRecorder()

			ew.writeError(w, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, tt.detail, env.Error)
			if tt.status == http.StatusInternalServerError {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, "Request failed", hook.LastEntry().Message)
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestListOptions(t *testing.T) {
	tests := []struct {
		query   string
		want    db.ListOptions
		wantErr bool
	}{
		{"", db.ListOptions{Page: 1, Limit: 10}, false},
		{"page=3&limit=25", db.ListOptions{Page: 3, Limit: 25}, false},
		{"limit=1000", db.ListOptions{Page: 1, Limit: maxLimit}, false},
		{"order=asc", db.ListOptions{Page: 1, Limit: 10, Ascending: true}, false},
		{"page=0", db.ListOptions{}, true},
		{"limit=abc", db.ListOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			opts, err := listOptions(httptest.NewRequest(http.MethodGet, "/api/trips?"+tt.query, nil))
			if tt.wantErr {
				assert.Equal(t, http.StatusBadRequest, service.StatusOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts)
		})
	}
}

func TestDateRange(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/fuel?from=2024-03-01&to=2024-03-31", nil)
	from, to, err := dateRange(r)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), *to)

	r = httptest.NewRequest(http.MethodGet, "/api/fuel?from=2024-03-01T08:00:00Z", nil)
	from, to, err = dateRange(r)
	require.NoError(t, err)
	assert.Equal(t, 8, from.Hour())
	assert.Nil(t, to)

	r = httptest.NewRequest(http.MethodGet, "/api/fuel?from=2024-03-02&to=2024-03-01", nil)
	_, _, err = dateRange(r)
	assert.Equal(t, http.StatusBadRequest, service.StatusOf(err))

	r = httptest.NewRequest(http.MethodGet, "/api/fuel?from=yesterday", nil)
	_, _, err = dateRange(r)
	assert.Equal(t, http.StatusBadRequest, service.StatusOf(err))
}

func TestPathID(t *testing.T) {
	id := primitive.NewObjectID()
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": id.Hex()})
	got, err := pathID(r, "Trip")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "not-an-id"})
	_, err = pathID(r, "Trip")
	assert.Equal(t, http.StatusNotFound, service.StatusOf(err))
	assert.EqualError(t, err, "Trip not found")
}
