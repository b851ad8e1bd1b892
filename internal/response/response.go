// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination derives the page count from total and limit.
func NewPagination(page, limit, total int64) *Pagination {
	p := &Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.Pages = (total + limit - 1) / limit
	} else if total > 0 {
		p.Pages = 1
	}
	return p
}

// JSON writes env with its status code.
func JSON(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}

func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, Envelope{Success: true, Message: message, StatusCode: status, Data: data})
}

func Paginated(w http.ResponseWriter, message string, data interface{}, p *Pagination) {
	JSON(w, Envelope{Success: true, Message: message, StatusCode: http.StatusOK, Data: data, Pagination: p})
}

// Error writes a failure envelope. detail is only set by callers running in
// development mode.
func Error(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, Envelope{Success: false, Message: message, StatusCode: status, Error: detail})
}
