package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/handlers"
)

// CORS answers preflight requests and sets the allow headers for origin.
// "*" allows any origin; a comma separated list allows each entry and lets
// those origins send credentials.
func CORS(origin string) func(http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader, "Retry-After"}),
		handlers.OptionStatusCode(http.StatusNoContent),
		handlers.MaxAge(600),
	}
	if !slices.Contains(origins, "*") {
		opts = append(opts, handlers.AllowCredentials())
	}
	return handlers.CORS(opts...)
}
