package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Welcome)

	// Project proxy routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", h.MissingProjectID)
	api.HandleFunc("/{id}", h.GetProject).Methods("GET", "HEAD", "POST", "OPTIONS")

	// CORS middleware
	api.Use(corsMiddleware)

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)

	return h.requestLogger(r)
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
