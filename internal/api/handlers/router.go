package handlers

import (
	"net/http"
	"strings"

	"github.com/dvloznov/walletflow/internal/api/middleware"
)

// NewRouter registers every endpoint on a new ServeMux.
func NewRouter(diagrams *DiagramsHandler, jobsHandler *JobsHandler, links *LinksHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Diagrams endpoints
	mux.HandleFunc("/api/diagrams", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			diagrams.Render(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/diagrams/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			jobsHandler.CreateJob(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Share links
	mux.HandleFunc("/api/links/decode", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			links.Decode(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", Health)

	return mux
}
