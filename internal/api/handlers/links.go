package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/walletflow/internal/api/middleware"
	"github.com/dvloznov/walletflow/internal/mermaid"
)

// LinksHandler decodes mermaid.live share links.
type LinksHandler struct {
	log zerolog.Logger
}

// NewLinksHandler creates a new links handler.
func NewLinksHandler(log zerolog.Logger) *LinksHandler {
	return &LinksHandler{log: log}
}

// Decode handles POST /api/links/decode
func (h *LinksHandler) Decode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}

	if !decodeJSON(w, r, DefaultMaxBodyBytes, &req) {
		return
	}

	if req.URL == "" {
		middleware.WriteError(w, http.StatusBadRequest, "url is required")
		return
	}

	diagram, err := mermaid.Decode(req.URL)
	if err != nil {
		h.log.Debug().Err(err).Msg("Rejected share link")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"diagram": diagram,
	})
}
