package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/walletflow/internal/api/middleware"
	"github.com/dvloznov/walletflow/internal/csvimport"
	"github.com/dvloznov/walletflow/internal/jobs"
	"github.com/dvloznov/walletflow/internal/renderer"
)

// DiagramsHandler handles synchronous diagram rendering.
type DiagramsHandler struct {
	service      *renderer.Service
	maxBodyBytes int64
	log          zerolog.Logger
}

// NewDiagramsHandler creates a new diagrams handler. A non-positive
// maxBodyBytes uses DefaultMaxBodyBytes.
func NewDiagramsHandler(service *renderer.Service, maxBodyBytes int64, log zerolog.Logger) *DiagramsHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &DiagramsHandler{
		service:      service,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

// diagramRequest is the JSON body of POST /api/diagrams.
type diagramRequest struct {
	Records    []recordInput      `json:"records"`
	Options    jobs.RenderOptions `json:"options"`
	Currencies []string           `json:"currencies"`
}

// Render handles POST /api/diagrams. The body is either JSON records or a
// Koinly CSV export sent as text/csv with options in the query string.
func (h *DiagramsHandler) Render(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" || mediaType == "application/csv" {
		h.renderCSV(w, r)
		return
	}

	var body diagramRequest
	if !decodeJSON(w, r, h.maxBodyBytes, &body) {
		return
	}

	opts, err := renderer.JobOptions(body.Options)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := renderer.Request{
		Options:    opts,
		Currencies: append(body.Options.Currencies, body.Currencies...),
	}
	for _, in := range body.Records {
		req.Records = append(req.Records, in.record())
	}

	result, err := h.service.Render(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render diagram")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render diagram")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *DiagramsHandler) renderCSV(w http.ResponseWriter, r *http.Request) {
	options, err := optionsFromQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := renderer.JobOptions(options)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	result, err := h.service.RenderCSV(r.Context(), body, renderer.Request{
		Options:    opts,
		Currencies: options.Currencies,
	})
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, result)
	case isTooLarge(err):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, csvimport.ErrNotKoinlyCSV), errors.Is(err, csvimport.ErrMissingColumn):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg("Failed to render CSV export")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read CSV export")
	}
}

// optionsFromQuery reads period, offset, notes and currencies.
func optionsFromQuery(q url.Values) (jobs.RenderOptions, error) {
	opts := jobs.RenderOptions{
		AggregatePeriod: q.Get("period"),
		Currencies:      csvimport.SplitCodes(q.Get("currencies")),
	}

	parseBool := func(name string) (*bool, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", name, raw)
		}
		return &v, nil
	}

	var err error
	if opts.Offset, err = parseBool("offset"); err != nil {
		return jobs.RenderOptions{}, err
	}
	if opts.ShowNotes, err = parseBool("notes"); err != nil {
		return jobs.RenderOptions{}, err
	}
	return opts, nil
}
