package pipeline

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/documents"
	"github.com/ledgerline/ledgerline/internal/sessions"
	"github.com/ledgerline/ledgerline/pkg/handlers"
	"github.com/ledgerline/ledgerline/pkg/pagination"
	"github.com/ledgerline/ledgerline/pkg/routes"
)

// Handler provides HTTP endpoints for session workflow operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, pagination
// config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "sessions"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/status", Handler: h.Status},
			{Method: "GET", Pattern: "/{id}/result", Handler: h.Result},
			{Method: "GET", Pattern: "/{id}/trace", Handler: h.Trace},
			{Method: "POST", Pattern: "", Handler: h.Start},
			{Method: "POST", Pattern: "/{id}/resume", Handler: h.Resume},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
		},
	}
}

// Start processes a multipart form with an invoice (file field "invoice" or
// pasted form value "invoice_text") and an optional "spreadsheet" file, then
// launches the analysis run.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, documents.ErrFileTooLarge)
		return
	}

	var cmd StartCommand

	if input, ok, err := h.readFormFile(r, "invoice", sessions.InputInvoice); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	} else if ok {
		cmd.Inputs = append(cmd.Inputs, input)
	} else if text := strings.TrimSpace(r.FormValue("invoice_text")); text != "" {
		cmd.Inputs = append(cmd.Inputs, StartInput{
			Kind:     sessions.InputInvoice,
			Filename: "pasted-invoice.txt",
			Text:     text,
		})
	}

	if input, ok, err := h.readFormFile(r, "spreadsheet", sessions.InputSpreadsheet); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	} else if ok {
		cmd.Inputs = append(cmd.Inputs, input)
	}

	sess, err := h.sys.Start(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, sess)
}

// List returns a paginated list of session summaries, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the full session record by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sess)
}

// Status returns the live per-stage status of a session.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	report, err := h.sys.Status(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Result returns the committed outputs of a completed session.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.sys.Result(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Trace returns the session trace including live events from a run in flight.
func (h *Handler) Trace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	events, err := h.sys.Trace(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, events)
}

// Resume relaunches a failed or pending session from its last checkpoint.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.sys.Resume(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, sess)
}

// Cancel requests cooperative cancellation of a running session.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.sys.Cancel(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, sessions.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// readFormFile reads an optional multipart file field. The second return
// reports whether the field was present.
func (h *Handler) readFormFile(
	r *http.Request,
	field string,
	kind sessions.InputKind,
) (StartInput, bool, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return StartInput{}, false, nil
	}
	if err != nil {
		return StartInput{}, false, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return StartInput{}, false, err
	}

	return StartInput{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: formContentType(header, data),
		Data:        data,
	}, true, nil
}

func formContentType(header *multipart.FileHeader, data []byte) string {
	ct := strings.TrimSpace(header.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return http.DetectContentType(data)
}
