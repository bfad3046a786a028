package leads

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadflow/internal/http/envelope"
	"github.com/wolfman30/leadflow/pkg/logging"
)

const maxBodyBytes = 1 << 20

// Handler handles HTTP requests for leads
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Routes mounts the lead endpoints; the router serves them under /api/leads.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListLeads)
	r.Post("/", h.CreateLead)
	r.Get("/stats", h.GetStats)
	r.Get("/{id}", h.GetLead)
	r.Put("/{id}", h.UpdateLead)
	r.Delete("/{id}", h.DeleteLead)
	return r
}

// ListLeads handles GET /api/leads
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.List(r.Context(), ParseListParams(r.URL.Query()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	envelope.OK(w, http.StatusOK, result, "")
}

// GetStats handles GET /api/leads/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	envelope.OK(w, http.StatusOK, stats, "")
}

// GetLead handles GET /api/leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	envelope.OK(w, http.StatusOK, lead, "")
}

// CreateLead handles POST /api/leads
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}

	lead, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	envelope.OK(w, http.StatusCreated, lead, "Lead created successfully")
}

// UpdateLead handles PUT /api/leads/{id}
func (h *Handler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeadRequest
	if !h.decode(w, r, &req) {
		return
	}

	lead, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	envelope.OK(w, http.StatusOK, lead, "Lead updated successfully")
}

// DeleteLead handles DELETE /api/leads/{id}
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	envelope.Message(w, http.StatusOK, "Lead deleted successfully")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		envelope.Fail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeError maps a service failure onto a status code. Store failures are
// already logged by the service.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch KindOf(err) {
	case KindValidation, KindConflict:
		status = http.StatusBadRequest
	case KindNotFound:
		status = http.StatusNotFound
	case KindUnexpected:
		status = http.StatusInternalServerError
	}
	envelope.Fail(w, status, MessageOf(err))
}
