package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/db"
)

// AlertHandler implements the Alert state-machine transitions named in the
// Alert module: acknowledge (monotonic) and the orthogonal mute toggle.
// Listing is mounted separately under each API (see ApiHandler.Routes).
type AlertHandler struct {
	queries *db.Queries
	logger  *slog.Logger
}

// NewAlertHandler builds an AlertHandler.
func NewAlertHandler(queries *db.Queries, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{queries: queries, logger: logger}
}

// Routes returns the chi.Router to mount at /alerts.
func (h *AlertHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/acknowledge", h.handleAcknowledge)
	r.Post("/{id}/mute", h.handleSetMuted)
	return r
}

// alertResponse is the Alert record as returned to the management surface.
// color follows the same severity convention as the email/webhook templates.
type alertResponse struct {
	ID              string  `json:"id"`
	ApiID           string  `json:"api_id"`
	LogID           *int64  `json:"log_id,omitempty"`
	Kind            string  `json:"kind"`
	Severity        string  `json:"severity"`
	Color           string  `json:"color"`
	Score           float64 `json:"score"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Acknowledged    bool    `json:"acknowledged"`
	Muted           bool    `json:"muted"`
	AcknowledgedBy  *string `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *string `json:"acknowledged_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toAlertResponse(a db.Alert) alertResponse {
	resp := alertResponse{
		ID:           a.ID.String(),
		ApiID:        a.ApiID.String(),
		LogID:        a.LogID,
		Kind:         a.Kind,
		Severity:     a.Severity,
		Color:        severityColor(a.Severity),
		Score:        a.Score,
		Title:        a.Title,
		Description:  a.Description,
		Acknowledged: a.Acknowledged,
		Muted:        a.Muted,
		CreatedAt:    a.CreatedAt.Format(timeFormat),
	}
	if a.AcknowledgedBy != nil {
		s := a.AcknowledgedBy.String()
		resp.AcknowledgedBy = &s
	}
	if a.AcknowledgedAt != nil {
		s := a.AcknowledgedAt.Format(timeFormat)
		resp.AcknowledgedAt = &s
	}
	return resp
}

// severityColor mirrors the alert module's normalizeSeverity-style color
// mapping: red for critical, amber otherwise — including the reserved
// low/high bands, which the engine never constructs but which downstream
// readers must still render sensibly.
func severityColor(severity string) string {
	if severity == "critical" {
		return "#d32f2f"
	}
	return "#ff9800"
}

func (h *AlertHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	alert, err := h.queries.GetAlert(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	Respond(w, http.StatusOK, toAlertResponse(alert))
}

type acknowledgeAlertRequest struct {
	AcknowledgedBy string `json:"acknowledged_by" validate:"required,uuid"`
}

func (h *AlertHandler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req acknowledgeAlertRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}
	by, err := uuid.Parse(req.AcknowledgedBy)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", "acknowledged_by must be a valid UUID")
		return
	}

	alert, err := h.queries.AcknowledgeAlert(r.Context(), id, by)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	Respond(w, http.StatusOK, toAlertResponse(alert))
}

type setMutedRequest struct {
	Muted *bool `json:"muted" validate:"required"`
}

func (h *AlertHandler) handleSetMuted(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req setMutedRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	alert, err := h.queries.SetAlertMuted(r.Context(), id, *req.Muted)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	Respond(w, http.StatusOK, toAlertResponse(alert))
}

func (h *AlertHandler) respondLookupError(w http.ResponseWriter, err error) {
	if db.IsNotFound(err) {
		RespondError(w, http.StatusNotFound, "not_found", "alert not found")
		return
	}
	h.logger.Error("alert lookup failed", "error", err)
	RespondError(w, http.StatusInternalServerError, "internal_error", "storage error")
}
