package httpserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/secretbox"
)

// ApiHandler implements the API Registration CRUD surface. owner is accepted
// as an opaque user id on the request body — user identity/session
// management is out of scope, so this handler treats `users` purely as an FK
// target it never validates beyond the foreign-key constraint itself.
type ApiHandler struct {
	queries *db.Queries
	box     *secretbox.Box
	logger  *slog.Logger
}

// NewApiHandler builds an ApiHandler.
func NewApiHandler(queries *db.Queries, box *secretbox.Box, logger *slog.Logger) *ApiHandler {
	return &ApiHandler{queries: queries, box: box, logger: logger}
}

// Routes returns the chi.Router to mount at /apis.
func (h *ApiHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleSetActive)
	r.Delete("/{id}", h.handleDelete)
	r.Get("/{id}/alerts", h.handleListAlerts)
	return r
}

type createApiRequest struct {
	OwnerID string  `json:"owner_id" validate:"required,uuid"`
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	BaseURL *string `json:"base_url" validate:"omitempty,url"`
}

// apiResponse is the API Registration record as returned to the management
// surface. The ingest key is returned in full only here — it is the
// credential agents configure once and never reread from this API.
type apiResponse struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"owner_id"`
	Name      string  `json:"name"`
	IngestKey string  `json:"ingest_key"`
	BaseURL   *string `json:"base_url,omitempty"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
}

// createApiResponse additionally carries the plaintext secret, issued once
// at creation time and never retrievable again (only its encrypted form is
// persisted).
type createApiResponse struct {
	apiResponse
	Secret string `json:"secret"`
}

func toApiResponse(a db.Api) apiResponse {
	return apiResponse{
		ID:        a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Name:      a.Name,
		IngestKey: a.IngestKey,
		BaseURL:   a.BaseURL,
		Active:    a.Active,
		CreatedAt: a.CreatedAt.Format(timeFormat),
	}
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func (h *ApiHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createApiRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", "owner_id must be a valid UUID")
		return
	}

	ingestKey, err := randomToken(24)
	if err != nil {
		h.logger.Error("generating ingest key", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to generate ingest key")
		return
	}
	secret, err := randomToken(32)
	if err != nil {
		h.logger.Error("generating api secret", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to generate api secret")
		return
	}
	encrypted, err := h.box.Seal([]byte(secret))
	if err != nil {
		h.logger.Error("sealing api secret", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to seal api secret")
		return
	}

	api, err := h.queries.CreateApi(r.Context(), db.CreateApiParams{
		OwnerID:         ownerID,
		Name:            req.Name,
		IngestKey:       ingestKey,
		EncryptedSecret: encrypted,
		BaseURL:         req.BaseURL,
	})
	if err != nil {
		h.logger.Error("creating api", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create api")
		return
	}

	Respond(w, http.StatusCreated, createApiResponse{apiResponse: toApiResponse(api), Secret: secret})
}

func (h *ApiHandler) handleList(w http.ResponseWriter, r *http.Request) {
	apis, err := h.queries.ListApis(r.Context())
	if err != nil {
		h.logger.Error("listing apis", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list apis")
		return
	}

	out := make([]apiResponse, 0, len(apis))
	for _, a := range apis {
		out = append(out, toApiResponse(a))
	}
	Respond(w, http.StatusOK, out)
}

func (h *ApiHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	api, err := h.queries.GetApiByID(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err, "api")
		return
	}
	Respond(w, http.StatusOK, toApiResponse(api))
}

type setApiActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *ApiHandler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req setApiActiveRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	api, err := h.queries.SetApiActive(r.Context(), id, *req.Active)
	if err != nil {
		h.respondLookupError(w, err, "api")
		return
	}
	Respond(w, http.StatusOK, toApiResponse(api))
}

func (h *ApiHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.queries.DeleteApi(r.Context(), id); err != nil {
		h.respondLookupError(w, err, "api")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApiHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	alerts, err := h.queries.ListAlertsByApi(r.Context(), id)
	if err != nil {
		h.logger.Error("listing alerts for api", "api_id", id, "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list alerts")
		return
	}

	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	Respond(w, http.StatusOK, out)
}

func (h *ApiHandler) respondLookupError(w http.ResponseWriter, err error, resource string) {
	if db.IsNotFound(err) {
		RespondError(w, http.StatusNotFound, "not_found", resource+" not found")
		return
	}
	h.logger.Error("api lookup failed", "resource", resource, "error", err)
	RespondError(w, http.StatusInternalServerError, "internal_error", "storage error")
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("%s must be a valid UUID", name))
		return uuid.UUID{}, false
	}
	return id, true
}

// randomToken returns a high-entropy hex-encoded token of n random bytes,
// suitable for both ingest keys and issued secrets.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
