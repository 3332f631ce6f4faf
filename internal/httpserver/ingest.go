package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/detect"
	"github.com/corvidwatch/sentrywatch/internal/engine"
	"github.com/corvidwatch/sentrywatch/internal/livebus"
	"github.com/corvidwatch/sentrywatch/internal/telemetry"
)

// IngestRequest is the per-request telemetry payload an agent or sidecar
// ships to the data plane.
type IngestRequest struct {
	APIKey     string          `json:"api_key" validate:"required"`
	Ts         float64         `json:"ts" validate:"required"`
	Method     string          `json:"method" validate:"required"`
	Endpoint   string          `json:"endpoint" validate:"required"`
	ClientIP   string          `json:"client_ip" validate:"required"`
	StatusCode *int32          `json:"status_code"`
	LatencyMs  *float64        `json:"latency_ms"`
	Headers    json.RawMessage `json:"headers"`
	BodySize   *int32          `json:"body_size"`
	UserAgent  *string         `json:"user_agent"`
}

// IngestResponse is returned on successful ingestion.
type IngestResponse struct {
	Status       string  `json:"status"`
	LogID        int64   `json:"log_id"`
	IsSuspicious bool    `json:"is_suspicious"`
	RiskScore    float64 `json:"risk_score"`
}

// IngestHandler implements the ingestion contract in full: authenticate the
// ingest key, persist the request log, invoke the detection engine, flip
// suspicious_flag when warranted, and broadcast a live event — all without
// ever letting a detector failure escape to the caller.
type IngestHandler struct {
	queries *db.Queries
	engine  *engine.Engine
	bus     *livebus.Bus
	logger  *slog.Logger
}

// NewIngestHandler builds an IngestHandler.
func NewIngestHandler(queries *db.Queries, eng *engine.Engine, bus *livebus.Bus, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{queries: queries, engine: eng, bus: bus, logger: logger}
}

// liveEvent is the JSON shape pushed to every /ws/live subscriber.
type liveEvent struct {
	Type         string  `json:"type"`
	ID           int64   `json:"id"`
	ApiID        string  `json:"api_id"`
	Ts           float64 `json:"ts"`
	Method       string  `json:"method"`
	Endpoint     string  `json:"endpoint"`
	ClientIP     string  `json:"client_ip"`
	StatusCode   *int32  `json:"status_code"`
	IsSuspicious bool    `json:"is_suspicious"`
	RiskScore    float64 `json:"risk_score"`
}

// Handle implements POST /api/ingest.
func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()

	api, err := h.queries.GetApiByIngestKey(ctx, req.APIKey)
	if err != nil {
		if db.IsNotFound(err) {
			RespondError(w, http.StatusUnauthorized, "unauthorized", "unknown api key")
			return
		}
		h.logger.Error("resolving ingest key", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to resolve api key")
		return
	}
	if !api.Active {
		RespondError(w, http.StatusForbidden, "forbidden", "api is not active")
		return
	}

	headers := req.Headers
	if headers == nil {
		headers = json.RawMessage(`{}`)
	}
	var bodySize int32
	if req.BodySize != nil {
		bodySize = *req.BodySize
	}

	log, err := h.queries.CreateRequestLog(ctx, db.CreateRequestLogParams{
		ApiID:      api.ID,
		Ts:         req.Ts,
		Method:     req.Method,
		Endpoint:   req.Endpoint,
		ClientIP:   req.ClientIP,
		StatusCode: req.StatusCode,
		LatencyMs:  req.LatencyMs,
		Headers:    headers,
		BodySize:   bodySize,
		UserAgent:  req.UserAgent,
	})
	if err != nil {
		h.logger.Error("persisting request log", "api_id", api.ID, "error", err)
		RespondError(w, http.StatusInternalServerError, "internal_error", "failed to persist request log")
		return
	}

	result := h.engine.Process(ctx, detect.Record{
		LogID:      log.ID,
		ApiID:      api.ID,
		Ts:         req.Ts,
		Method:     req.Method,
		Endpoint:   req.Endpoint,
		ClientIP:   req.ClientIP,
		StatusCode: req.StatusCode,
		LatencyMs:  req.LatencyMs,
		Headers:    headers,
		BodySize:   bodySize,
		UserAgent:  req.UserAgent,
	})

	if result.IsSuspicious {
		if err := h.queries.SetRequestLogSuspicious(ctx, log.ID); err != nil {
			h.logger.Error("flagging request log suspicious", "log_id", log.ID, "error", err)
		}
	}

	telemetry.IngestTotal.WithLabelValues(api.ID.String(), boolLabel(result.IsSuspicious)).Inc()

	h.broadcastLog(log, api.ID, result)

	Respond(w, http.StatusOK, IngestResponse{
		Status:       "success",
		LogID:        log.ID,
		IsSuspicious: result.IsSuspicious,
		RiskScore:    result.RiskScore,
	})
}

func (h *IngestHandler) broadcastLog(log db.RequestLog, apiID uuid.UUID, result engine.Result) {
	event := liveEvent{
		Type:         "request_log",
		ID:           log.ID,
		ApiID:        apiID.String(),
		Ts:           log.Ts,
		Method:       log.Method,
		Endpoint:     log.Endpoint,
		ClientIP:     log.ClientIP,
		StatusCode:   log.StatusCode,
		IsSuspicious: result.IsSuspicious,
		RiskScore:    result.RiskScore,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshaling live event", "error", err)
		return
	}
	h.bus.Broadcast(payload)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
