// Package db is sentrywatch's generated-style data access layer: typed
// models and a Queries struct wrapping a DBTX, mirroring the shape sqlc
// would produce from the migrations in /migrations.
package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is the minimal owner record APIs reference. Full identity/session
// management lives outside this service.
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// Api is a tenant-owned API registration: the unit of ingestion.
type Api struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Name            string
	IngestKey       string
	EncryptedSecret []byte
	BaseURL         *string
	Active          bool
	CreatedAt       time.Time
}

// RequestLog is one ingested telemetry record.
type RequestLog struct {
	ID         int64
	ApiID      uuid.UUID
	Ts         float64
	Method     string
	Endpoint   string
	ClientIP   string
	StatusCode *int32
	LatencyMs  *float64
	Headers    json.RawMessage
	BodySize   int32
	UserAgent  *string
	Suspicious bool
}

// Alert is a persisted, human-actionable record created by the detection engine.
type Alert struct {
	ID              uuid.UUID
	ApiID           uuid.UUID
	LogID           *int64
	Kind            string
	Severity        string
	Score           float64
	Title           string
	Description     string
	DetectorDetails json.RawMessage
	Acknowledged    bool
	Muted           bool
	AcknowledgedBy  *uuid.UUID
	AcknowledgedAt  *time.Time
	CreatedAt       time.Time
}

// AlertNotification records the outcome of one dispatch attempt on one channel.
type AlertNotification struct {
	ID           uuid.UUID
	AlertID      uuid.UUID
	Channel      string
	Status       string
	ErrorMessage *string
	SentAt       *time.Time
}

// MLModel is the persisted, upserted-by-api_id Isolation Forest blob.
type MLModel struct {
	ApiID           uuid.UUID
	Kind            string
	Blob            []byte
	TrainingSamples int
	TrainedAt       time.Time
	Active          bool
}

// BlacklistEntry is an IP address flagged as abusive.
type BlacklistEntry struct {
	IP        string
	Reason    *string
	AddedBy   *uuid.UUID
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// WhitelistEntry is an IP address exempt from rule-based detectors.
type WhitelistEntry struct {
	IP        string
	AddedBy   *uuid.UUID
	CreatedAt time.Time
}

// DetectorConfigOverride holds a per-API override of one detector's
// enabled/threshold/weight/window, merged over the global default.
type DetectorConfigOverride struct {
	ApiID     uuid.UUID
	Detector  string
	Enabled   *bool
	Threshold *float64
	Weight    *float64
	WindowSec *int32
}
