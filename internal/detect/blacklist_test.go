package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
)

func TestBlacklistDetector_CleanIPNoDetection(t *testing.T) {
	cfg := &config.Config{}
	cfg.IPBlacklist.Enabled = true
	cfg.IPBlacklist.Weight = 8

	queries := db.New(&fakeDBTX{queryRow: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return rowNotFound()
	}})
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewBlacklistDetector(queries, resolver)

	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), ClientIP: "9.9.9.9"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det != nil {
		t.Fatalf("expected no detection for a clean ip, got %+v", det)
	}
}

func TestBlacklistDetector_BlacklistedIPDetected(t *testing.T) {
	cfg := &config.Config{}
	cfg.IPBlacklist.Enabled = true
	cfg.IPBlacklist.Weight = 8
	reason := "known scraper"

	queries := db.New(&fakeDBTX{queryRow: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*string)) = "6.6.6.6"
			*(dest[1].(**string)) = &reason
			return nil
		}}
	}})
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewBlacklistDetector(queries, resolver)

	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), ClientIP: "6.6.6.6"})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det == nil {
		t.Fatal("expected a detection for a blacklisted ip")
	}
	if det.Tag != detectorIPBlacklist {
		t.Errorf("Tag = %q, want %q", det.Tag, detectorIPBlacklist)
	}
	if det.Score != 8 {
		t.Errorf("Score = %v, want 8", det.Score)
	}
}

func TestBlacklistDetector_StorageErrorPropagates(t *testing.T) {
	cfg := &config.Config{}
	cfg.IPBlacklist.Enabled = true

	boom := errors.New("connection reset")
	queries := db.New(&fakeDBTX{queryRow: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{scan: func(dest ...any) error { return boom }}
	}})
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewBlacklistDetector(queries, resolver)

	_, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), ClientIP: "1.1.1.1"})
	if err == nil {
		t.Fatal("expected a real storage error to propagate, not be swallowed like ErrNoRows")
	}
}

func TestBlacklistDetector_DisabledSkipsLookup(t *testing.T) {
	cfg := &config.Config{}
	cfg.IPBlacklist.Enabled = false

	queried := false
	queries := db.New(&fakeDBTX{queryRow: func(ctx context.Context, sql string, args ...any) pgx.Row {
		queried = true
		return rowNotFound()
	}})
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewBlacklistDetector(queries, resolver)

	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), ClientIP: "1.1.1.1"})
	if err != nil || det != nil {
		t.Fatalf("disabled detector should short-circuit, got det=%+v err=%v", det, err)
	}
	if queried {
		t.Error("disabled detector must not hit storage at all")
	}
}
