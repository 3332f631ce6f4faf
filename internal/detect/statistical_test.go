package detect

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
)

func TestPopulationStdDev_KnownSeries(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := 5.0
	got := populationStdDev(xs, mean)
	if !approxEqualFloat(got, 2.0) {
		t.Errorf("populationStdDev = %v, want 2.0", got)
	}
}

func TestPopulationStdDev_ConstantSeriesIsZero(t *testing.T) {
	xs := []float64{3, 3, 3, 3}
	if got := populationStdDev(xs, 3); got != 0 {
		t.Errorf("populationStdDev of a constant series = %v, want 0", got)
	}
}

func approxEqualFloat(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

// fakeLatencyRows implements pgx.Rows over a fixed, in-memory float64 column,
// enough to drive StatisticalDetector.Detect's RecentLatencies call.
type fakeLatencyRows struct {
	values []float64
	idx    int
}

func (r *fakeLatencyRows) Close()                                       {}
func (r *fakeLatencyRows) Err() error                                   { return nil }
func (r *fakeLatencyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeLatencyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeLatencyRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeLatencyRows) Scan(dest ...any) error {
	*(dest[0].(*float64)) = r.values[r.idx-1]
	return nil
}
func (r *fakeLatencyRows) Values() ([]any, error) { return []any{r.values[r.idx-1]}, nil }
func (r *fakeLatencyRows) RawValues() [][]byte    { return nil }
func (r *fakeLatencyRows) Conn() *pgx.Conn        { return nil }

func TestStatisticalDetector_OutlierLatencyDetected(t *testing.T) {
	history := []float64{10, 12, 11, 9, 10, 13, 11, 10, 12, 10}
	queries := db.New(&fakeDBTX{query: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return &fakeLatencyRows{values: history}, nil
	}})
	cfg := &config.Config{}
	cfg.Statistical.Enabled = true
	cfg.Statistical.ZThreshold = 3
	cfg.Statistical.Weight = 6
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewStatisticalDetector(queries, resolver, 5, 100)

	outlier := 500.0
	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), LatencyMs: &outlier})
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det == nil {
		t.Fatal("expected a detection for a far latency outlier")
	}
	if det.Tag != detectorLatencySpike {
		t.Errorf("Tag = %q, want %q", det.Tag, detectorLatencySpike)
	}
}

func TestStatisticalDetector_NormalLatencyNoDetection(t *testing.T) {
	history := []float64{10, 12, 11, 9, 10, 13, 11, 10, 12, 10}
	queries := db.New(&fakeDBTX{query: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return &fakeLatencyRows{values: history}, nil
	}})
	cfg := &config.Config{}
	cfg.Statistical.Enabled = true
	cfg.Statistical.ZThreshold = 3
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewStatisticalDetector(queries, resolver, 5, 100)

	normal := 11.0
	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), LatencyMs: &normal})
	if err != nil || det != nil {
		t.Fatalf("a typical latency should not detect, got det=%+v err=%v", det, err)
	}
}

func TestStatisticalDetector_BelowMinSamplesNoDetection(t *testing.T) {
	queries := db.New(&fakeDBTX{query: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return &fakeLatencyRows{values: []float64{10, 11}}, nil
	}})
	cfg := &config.Config{}
	cfg.Statistical.Enabled = true
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewStatisticalDetector(queries, resolver, 5, 100)

	v := 9999.0
	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), LatencyMs: &v})
	if err != nil || det != nil {
		t.Fatalf("too few samples should never detect, got det=%+v err=%v", det, err)
	}
}

func TestStatisticalDetector_NilLatencySkips(t *testing.T) {
	queried := false
	queries := db.New(&fakeDBTX{query: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		queried = true
		return &fakeLatencyRows{}, nil
	}})
	cfg := &config.Config{}
	cfg.Statistical.Enabled = true
	resolver := NewConfigResolver(cfg, queries, discardLogger())
	d := NewStatisticalDetector(queries, resolver, 5, 100)

	det, err := d.Detect(context.Background(), Record{ApiID: uuid.New(), LatencyMs: nil})
	if err != nil || det != nil {
		t.Fatalf("a record with no latency should never detect, got det=%+v err=%v", det, err)
	}
	if queried {
		t.Error("a record with no latency must not query history at all")
	}
}
