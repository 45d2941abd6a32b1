package predictionstore

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs against a real database when URBAN_TEST_POSTGRES_URL is set.
func TestSaveAndLatest(t *testing.T) {
	connStr := os.Getenv("URBAN_TEST_POSTGRES_URL")
	if connStr == "" {
		t.Skip("URBAN_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Error(err)
		}
	}()

	jobID := "test-" + time.Now().Format("20060102150405.000000")
	rec := Record{
		JobID:         jobID,
		AOI:           `{"type":"Polygon","coordinates":[[[36.8,-1.3],[36.9,-1.3],[36.9,-1.2],[36.8,-1.3]]]}`,
		BuiltUpAreaHa: 16,
		Confidence:    0.9,
		ResultURL:     "file:///tmp/" + jobID + "_pred.tif",
		ProcessedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := store.Latest(ctx, jobID)
	if err != nil {
		t.Fatal(err)
	}
	if got.BuiltUpAreaHa != rec.BuiltUpAreaHa || got.ResultURL != rec.ResultURL || !got.ProcessedAt.Equal(rec.ProcessedAt) {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}
