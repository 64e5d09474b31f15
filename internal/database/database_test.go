package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vincentbai/rrweb-viewer/internal/stats"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	// Create temporary directory for test database
	tmpDir, err := os.MkdirTemp("", "rrweb-viewer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := NewDatabase(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Return cleanup function
	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func sampleStats() stats.RecordingStats {
	url := "https://example.com"
	start := time.UnixMilli(1000)
	end := time.UnixMilli(2000)
	return stats.RecordingStats{
		TotalEvents: 3,
		FileSize:    300,
		URL:         &url,
		Duration:    1000,
		Viewport:    &stats.Viewport{Width: 800, Height: 600},
		StartTime:   &start,
		EndTime:     &end,
		EventTypes: map[string]int{
			stats.CategoryFullSnapshot: 1,
			stats.CategoryIncremental:  1,
			stats.CategoryMeta:         1,
			stats.CategoryCustom:       0,
			stats.CategoryOther:        0,
		},
		Interactions: stats.Interactions{Clicks: 1},
	}
}

func TestNewDatabase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if db == nil {
		t.Fatal("Expected non-nil database")
	}
	if db.db == nil {
		t.Fatal("Expected non-nil sql.DB")
	}
}

func TestValidateAnalysis(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	negativeSize := sampleStats()
	negativeSize.FileSize = -1
	negativeDuration := sampleStats()
	negativeDuration.Duration = -5

	tests := []struct {
		name      string
		fileName  string
		stats     stats.RecordingStats
		wantError bool
	}{
		{"valid analysis", "session.json", sampleStats(), false},
		{"empty stats", "empty.json", stats.Compute(nil, 0), false},
		{"empty file name", "", sampleStats(), true},
		{"negative file size", "session.json", negativeSize, true},
		{"negative duration", "session.json", negativeDuration, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.ValidateAnalysis(tt.fileName, tt.stats)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateAnalysis() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestInsertAnalysis(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	analysis, err := db.InsertAnalysis("session.json", sampleStats())
	if err != nil {
		t.Fatalf("Failed to insert analysis: %v", err)
	}
	if analysis.ID == "" {
		t.Fatal("Expected generated id")
	}

	var count int
	err = db.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 analysis, got %d", count)
	}

	var startedAt int64
	err = db.db.QueryRow("SELECT started_at_ms FROM analyses WHERE id = ?", analysis.ID).Scan(&startedAt)
	if err != nil {
		t.Fatalf("Failed to query started_at_ms: %v", err)
	}
	if startedAt != 1000 {
		t.Errorf("Expected started_at_ms 1000, got %d", startedAt)
	}
}

func TestInsertAnalysisInvalid(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if _, err := db.InsertAnalysis("", sampleStats()); err == nil {
		t.Fatal("Expected error for invalid analysis, got nil")
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 analyses, got %d", count)
	}
}

func TestGetAnalysis(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	inserted, err := db.InsertAnalysis("session.json", sampleStats())
	if err != nil {
		t.Fatalf("Failed to insert analysis: %v", err)
	}

	got, err := db.GetAnalysis(inserted.ID)
	if err != nil {
		t.Fatalf("GetAnalysis() error = %v", err)
	}
	if got.FileName != "session.json" || got.FileSize != 300 || got.TotalEvents != 3 {
		t.Errorf("Unexpected analysis: %+v", got)
	}
	if got.URL == nil || *got.URL != "https://example.com" {
		t.Errorf("Expected url https://example.com, got %v", got.URL)
	}
	if got.Stats.Viewport == nil || got.Stats.Viewport.Width != 800 {
		t.Errorf("Expected viewport to survive storage, got %v", got.Stats.Viewport)
	}
	if got.Stats.Interactions.Clicks != 1 {
		t.Errorf("Expected 1 click, got %d", got.Stats.Interactions.Clicks)
	}
	if !got.CreatedAt.Equal(inserted.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, inserted.CreatedAt)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetAnalysis("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListAnalyses(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	names := []string{"first.json", "second.json", "third.json"}
	for _, name := range names {
		if _, err := db.InsertAnalysis(name, sampleStats()); err != nil {
			t.Fatalf("Failed to insert %s: %v", name, err)
		}
	}
	if _, err := db.InsertAnalysis("empty.json", stats.Compute(nil, 0)); err != nil {
		t.Fatalf("Failed to insert empty analysis: %v", err)
	}

	all, err := db.ListAnalyses(0)
	if err != nil {
		t.Fatalf("ListAnalyses() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 analyses, got %d", len(all))
	}
	if all[0].FileName != "empty.json" {
		t.Errorf("Expected newest first, got %s", all[0].FileName)
	}
	if all[0].URL != nil {
		t.Errorf("Expected nil url for empty analysis, got %v", *all[0].URL)
	}

	limited, err := db.ListAnalyses(2)
	if err != nil {
		t.Fatalf("ListAnalyses(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 analyses, got %d", len(limited))
	}
}

func TestDatabaseClose(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Close()
	if err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
}
