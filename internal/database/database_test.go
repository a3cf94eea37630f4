package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vincentbai/clicktrace-agent/internal/models"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	// Create temporary directory for test database
	tmpDir, err := os.MkdirTemp("", "clicktrace-test-*")
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

func strPtr(s string) *string { return &s }

var baseTime = time.Date(2009, 2, 13, 23, 31, 30, 0, time.UTC)

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

func TestValidateCapture(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tests := []struct {
		name      string
		capture   models.Capture
		wantError bool
	}{
		{
			name:    "valid capture",
			capture: models.Capture{ReceivedAt: baseTime, Path: `HTML BODY A[id="x"]`, Client: strPtr("c1")},
		},
		{
			name:    "valid capture without client",
			capture: models.Capture{ReceivedAt: baseTime, Path: `HTML BODY A[id="x"]`},
		},
		{
			name:      "empty path",
			capture:   models.Capture{ReceivedAt: baseTime, Path: "  "},
			wantError: true,
		},
		{
			name:      "zero time",
			capture:   models.Capture{Path: "HTML"},
			wantError: true,
		},
		{
			name:      "empty client",
			capture:   models.Capture{ReceivedAt: baseTime, Path: "HTML", Client: strPtr("")},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.ValidateCapture(tt.capture)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateCapture() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestInsertCaptures(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	captures := []models.Capture{
		{
			ReceivedAt: baseTime,
			Path:       `HTML BODY DIV[id="d1"] A[id="x"]`,
			Client:     strPtr("c1"),
			Fields:     map[string]string{"category": "sale"},
			UserAgent:  "test-agent",
		},
		{
			ID:         "fixed-id",
			ReceivedAt: baseTime.Add(time.Second),
			Path:       `HTML BODY INPUT[id="analytics-id-1"]`,
		},
	}

	if err := db.InsertCaptures(ctx, captures); err != nil {
		t.Fatalf("Failed to insert captures: %v", err)
	}
	if captures[0].ID == "" {
		t.Error("Expected an ID to be generated")
	}
	if captures[1].ID != "fixed-id" {
		t.Errorf("Expected provided ID to be kept, got %q", captures[1].ID)
	}

	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM captures").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != len(captures) {
		t.Errorf("Expected %d captures, got %d", len(captures), count)
	}
}

func TestInsertCapturesInvalidCapture(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	captures := []models.Capture{
		{ReceivedAt: baseTime, Path: "HTML"},
		{ReceivedAt: baseTime, Path: ""}, // Invalid: empty path
	}

	if err := db.InsertCaptures(context.Background(), captures); err == nil {
		t.Fatal("Expected error for invalid capture, got nil")
	}

	// Verify transaction was rolled back
	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM captures").Scan(&count); err != nil {
		t.Fatalf("Failed to query count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 captures after rollback, got %d", count)
	}
}

func TestListCaptures(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	captures := []models.Capture{
		{ReceivedAt: baseTime, Path: "A", Client: strPtr("c1"), Fields: map[string]string{"k": "v"}},
		{ReceivedAt: baseTime.Add(time.Minute), Path: "B", Client: strPtr("c2")},
		{ReceivedAt: baseTime.Add(2 * time.Minute), Path: "A"},
	}
	if err := db.InsertCaptures(ctx, captures); err != nil {
		t.Fatalf("Failed to insert captures: %v", err)
	}

	tests := []struct {
		name      string
		filter    CaptureFilter
		wantPaths []string
	}{
		{name: "all newest first", filter: CaptureFilter{}, wantPaths: []string{"A", "B", "A"}},
		{name: "by client", filter: CaptureFilter{Client: "c1"}, wantPaths: []string{"A"}},
		{name: "by path", filter: CaptureFilter{Path: "A"}, wantPaths: []string{"A", "A"}},
		{name: "since", filter: CaptureFilter{Since: baseTime.Add(time.Minute)}, wantPaths: []string{"A", "B"}},
		{name: "limit", filter: CaptureFilter{Limit: 1}, wantPaths: []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListCaptures(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListCaptures() error = %v", err)
			}
			if len(got) != len(tt.wantPaths) {
				t.Fatalf("Expected %d captures, got %d", len(tt.wantPaths), len(got))
			}
			for i, c := range got {
				if c.Path != tt.wantPaths[i] {
					t.Errorf("capture %d: path %q, want %q", i, c.Path, tt.wantPaths[i])
				}
			}
		})
	}

	got, err := db.ListCaptures(ctx, CaptureFilter{Client: "c1"})
	if err != nil {
		t.Fatalf("ListCaptures() error = %v", err)
	}
	if got[0].Fields["k"] != "v" || !got[0].ReceivedAt.Equal(baseTime) || *got[0].Client != "c1" {
		t.Errorf("Capture did not round trip: %+v", got[0])
	}
}

func TestTopPaths(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var captures []models.Capture
	for i, p := range []string{"A", "B", "A", "C", "A", "B"} {
		client := strPtr("c1")
		if p == "C" {
			client = strPtr("c2")
		}
		captures = append(captures, models.Capture{ReceivedAt: baseTime.Add(time.Duration(i) * time.Second), Path: p, Client: client})
	}
	if err := db.InsertCaptures(ctx, captures); err != nil {
		t.Fatalf("Failed to insert captures: %v", err)
	}

	top, err := db.TopPaths(ctx, "", 2)
	if err != nil {
		t.Fatalf("TopPaths() error = %v", err)
	}
	if len(top) != 2 || top[0] != (models.PathCount{Path: "A", Count: 3}) || top[1] != (models.PathCount{Path: "B", Count: 2}) {
		t.Errorf("Unexpected top paths: %+v", top)
	}

	top, err = db.TopPaths(ctx, "c2", 0)
	if err != nil {
		t.Fatalf("TopPaths() error = %v", err)
	}
	if len(top) != 1 || top[0].Path != "C" {
		t.Errorf("Unexpected top paths for c2: %+v", top)
	}
}
