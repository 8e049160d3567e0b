package pebbledb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

func setupTestStore(t *testing.T) (*PebbleStore, func()) {
	t.Helper()

	// Create temp directory
	tempDir, err := os.MkdirTemp("", "pebbledb_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	store, err := New(filepath.Join(tempDir, "pebble"))
	if err != nil {
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			t.Logf("Failed to remove temp dir: %v", removeErr)
		}
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		if closeErr := store.Close(); closeErr != nil {
			t.Logf("Failed to close store: %v", closeErr)
		}
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			t.Logf("Failed to remove temp dir: %v", removeErr)
		}
	}

	return store, cleanup
}

func testRun(id string) *storage.RunRecord {
	return &storage.RunRecord{
		ID:          id,
		Status:      types.StatusQueued,
		CesURL:      "https://ces.example.com",
		Srid:        "cw09",
		ContainerID: "PLAY000001",
		ReleaseID:   "REL001",
		TaskLevel:   "DEV1",
		TaskIDs:     []string{"7E45E3087494", "7E45E3087495"},
		AutoDeploy:  true,
		CreatedAt:   time.Now(),
	}
}

func TestRunCRUD(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	run := testRun("run-1")
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	retrieved, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("GetRun returned nil")
	}
	if retrieved.ContainerID != "PLAY000001" {
		t.Errorf("ContainerID mismatch: got %s", retrieved.ContainerID)
	}
	if len(retrieved.TaskIDs) != 2 || retrieved.TaskIDs[0] != "7E45E3087494" {
		t.Errorf("TaskIDs mismatch: got %v", retrieved.TaskIDs)
	}
	if !retrieved.AutoDeploy {
		t.Error("AutoDeploy mismatch: got false")
	}
	if retrieved.Status != types.StatusQueued {
		t.Errorf("Status mismatch: got %s", retrieved.Status)
	}

	// Missing run
	missing, err := store.GetRun(ctx, "nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing run")
	}
}

func TestRunStatusLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := store.UpdateRunStatus(ctx, "run-1", types.StatusProcessing, time.Now()); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != types.StatusProcessing {
		t.Errorf("Status = %s, want processing", run.Status)
	}
	if run.DispatchedAt == nil {
		t.Error("DispatchedAt not set")
	}

	response := map[string]interface{}{
		"awaitStatus": map[string]interface{}{
			"generateFailedCount": float64(0),
			"statusMsg":           "ok",
		},
	}
	if err := store.UpdateRunResponse(ctx, "run-1", response); err != nil {
		t.Fatalf("UpdateRunResponse failed: %v", err)
	}

	run, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != types.StatusCompleted {
		t.Errorf("Status = %s, want completed", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if run.ResponsePayload == nil {
		t.Fatal("ResponsePayload not set")
	}
	if _, ok := run.ResponsePayload["awaitStatus"]; !ok {
		t.Error("ResponsePayload missing awaitStatus")
	}
}

func TestRunError(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := store.UpdateRunError(ctx, "run-1", "There were generate failures."); err != nil {
		t.Fatalf("UpdateRunError failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != types.StatusFailed {
		t.Errorf("Status = %s, want failed", run.Status)
	}
	if run.Error == nil || *run.Error != "There were generate failures." {
		t.Errorf("Error = %v", run.Error)
	}

	// Updating a missing run reports an error
	if err := store.UpdateRunError(ctx, "nope", "x"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestUpdateRunPayloadKeepsStatus(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.UpdateRunStatus(ctx, "run-1", types.StatusProcessing, time.Now()); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	payload := map[string]interface{}{"message": "login required"}
	if err := store.UpdateRunPayload(ctx, "run-1", payload); err != nil {
		t.Fatalf("UpdateRunPayload failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != types.StatusProcessing {
		t.Errorf("Status = %s, want processing untouched", run.Status)
	}
	if run.ResponsePayload == nil || run.ResponsePayload["message"] != "login required" {
		t.Errorf("ResponsePayload = %v", run.ResponsePayload)
	}

	// The counters must not move either.
	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Processing != 1 || stats.Completed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetQueuedRuns(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := testRun(fmt.Sprintf("run-%d", i))
		run.CreatedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}
	if err := store.UpdateRunStatus(ctx, "run-1", types.StatusProcessing, time.Now()); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	queued, err := store.GetQueuedRuns(ctx)
	if err != nil {
		t.Fatalf("GetQueuedRuns failed: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("queued count = %d, want 2", len(queued))
	}
	// Oldest first
	if queued[0].ID != "run-0" || queued[1].ID != "run-2" {
		t.Errorf("queued order = %s, %s", queued[0].ID, queued[1].ID)
	}
}

func TestListRunsAndStats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		run := testRun(fmt.Sprintf("run-%d", i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}
	if err := store.UpdateRunError(ctx, "run-4", "boom"); err != nil {
		t.Fatalf("UpdateRunError failed: %v", err)
	}

	// Newest first across statuses
	runs, total, err := store.ListRuns(ctx, storage.RunFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 5 || len(runs) != 5 {
		t.Fatalf("total = %d, len = %d, want 5/5", total, len(runs))
	}
	if runs[0].ID != "run-4" {
		t.Errorf("first run = %s, want run-4", runs[0].ID)
	}

	// Status filter
	failed := types.StatusFailed
	runs, total, err = store.ListRuns(ctx, storage.RunFilter{Status: &failed, Limit: 10})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 1 || len(runs) != 1 || runs[0].ID != "run-4" {
		t.Errorf("failed filter: total=%d runs=%v", total, runs)
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalRuns != 5 || stats.Queued != 4 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestListRunsCursorPagination(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 4; i++ {
		run := testRun(fmt.Sprintf("run-%d", i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	page1, total, err := store.ListRuns(ctx, storage.RunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(page1) != 2 || page1[0].ID != "run-3" || page1[1].ID != "run-2" {
		t.Fatalf("page 1 = %s, %s, want run-3, run-2", page1[0].ID, page1[1].ID)
	}

	// Page forward from the last record's creation time.
	cursor := page1[1].CreatedAt
	page2, _, err := store.ListRuns(ctx, storage.RunFilter{Limit: 2, Cursor: &cursor})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != "run-1" || page2[1].ID != "run-0" {
		t.Fatalf("page 2 = %v, want run-1, run-0", ids(page2))
	}

	// The two pages cover every run exactly once.
	seen := map[string]bool{}
	for _, run := range append(page1, page2...) {
		if seen[run.ID] {
			t.Errorf("run %s returned twice", run.ID)
		}
		seen[run.ID] = true
	}
	if len(seen) != 4 {
		t.Errorf("pagination covered %d of 4 runs", len(seen))
	}

	// Past the last page.
	cursor = page2[1].CreatedAt
	page3, _, err := store.ListRuns(ctx, storage.RunFilter{Limit: 2, Cursor: &cursor})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(page3) != 0 {
		t.Errorf("page 3 = %v, want empty", ids(page3))
	}
}

func TestListRunsMergesStatusesNewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 4; i++ {
		run := testRun(fmt.Sprintf("run-%d", i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}
	// Scatter the runs across statuses; order must still follow creation time.
	if err := store.UpdateRunError(ctx, "run-1", "boom"); err != nil {
		t.Fatalf("UpdateRunError failed: %v", err)
	}
	if err := store.UpdateRunStatus(ctx, "run-2", types.StatusProcessing, time.Now()); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	runs, total, err := store.ListRuns(ctx, storage.RunFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	want := []string{"run-3", "run-2", "run-1", "run-0"}
	got := ids(runs)
	if len(got) != len(want) {
		t.Fatalf("runs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("runs = %v, want %v", got, want)
		}
	}
}

func ids(runs []*storage.RunRecord) []string {
	out := make([]string, len(runs))
	for i, run := range runs {
		out[i] = run.ID
	}
	return out
}
