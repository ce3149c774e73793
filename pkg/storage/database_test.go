package storage

import (
	"fmt"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func saveRun(t *testing.T, db *Database, runID int, ts time.Time, passed, failed, skipped int) string {
	t.Helper()
	id := fmt.Sprintf("exec-%d", runID)
	err := db.SaveExecution(&ExecutionRecord{
		ID:               id,
		RunID:            runID,
		Timestamp:        ts,
		Duration:         1500,
		TotalScenarios:   passed + failed + skipped,
		PassedScenarios:  passed,
		FailedScenarios:  failed,
		SkippedScenarios: skipped,
		URL:              fmt.Sprintf("https://ci.example.com/%d", runID),
		Tags:             []string{"smoke"},
	})
	if err != nil {
		t.Fatalf("SaveExecution() error = %v", err)
	}
	return id
}

func TestDatabase_NextRunID(t *testing.T) {
	db := newTestDB(t)

	next, err := db.NextRunID()
	if err != nil {
		t.Fatalf("NextRunID() error = %v", err)
	}
	if next != 1 {
		t.Errorf("NextRunID() on empty db = %v, want %v", next, 1)
	}

	saveRun(t, db, 41, time.Now(), 1, 0, 0)
	next, _ = db.NextRunID()
	if next != 42 {
		t.Errorf("NextRunID() = %v, want %v", next, 42)
	}
}

func TestDatabase_GetRecentExecutions(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	for i := 1; i <= 12; i++ {
		saveRun(t, db, i, base.Add(time.Duration(i)*time.Minute), i, 1, 0)
	}

	execs, err := db.GetRecentExecutions(10)
	if err != nil {
		t.Fatalf("GetRecentExecutions() error = %v", err)
	}
	if len(execs) != 10 {
		t.Fatalf("len = %v, want %v", len(execs), 10)
	}
	if execs[0].RunID != 12 {
		t.Errorf("newest run = %v, want %v", execs[0].RunID, 12)
	}
	if execs[9].RunID != 3 {
		t.Errorf("oldest kept run = %v, want %v", execs[9].RunID, 3)
	}
	if !execs[0].Timestamp.Equal(base.Add(12 * time.Minute)) {
		t.Errorf("timestamp = %v, want %v", execs[0].Timestamp, base.Add(12*time.Minute))
	}
	if execs[0].URL != "https://ci.example.com/12" {
		t.Errorf("URL = %v", execs[0].URL)
	}
	if len(execs[0].Tags) != 1 || execs[0].Tags[0] != "smoke" {
		t.Errorf("Tags = %v", execs[0].Tags)
	}
}

func TestDatabase_ScenarioHistory(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	statuses := []string{"passed", "failed", "passed", "failed"}
	for i, status := range statuses {
		id := saveRun(t, db, i+1, now.Add(-time.Duration(i)*time.Minute), 1, 0, 0)
		if err := db.SaveScenario(&ScenarioRecord{
			ExecutionID:  id,
			ScenarioName: "Login",
			SpecName:     "Auth",
			Status:       status,
			Duration:     100,
		}); err != nil {
			t.Fatalf("SaveScenario() error = %v", err)
		}
	}

	history, err := db.GetScenarioHistory("Auth", "Login", 30, 3)
	if err != nil {
		t.Fatalf("GetScenarioHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %v, want %v", len(history), 3)
	}
	// newest first
	for i, want := range []string{"passed", "failed", "passed"} {
		if history[i].Status != want {
			t.Errorf("history[%d].Status = %v, want %v", i, history[i].Status, want)
		}
	}

	other, _ := db.GetScenarioHistory("Other spec", "Login", 30, 10)
	if len(other) != 0 {
		t.Errorf("history should be scoped to the spec, got %d records", len(other))
	}
}

func TestDatabase_ListScenarios(t *testing.T) {
	db := newTestDB(t)

	recent := saveRun(t, db, 1, time.Now(), 2, 0, 0)
	again := saveRun(t, db, 2, time.Now(), 2, 0, 0)
	old := saveRun(t, db, 3, time.Now().AddDate(0, 0, -60), 1, 0, 0)

	records := []ScenarioRecord{
		{ExecutionID: recent, SpecName: "Cart", ScenarioName: "Remove", Status: "passed"},
		{ExecutionID: recent, SpecName: "Auth", ScenarioName: "Login", Status: "failed"},
		{ExecutionID: again, SpecName: "Auth", ScenarioName: "Login", Status: "passed"},
		{ExecutionID: old, SpecName: "Legacy", ScenarioName: "Export", Status: "failed"},
	}
	for i := range records {
		if err := db.SaveScenario(&records[i]); err != nil {
			t.Fatalf("SaveScenario() error = %v", err)
		}
	}

	keys, err := db.ListScenarios(30)
	if err != nil {
		t.Fatalf("ListScenarios() error = %v", err)
	}
	want := []ScenarioKey{
		{SpecName: "Auth", ScenarioName: "Login"},
		{SpecName: "Cart", ScenarioName: "Remove"},
	}
	if len(keys) != len(want) {
		t.Fatalf("ListScenarios() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestDatabase_CleanupOldData(t *testing.T) {
	db := newTestDB(t)

	oldID := saveRun(t, db, 1, time.Now().AddDate(0, 0, -100), 1, 0, 0)
	saveRun(t, db, 2, time.Now(), 1, 0, 0)
	if err := db.SaveScenario(&ScenarioRecord{ExecutionID: oldID, ScenarioName: "Old", SpecName: "S", Status: "passed"}); err != nil {
		t.Fatalf("SaveScenario() error = %v", err)
	}

	removed, err := db.CleanupOldData(90)
	if err != nil {
		t.Fatalf("CleanupOldData() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %v, want %v", removed, 1)
	}

	execs, _ := db.GetRecentExecutions(10)
	if len(execs) != 1 || execs[0].RunID != 2 {
		t.Errorf("remaining executions = %+v", execs)
	}
}
