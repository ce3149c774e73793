package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/storage"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		runID    int
		want     string
	}{
		{"empty template", "", 7, ""},
		{"placeholder", "https://dev.azure.com/org/proj/_build/results?buildId=%d", 42, "https://dev.azure.com/org/proj/_build/results?buildId=42"},
		{"fixed link", "https://jenkins.example.com/job/e2e/lastBuild", 3, "https://jenkins.example.com/job/e2e/lastBuild"},
		{
			"percent-encoded project",
			"https://dev.azure.com/My%20Org/My%20Project/_build/results?buildId=%d",
			42,
			"https://dev.azure.com/My%20Org/My%20Project/_build/results?buildId=42",
		},
		{"encoded text without placeholder", "https://ci.example.com/job/My%20Job/latest", 5, "https://ci.example.com/job/My%20Job/latest"},
		{"placeholder mid path", "https://ci.example.com/runs/%d/summary%3Fview", 9, "https://ci.example.com/runs/9/summary%3Fview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(tt.template, tt.runID); got != tt.want {
				t.Errorf("BuildURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToRunSummaries(t *testing.T) {
	now := time.Now()
	records := []storage.ExecutionRecord{
		{RunID: 3, PassedScenarios: 9, FailedScenarios: 1, Timestamp: now},
		{RunID: 2, PassedScenarios: 8, FailedScenarios: 2, URL: "https://ci/2", Timestamp: now.Add(-time.Hour)},
		{RunID: 1, PassedScenarios: 5, SkippedScenarios: 5, Timestamp: now.Add(-2 * time.Hour)},
	}

	oldest := ToRunSummaries(records, config.OrderOldestFirst, "https://ci/%d")
	if oldest[0].RunID != 1 || oldest[2].RunID != 3 {
		t.Errorf("oldest-first order = %v, %v, %v", oldest[0].RunID, oldest[1].RunID, oldest[2].RunID)
	}
	if oldest[0].URL != "https://ci/1" {
		t.Errorf("templated URL = %v, want %v", oldest[0].URL, "https://ci/1")
	}
	if oldest[1].URL != "https://ci/2" {
		t.Errorf("stored URL should win, got %v", oldest[1].URL)
	}
	if oldest[0].SkippedCount != 5 {
		t.Errorf("SkippedCount = %v, want %v", oldest[0].SkippedCount, 5)
	}

	newest := ToRunSummaries(records, config.OrderNewestFirst, "")
	if newest[0].RunID != 3 {
		t.Errorf("newest-first first run = %v, want %v", newest[0].RunID, 3)
	}
	if newest[0].Clickable() {
		t.Error("run without URL or template should not be clickable")
	}
}

func TestFragilityScore(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     float64
		wantOK   bool
	}{
		{"too short", []string{"failed", "failed"}, 0, false},
		{"always passing", []string{"passed", "passed", "passed"}, 0, true},
		{"always failing", []string{"failed", "failed", "failed"}, 100, true},
		// weights 1, 1/2, 1/3: 100 / (11/6) = 54.5
		{"latest failed", []string{"failed", "passed", "passed"}, 54.5, true},
		// 100*(1/3) / (11/6) = 18.2
		{"oldest failed", []string{"passed", "passed", "failed"}, 18.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FragilityScore(tt.statuses)
			if ok != tt.wantOK {
				t.Fatalf("FragilityScore() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FragilityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssessFragility_ThresholdBeforeRounding(t *testing.T) {
	// 50 runs with failures at recency positions 5 and 40:
	// 100*(1/5 + 1/40) / H(50) = 5.0009, which rounds to 5.0
	statuses := make([]string, 50)
	for i := range statuses {
		statuses[i] = "passed"
	}
	statuses[4] = "failed"
	statuses[39] = "failed"

	rounded, ok := FragilityScore(statuses)
	if !ok || rounded != 5.0 {
		t.Fatalf("FragilityScore() = %v, %v, want 5.0, true", rounded, ok)
	}

	score, fragile := assessFragility(statuses)
	if !fragile {
		t.Fatal("a score just above the threshold should be reported")
	}
	if score != 5.0 {
		t.Errorf("reported score = %v, want %v", score, 5.0)
	}

	// position 5 alone: 20 / H(50) = 4.45
	statuses[39] = "passed"
	if _, fragile := assessFragility(statuses); fragile {
		t.Error("a score below the threshold should not be reported")
	}
}

func newEngine(t *testing.T) (*Engine, *storage.Database) {
	t.Helper()
	db, err := storage.NewDatabase(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEngine(config.NewConfig(), db), db
}

func suiteWith(loginFailed bool) *models.SuiteResult {
	login := &models.ScenarioResult{ScenarioHeading: "Login", Failed: loginFailed}
	if loginFailed {
		login.Steps = []*models.StepResult{{StepText: "submit", Failed: true, ErrorMessage: "timeout"}}
	}
	logout := &models.ScenarioResult{ScenarioHeading: "Logout"}

	passed, failed := 2, 0
	if loginFailed {
		passed, failed = 1, 1
	}
	return &models.SuiteResult{
		ProjectName:          "shop",
		Timestamp:            time.Now(),
		PassedScenariosCount: passed,
		FailedScenariosCount: failed,
		TotalScenariosCount:  2,
		SpecResults: []*models.SpecResult{{
			SpecHeading: "Auth",
			Scenarios:   []*models.ScenarioResult{login, logout},
		}},
	}
}

func TestEngine_SaveAndRecentRuns(t *testing.T) {
	engine, _ := newEngine(t)
	engine.config.BuildURLTemplate = "https://ci.example.com/%d"

	for i := 1; i <= 3; i++ {
		suite := suiteWith(i == 2)
		suite.Timestamp = time.Now().Add(time.Duration(i-5) * time.Minute)
		if err := engine.SaveExecutionData(suite, fmt.Sprintf("exec-%d", i), i, ""); err != nil {
			t.Fatalf("SaveExecutionData() error = %v", err)
		}
	}

	runs, err := engine.RecentRuns()
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %v, want %v", len(runs), 3)
	}
	if runs[0].RunID != 1 || runs[2].RunID != 3 {
		t.Errorf("runs should be oldest first, got %v..%v", runs[0].RunID, runs[2].RunID)
	}
	if runs[1].FailedCount != 1 || runs[1].PassedCount != 1 {
		t.Errorf("run 2 counts = %+v", runs[1])
	}
	if runs[2].URL != "https://ci.example.com/3" {
		t.Errorf("URL = %v", runs[2].URL)
	}

	engine.config.Chart.MaxRuns = 2
	runs, _ = engine.RecentRuns()
	if len(runs) != 2 || runs[0].RunID != 2 {
		t.Errorf("MaxRuns should keep the newest runs, got %+v", runs)
	}
}

func TestEngine_DetectFragileScenarios(t *testing.T) {
	engine, _ := newEngine(t)

	// newest run last: Login fails in the most recent execution
	for i, failed := range []bool{false, false, true} {
		suite := suiteWith(failed)
		suite.Timestamp = time.Now().Add(time.Duration(i-3) * time.Minute)
		if err := engine.SaveExecutionData(suite, fmt.Sprintf("exec-%d", i), i+1, ""); err != nil {
			t.Fatalf("SaveExecutionData() error = %v", err)
		}
	}

	fragile := engine.DetectFragileScenarios(suiteWith(false))
	if len(fragile) != 1 {
		t.Fatalf("len(fragile) = %v, want %v", len(fragile), 1)
	}
	if fragile[0].ScenarioName != "Login" || fragile[0].SpecName != "Auth" {
		t.Errorf("unexpected fragile scenario %+v", fragile[0])
	}
	if fragile[0].Score != 54.5 {
		t.Errorf("Score = %v, want %v", fragile[0].Score, 54.5)
	}
	if fragile[0].Runs != 3 {
		t.Errorf("Runs = %v, want %v", fragile[0].Runs, 3)
	}

	engine.config.FlakyTestDetection = false
	if got := engine.DetectFragileScenarios(suiteWith(false)); len(got) != 0 {
		t.Errorf("detection disabled should report nothing, got %d", len(got))
	}
}

func TestEngine_DetectFragileFromHistory(t *testing.T) {
	engine, _ := newEngine(t)

	for i, failed := range []bool{false, false, true} {
		suite := suiteWith(failed)
		suite.Timestamp = time.Now().Add(time.Duration(i-3) * time.Minute)
		if err := engine.SaveExecutionData(suite, fmt.Sprintf("exec-%d", i), i+1, ""); err != nil {
			t.Fatalf("SaveExecutionData() error = %v", err)
		}
	}

	fragile := engine.DetectFragileFromHistory()
	if len(fragile) != 1 {
		t.Fatalf("len(fragile) = %v, want %v", len(fragile), 1)
	}
	if fragile[0].SpecName != "Auth" || fragile[0].ScenarioName != "Login" || fragile[0].Score != 54.5 {
		t.Errorf("unexpected fragile scenario %+v", fragile[0])
	}

	if got := NewEngine(config.NewConfig(), nil).DetectFragileFromHistory(); len(got) != 0 {
		t.Errorf("no database should report nothing, got %d", len(got))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}
