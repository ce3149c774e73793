package models

import (
	"math"
	"time"
)

// SuiteResult represents one complete Gauge suite execution
type SuiteResult struct {
	ProjectName   string
	Environment   string
	Tags          []string
	ExecutionTime time.Duration
	Timestamp     time.Time
	SuccessRate   float64

	// Counts
	PassedScenariosCount  int
	FailedScenariosCount  int
	SkippedScenariosCount int
	TotalScenariosCount   int

	SpecResults        []*SpecResult
	BeforeSuiteFailure *HookFailure
	AfterSuiteFailure  *HookFailure
}

// SpecResult represents a single specification execution
type SpecResult struct {
	SpecHeading   string
	FileName      string
	Tags          []string
	ExecutionTime time.Duration
	Failed        bool
	Skipped       bool
	Scenarios     []*ScenarioResult
}

// ScenarioResult represents a single scenario execution
type ScenarioResult struct {
	ScenarioHeading string
	Tags            []string
	ExecutionTime   time.Duration
	Failed          bool
	Skipped         bool
	Steps           []*StepResult
}

// StepResult represents a single step execution
type StepResult struct {
	StepText      string
	ExecutionTime time.Duration
	Failed        bool
	Skipped       bool
	ErrorMessage  string
	StackTrace    string
}

// HookFailure represents a hook execution failure
type HookFailure struct {
	ErrorMessage string
	StackTrace   string
}

// RunSummary is the per-build aggregate the trend chart draws.
// Ordering is positional; Timestamp is only shown, never sorted on here.
type RunSummary struct {
	RunID        int       `json:"runId"`
	PassedCount  int       `json:"passedCount"`
	FailedCount  int       `json:"failedCount"`
	SkippedCount int       `json:"skippedCount"`
	Timestamp    time.Time `json:"timestamp"`
	URL          string    `json:"url,omitempty"`
}

// Total returns passed + failed + skipped.
func (r RunSummary) Total() int {
	return r.PassedCount + r.FailedCount + r.SkippedCount
}

// PassRate returns the passed percentage rounded to one decimal.
// A run with no tests reports 0.
func (r RunSummary) PassRate() float64 {
	total := r.Total()
	if total < 1 {
		total = 1
	}
	return math.Round(float64(r.PassedCount)/float64(total)*1000) / 10
}

// Clickable reports whether the run links to an external build page.
func (r RunSummary) Clickable() bool {
	return r.URL != ""
}

// FragileScenario is a scenario whose history alternates between passing and failing.
type FragileScenario struct {
	SpecName     string  `json:"specName"`
	ScenarioName string  `json:"scenarioName"`
	Score        float64 `json:"fragilityScore"` // 0-100
	FailureRate  float64 `json:"failureRate"`
	Runs         int     `json:"runs"`
}

// Status returns the status string for a scenario
func (s *ScenarioResult) Status() string {
	if s.Failed {
		return "failed"
	}
	if s.Skipped {
		return "skipped"
	}
	return "passed"
}

// FirstFailure returns the first failed step, or nil.
func (s *ScenarioResult) FirstFailure() *StepResult {
	for _, step := range s.Steps {
		if step.Failed {
			return step
		}
	}
	return nil
}

// Counts tallies the spec's scenarios by status. A failed scenario is never
// also counted as skipped.
func (s *SpecResult) Counts() (passed, failed, skipped int) {
	for _, scenario := range s.Scenarios {
		switch scenario.Status() {
		case "failed":
			failed++
		case "skipped":
			skipped++
		default:
			passed++
		}
	}
	return passed, failed, skipped
}
