package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/storage"
)

const (
	// fragilityHistory caps how many past runs of a scenario are weighed.
	fragilityHistory = 50
	// fragilityMinRuns is the fewest runs a scenario needs before it is scored.
	fragilityMinRuns = 3
	// fragilityThreshold is the score a scenario must exceed to be reported.
	fragilityThreshold = 5.0
	// maxFragileScenarios bounds the fragility table.
	maxFragileScenarios = 10
)

// Engine turns recorded history into chart input and report tables
type Engine struct {
	config *config.Config
	db     *storage.Database
}

// NewEngine creates a new analytics engine with database support
func NewEngine(cfg *config.Config, db *storage.Database) *Engine {
	return &Engine{
		config: cfg,
		db:     db,
	}
}

// RecentRuns returns the latest runs as chart input, ordered per chart.order.
func (e *Engine) RecentRuns() ([]models.RunSummary, error) {
	if e.db == nil {
		return nil, nil
	}

	records, err := e.db.GetRecentExecutions(e.config.Chart.MaxRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent executions: %w", err)
	}

	return ToRunSummaries(records, e.config.Chart.Order, e.config.BuildURLTemplate), nil
}

// ToRunSummaries converts newest-first execution records into run summaries.
// Records without a stored URL get one from urlTemplate when it is set.
func ToRunSummaries(records []storage.ExecutionRecord, order, urlTemplate string) []models.RunSummary {
	runs := make([]models.RunSummary, 0, len(records))
	for _, rec := range records {
		url := rec.URL
		if url == "" {
			url = BuildURL(urlTemplate, rec.RunID)
		}
		runs = append(runs, models.RunSummary{
			RunID:        rec.RunID,
			PassedCount:  rec.PassedScenarios,
			FailedCount:  rec.FailedScenarios,
			SkippedCount: rec.SkippedScenarios,
			Timestamp:    rec.Timestamp,
			URL:          url,
		})
	}

	if order != config.OrderNewestFirst {
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	}
	return runs
}

// BuildURL expands a build link template for runID. The first %d is replaced
// literally, so percent-encoded text elsewhere in the template survives. A
// template without %d is returned unchanged; an empty template yields no link.
func BuildURL(template string, runID int) string {
	if template == "" {
		return ""
	}
	return strings.Replace(template, "%d", strconv.Itoa(runID), 1)
}

// DetectFragileScenarios scores every scenario of suite against its history
// and returns the riskiest ones, highest score first.
func (e *Engine) DetectFragileScenarios(suite *models.SuiteResult) []models.FragileScenario {
	if suite == nil {
		return make([]models.FragileScenario, 0)
	}

	var keys []storage.ScenarioKey
	for _, spec := range suite.SpecResults {
		for _, scenario := range spec.Scenarios {
			keys = append(keys, storage.ScenarioKey{SpecName: spec.SpecHeading, ScenarioName: scenario.ScenarioHeading})
		}
	}
	return e.scoreScenarios(keys)
}

// DetectFragileFromHistory scores every scenario recorded within the flaky
// window, for reports rebuilt without a current suite.
func (e *Engine) DetectFragileFromHistory() []models.FragileScenario {
	if e.db == nil || !e.config.FlakyTestDetection {
		return make([]models.FragileScenario, 0)
	}

	keys, err := e.db.ListScenarios(e.config.FlakyWindowDays)
	if err != nil {
		logger.Warnf("Failed to list recorded scenarios: %v", err)
		return make([]models.FragileScenario, 0)
	}
	return e.scoreScenarios(keys)
}

func (e *Engine) scoreScenarios(keys []storage.ScenarioKey) []models.FragileScenario {
	fragile := make([]models.FragileScenario, 0)
	if e.db == nil || !e.config.FlakyTestDetection {
		return fragile
	}

	for _, key := range keys {
		history, err := e.db.GetScenarioHistory(key.SpecName, key.ScenarioName, e.config.FlakyWindowDays, fragilityHistory)
		if err != nil {
			logger.Warnf("Failed to load history for %s: %v", key.ScenarioName, err)
			continue
		}

		statuses := make([]string, len(history))
		for i, h := range history {
			statuses[i] = h.Status
		}

		score, ok := assessFragility(statuses)
		if !ok {
			continue
		}

		fragile = append(fragile, models.FragileScenario{
			SpecName:     key.SpecName,
			ScenarioName: key.ScenarioName,
			Score:        score,
			FailureRate:  failureRate(statuses),
			Runs:         len(statuses),
		})
	}

	sort.SliceStable(fragile, func(i, j int) bool {
		return fragile[i].Score > fragile[j].Score
	})
	if len(fragile) > maxFragileScenarios {
		fragile = fragile[:maxFragileScenarios]
	}
	return fragile
}

// assessFragility returns the rounded score and whether the unrounded score
// clears the reporting threshold.
func assessFragility(statuses []string) (float64, bool) {
	raw, ok := fragility(statuses)
	if !ok || raw <= fragilityThreshold {
		return 0, false
	}
	return roundScore(raw), true
}

// FragilityScore weighs failures by recency: the newest run counts 1, the
// next 1/2, then 1/3 and so on. statuses must be newest first. The result is
// a 0-100 score rounded to one decimal; false means too little history.
func FragilityScore(statuses []string) (float64, bool) {
	raw, ok := fragility(statuses)
	return roundScore(raw), ok
}

func fragility(statuses []string) (float64, bool) {
	if len(statuses) < fragilityMinRuns {
		return 0, false
	}
	if len(statuses) > fragilityHistory {
		statuses = statuses[:fragilityHistory]
	}

	var weighted, total float64
	for i, status := range statuses {
		weight := 1.0 / float64(i+1)
		if status == "failed" {
			weighted += 100 * weight
		}
		total += weight
	}
	return weighted / total, true
}

func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}

func failureRate(statuses []string) float64 {
	failed := 0
	for _, s := range statuses {
		if s == "failed" {
			failed++
		}
	}
	return CalculateSuccessRate(failed, len(statuses))
}

// SaveExecutionData saves current execution to database for historical tracking
func (e *Engine) SaveExecutionData(suite *models.SuiteResult, executionID string, runID int, url string) error {
	if e.db == nil {
		return fmt.Errorf("database not initialized")
	}

	execution := &storage.ExecutionRecord{
		ID:               executionID,
		RunID:            runID,
		Timestamp:        suite.Timestamp,
		TotalScenarios:   suite.TotalScenariosCount,
		PassedScenarios:  suite.PassedScenariosCount,
		FailedScenarios:  suite.FailedScenariosCount,
		SkippedScenarios: suite.SkippedScenariosCount,
		SuccessRate:      suite.SuccessRate,
		Duration:         suite.ExecutionTime.Milliseconds(),
		Environment:      suite.Environment,
		URL:              url,
		Tags:             suite.Tags,
		Metadata:         map[string]string{"project": suite.ProjectName},
	}

	if err := e.db.SaveExecution(execution); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	for _, spec := range suite.SpecResults {
		for _, scenario := range spec.Scenarios {
			record := &storage.ScenarioRecord{
				ExecutionID:  executionID,
				ScenarioName: scenario.ScenarioHeading,
				SpecName:     spec.SpecHeading,
				Status:       scenario.Status(),
				Duration:     scenario.ExecutionTime.Milliseconds(),
			}
			if step := scenario.FirstFailure(); step != nil {
				record.ErrorMessage = step.ErrorMessage
				record.StackTrace = step.StackTrace
			}

			if err := e.db.SaveScenario(record); err != nil {
				logger.Warnf("Failed to save scenario %s: %v", scenario.ScenarioHeading, err)
			}
		}
	}

	return nil
}

// CalculateSuccessRate calculates the success rate percentage
func CalculateSuccessRate(passed, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(passed) / float64(total) * 100.0
}

// FormatDuration formats a duration to a readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
