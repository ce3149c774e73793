package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"github.com/google/uuid"

	"github.com/lirany1/gauge-trend-report/pkg/analytics"
	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/export"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/renderer"
	"github.com/lirany1/gauge-trend-report/pkg/storage"
	"github.com/lirany1/gauge-trend-report/pkg/themes"
)

// ReportDirName is the folder under the reports directory that holds the report
const ReportDirName = "html-report"

// ReportBuilder handles building the trend report
type ReportBuilder struct {
	reportsDir string
	config     *config.Config
	db         *storage.Database
	analytics  *analytics.Engine
	renderer   *renderer.Renderer
	exporter   *export.Exporter
	themes     *themes.Manager
}

// NewReportBuilder creates a new report builder with analytics integration
func NewReportBuilder(cfg *config.Config) *ReportBuilder {
	var db *storage.Database
	if cfg.HistoryEnabled {
		var err error
		db, err = storage.NewDatabase(cfg.ReportsDir)
		if err != nil {
			logger.Warnf("Failed to initialize database: %v", err)
			logger.Warnf("Historical data and trends will not be available")
			db = nil
		}
	}

	return &ReportBuilder{
		reportsDir: cfg.ReportsDir,
		config:     cfg,
		db:         db,
		analytics:  analytics.NewEngine(cfg, db),
		renderer:   renderer.NewRenderer(cfg),
		exporter:   export.NewExporter(cfg),
		themes:     themes.NewManager(cfg),
	}
}

// Analytics exposes the engine backing this builder
func (rb *ReportBuilder) Analytics() *analytics.Engine {
	return rb.analytics
}

// ReportDir is where index.html and the exports are written
func (rb *ReportBuilder) ReportDir() string {
	return filepath.Join(rb.reportsDir, ReportDirName)
}

// Close releases database resources
func (rb *ReportBuilder) Close() error {
	if rb.db != nil {
		return rb.db.Close()
	}
	return nil
}

// BuildReport records a Gauge suite result and generates the report
func (rb *ReportBuilder) BuildReport(ctx context.Context, suiteResult *gauge_messages.ProtoSuiteResult) error {
	return rb.Build(ctx, ConvertSuite(suiteResult))
}

// Build records suite in the history and regenerates the report from it
func (rb *ReportBuilder) Build(ctx context.Context, suite *models.SuiteResult) error {
	if suite.ProjectName == "" {
		suite.ProjectName = rb.config.ProjectName
	}

	if rb.db != nil {
		if err := rb.record(suite); err != nil {
			logger.Warnf("Failed to save execution data: %v", err)
		}
	}

	runs, err := rb.analytics.RecentRuns()
	if err != nil {
		return err
	}

	return rb.render(ctx, renderer.Page{
		ProjectName: suite.ProjectName,
		Suite:       suite,
		Runs:        runs,
		Fragile:     rb.analytics.DetectFragileScenarios(suite),
	})
}

// BuildFromHistory regenerates the report from recorded runs only
func (rb *ReportBuilder) BuildFromHistory(ctx context.Context) error {
	runs, err := rb.analytics.RecentRuns()
	if err != nil {
		return err
	}
	return rb.render(ctx, renderer.Page{
		ProjectName: rb.config.ProjectName,
		Runs:        runs,
		Fragile:     rb.analytics.DetectFragileFromHistory(),
	})
}

// record saves suite under a fresh execution id and the next run id
func (rb *ReportBuilder) record(suite *models.SuiteResult) error {
	runID := rb.config.BuildNumber
	if runID <= 0 {
		next, err := rb.db.NextRunID()
		if err != nil {
			return err
		}
		runID = next
	}

	url := rb.config.BuildURL
	if url == "" {
		url = analytics.BuildURL(rb.config.BuildURLTemplate, runID)
	}

	executionID := uuid.New().String()
	if err := rb.analytics.SaveExecutionData(suite, executionID, runID, url); err != nil {
		return err
	}
	logger.WithFields(logger.Fields{"executionId": executionID, "runId": runID}).Info("Saved execution data")

	if rb.config.RetentionDays > 0 {
		if _, err := rb.db.CleanupOldData(rb.config.RetentionDays); err != nil {
			logger.Warnf("Failed to clean up old history: %v", err)
		}
	}
	return nil
}

func (rb *ReportBuilder) render(ctx context.Context, page renderer.Page) error {
	reportDir := rb.ReportDir()

	if err := rb.renderer.WriteIndex(reportDir, page); err != nil {
		return fmt.Errorf("failed to generate index.html: %w", err)
	}

	if err := rb.themes.CopyAssets(reportDir); err != nil {
		logger.Warnf("Failed to copy assets: %v", err)
	}

	if err := rb.exporter.ExportAll(ctx, page.Runs, reportDir, rb.config.ExportFormats); err != nil {
		logger.Warnf("Failed to export report: %v", err)
	}

	logger.Infof("Successfully generated html-report to => %s", filepath.Join(reportDir, "index.html"))
	return nil
}

// ConvertSuite converts a Gauge proto suite result into the report model
func ConvertSuite(proto *gauge_messages.ProtoSuiteResult) *models.SuiteResult {
	suite := &models.SuiteResult{
		ProjectName:   proto.GetProjectName(),
		Environment:   proto.GetEnvironment(),
		Tags:          splitTags(proto.GetTags()),
		ExecutionTime: time.Duration(proto.GetExecutionTime()) * time.Millisecond,
		Timestamp:     time.Now(),
		SpecResults:   make([]*models.SpecResult, 0),
	}

	for _, protoSpec := range proto.GetSpecResults() {
		spec := convertSpecResult(protoSpec)
		suite.SpecResults = append(suite.SpecResults, spec)

		passed, failed, skipped := spec.Counts()
		suite.PassedScenariosCount += passed
		suite.FailedScenariosCount += failed
		suite.SkippedScenariosCount += skipped
		suite.TotalScenariosCount += passed + failed + skipped
	}

	suite.SuccessRate = analytics.CalculateSuccessRate(suite.PassedScenariosCount, suite.TotalScenariosCount)

	if proto.GetPreHookFailure() != nil {
		suite.BeforeSuiteFailure = convertHookFailure(proto.GetPreHookFailure())
	}
	if proto.GetPostHookFailure() != nil {
		suite.AfterSuiteFailure = convertHookFailure(proto.GetPostHookFailure())
	}

	return suite
}

func convertSpecResult(proto *gauge_messages.ProtoSpecResult) *models.SpecResult {
	spec := &models.SpecResult{
		SpecHeading:   proto.GetProtoSpec().GetSpecHeading(),
		FileName:      proto.GetProtoSpec().GetFileName(),
		Tags:          proto.GetProtoSpec().GetTags(),
		ExecutionTime: time.Duration(proto.GetExecutionTime()) * time.Millisecond,
		Failed:        proto.GetFailed(),
		Skipped:       proto.GetSkipped(),
		Scenarios:     make([]*models.ScenarioResult, 0),
	}

	for _, item := range proto.GetProtoSpec().GetItems() {
		if item.GetItemType() == gauge_messages.ProtoItem_Scenario {
			spec.Scenarios = append(spec.Scenarios, convertScenario(item.GetScenario()))
		}
	}

	return spec
}

func convertScenario(proto *gauge_messages.ProtoScenario) *models.ScenarioResult {
	scenario := &models.ScenarioResult{
		ScenarioHeading: proto.GetScenarioHeading(),
		Tags:            proto.GetTags(),
		ExecutionTime:   time.Duration(proto.GetExecutionTime()) * time.Millisecond,
		Failed:          proto.GetFailed(),
		Skipped:         proto.GetSkipped(),
		Steps:           make([]*models.StepResult, 0),
	}

	for _, item := range proto.GetScenarioItems() {
		if item.GetItemType() != gauge_messages.ProtoItem_Step {
			continue
		}
		step := convertStep(item.GetStep())
		scenario.Steps = append(scenario.Steps, step)
		// a failed step fails the scenario even when the flag was not set
		if step.Failed {
			scenario.Failed = true
			logger.Debugf("Scenario '%s' marked as failed due to step: %s", scenario.ScenarioHeading, step.StepText)
		}
	}

	return scenario
}

func convertStep(proto *gauge_messages.ProtoStep) *models.StepResult {
	execResult := proto.GetStepExecutionResult().GetExecutionResult()

	step := &models.StepResult{
		StepText:      proto.GetParsedText(),
		ExecutionTime: time.Duration(execResult.GetExecutionTime()) * time.Millisecond,
		Failed:        execResult.GetFailed(),
		Skipped:       proto.GetStepExecutionResult().GetSkipped(),
	}

	if step.Failed {
		step.ErrorMessage = execResult.GetErrorMessage()
		step.StackTrace = execResult.GetStackTrace()
	}

	return step
}

func convertHookFailure(proto *gauge_messages.ProtoHookFailure) *models.HookFailure {
	return &models.HookFailure{
		ErrorMessage: proto.GetErrorMessage(),
		StackTrace:   proto.GetStackTrace(),
	}
}

// splitTags splits Gauge's comma-separated tag string
func splitTags(tags string) []string {
	result := make([]string, 0)
	for _, tag := range strings.Split(tags, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
