package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lirany1/gauge-trend-report/pkg/logger"
)

// sqliteTime matches SQLite's datetime() output so range filters compare correctly.
const sqliteTime = "2006-01-02 15:04:05"

// Database handles historical test execution data
type Database struct {
	db   *sql.DB
	path string
}

// ExecutionRecord represents a single test execution run
type ExecutionRecord struct {
	ID               string            `json:"id"`
	RunID            int               `json:"runId"`
	Timestamp        time.Time         `json:"timestamp"`
	Duration         int64             `json:"duration"`
	TotalScenarios   int               `json:"totalScenarios"`
	PassedScenarios  int               `json:"passedScenarios"`
	FailedScenarios  int               `json:"failedScenarios"`
	SkippedScenarios int               `json:"skippedScenarios"`
	SuccessRate      float64           `json:"successRate"`
	Environment      string            `json:"environment"`
	URL              string            `json:"url,omitempty"`
	Tags             []string          `json:"tags"`
	Metadata         map[string]string `json:"metadata"`
}

// ScenarioRecord represents a single scenario execution
type ScenarioRecord struct {
	ExecutionID  string `json:"executionId"`
	ScenarioName string `json:"scenarioName"`
	SpecName     string `json:"specName"`
	Status       string `json:"status"`
	Duration     int64  `json:"duration"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StackTrace   string `json:"stackTrace,omitempty"`
}

// ScenarioKey identifies a scenario across executions
type ScenarioKey struct {
	SpecName     string
	ScenarioName string
}

// NewDatabase creates or opens the history database under reportsDir
func NewDatabase(reportsDir string) (*Database, error) {
	historyDir := filepath.Join(reportsDir, ".gauge-history")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return Open(filepath.Join(historyDir, "test-history.db"))
}

// Open opens the database file at dbPath and migrates it
func Open(dbPath string) (*Database, error) {
	logger.Debugf("Opening database at: %s", dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// the plugin and server write from one process; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:   db,
		path: dbPath,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return database, nil
}

// Path returns the database file location
func (d *Database) Path() string {
	return d.path
}

// migrate creates or updates the database schema
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			run_id INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			duration INTEGER NOT NULL,
			total_scenarios INTEGER,
			passed_scenarios INTEGER,
			failed_scenarios INTEGER,
			skipped_scenarios INTEGER,
			success_rate REAL,
			environment TEXT,
			url TEXT,
			tags TEXT,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_execution_timestamp
		 ON executions(timestamp DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_execution_run
		 ON executions(run_id)`,

		`CREATE TABLE IF NOT EXISTS scenario_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL,
			scenario_name TEXT NOT NULL,
			spec_name TEXT NOT NULL,
			status TEXT NOT NULL,
			duration INTEGER,
			error_message TEXT,
			stack_trace TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (execution_id) REFERENCES executions(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scenario_name
		 ON scenario_history(scenario_name)`,

		`CREATE INDEX IF NOT EXISTS idx_scenario_execution
		 ON scenario_history(execution_id)`,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	logger.Debugf("Database migrations completed")
	return nil
}

// NextRunID returns one past the highest recorded run id
func (d *Database) NextRunID() (int, error) {
	var maxID sql.NullInt64
	if err := d.db.QueryRow(`SELECT MAX(run_id) FROM executions`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to read run ids: %w", err)
	}
	return int(maxID.Int64) + 1, nil
}

// SaveExecution saves an execution record to the database
func (d *Database) SaveExecution(exec *ExecutionRecord) error {
	query := `
		INSERT INTO executions (
			id, run_id, timestamp, duration, total_scenarios,
			passed_scenarios, failed_scenarios, skipped_scenarios,
			success_rate, environment, url, tags, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	tagsJSON, err := json.Marshal(exec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	metadataJSON, err := json.Marshal(exec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = d.db.Exec(query,
		exec.ID,
		exec.RunID,
		exec.Timestamp.UTC().Format(sqliteTime),
		exec.Duration,
		exec.TotalScenarios,
		exec.PassedScenarios,
		exec.FailedScenarios,
		exec.SkippedScenarios,
		exec.SuccessRate,
		exec.Environment,
		exec.URL,
		string(tagsJSON),
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	logger.Infof("Saved execution record: %s (run #%d)", exec.ID, exec.RunID)
	return nil
}

// SaveScenario saves a scenario result
func (d *Database) SaveScenario(scenario *ScenarioRecord) error {
	query := `
		INSERT INTO scenario_history (
			execution_id, scenario_name, spec_name, status,
			duration, error_message, stack_trace
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(query,
		scenario.ExecutionID,
		scenario.ScenarioName,
		scenario.SpecName,
		scenario.Status,
		scenario.Duration,
		scenario.ErrorMessage,
		scenario.StackTrace,
	)

	return err
}

// GetRecentExecutions retrieves the last N executions, newest first
func (d *Database) GetRecentExecutions(limit int) ([]ExecutionRecord, error) {
	query := `
		SELECT
			id, run_id, timestamp, duration, total_scenarios,
			passed_scenarios, failed_scenarios, skipped_scenarios,
			success_rate, environment, url, tags, metadata
		FROM executions
		ORDER BY timestamp DESC, run_id DESC
		LIMIT ?
	`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []ExecutionRecord
	for rows.Next() {
		var exec ExecutionRecord
		var timestamp string
		var environment, url, tagsJSON, metadataJSON sql.NullString

		err := rows.Scan(
			&exec.ID,
			&exec.RunID,
			&timestamp,
			&exec.Duration,
			&exec.TotalScenarios,
			&exec.PassedScenarios,
			&exec.FailedScenarios,
			&exec.SkippedScenarios,
			&exec.SuccessRate,
			&environment,
			&url,
			&tagsJSON,
			&metadataJSON,
		)
		if err != nil {
			logger.Warnf("Skipping unreadable execution row: %v", err)
			continue
		}

		exec.Timestamp = parseTime(timestamp)
		exec.Environment = environment.String
		exec.URL = url.String
		if tagsJSON.Valid {
			_ = json.Unmarshal([]byte(tagsJSON.String), &exec.Tags)
		}
		if metadataJSON.Valid {
			_ = json.Unmarshal([]byte(metadataJSON.String), &exec.Metadata)
		}

		executions = append(executions, exec)
	}

	return executions, rows.Err()
}

// GetScenarioHistory retrieves up to limit records for a scenario within the
// last days, newest first
func (d *Database) GetScenarioHistory(specName, scenarioName string, days, limit int) ([]ScenarioRecord, error) {
	query := `
		SELECT
			sh.execution_id, sh.scenario_name, sh.spec_name,
			sh.status, sh.duration, sh.error_message, sh.stack_trace
		FROM scenario_history sh
		JOIN executions e ON sh.execution_id = e.id
		WHERE sh.spec_name = ? AND sh.scenario_name = ?
		AND e.timestamp >= datetime('now', '-' || ? || ' days')
		ORDER BY e.timestamp DESC, e.run_id DESC
		LIMIT ?
	`

	rows, err := d.db.Query(query, specName, scenarioName, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []ScenarioRecord
	for rows.Next() {
		var scenario ScenarioRecord
		var errorMessage, stackTrace sql.NullString
		err := rows.Scan(
			&scenario.ExecutionID,
			&scenario.ScenarioName,
			&scenario.SpecName,
			&scenario.Status,
			&scenario.Duration,
			&errorMessage,
			&stackTrace,
		)
		if err != nil {
			continue
		}
		scenario.ErrorMessage = errorMessage.String
		scenario.StackTrace = stackTrace.String
		scenarios = append(scenarios, scenario)
	}

	return scenarios, rows.Err()
}

// ListScenarios returns the distinct scenarios recorded within the last days,
// ordered by spec then scenario name
func (d *Database) ListScenarios(days int) ([]ScenarioKey, error) {
	query := `
		SELECT DISTINCT sh.spec_name, sh.scenario_name
		FROM scenario_history sh
		JOIN executions e ON sh.execution_id = e.id
		WHERE e.timestamp >= datetime('now', '-' || ? || ' days')
		ORDER BY sh.spec_name, sh.scenario_name
	`

	rows, err := d.db.Query(query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []ScenarioKey
	for rows.Next() {
		var key ScenarioKey
		if err := rows.Scan(&key.SpecName, &key.ScenarioName); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// CleanupOldData removes executions older than retentionDays along with their scenarios
func (d *Database) CleanupOldData(retentionDays int) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff := `datetime('now', '-' || ? || ' days')`
	if _, err := tx.Exec(`DELETE FROM scenario_history WHERE execution_id IN (
		SELECT id FROM executions WHERE timestamp < `+cutoff+`)`, retentionDays); err != nil {
		return 0, fmt.Errorf("failed to cleanup scenario_history: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM executions WHERE timestamp < `+cutoff, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup executions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	removed, _ := result.RowsAffected()
	logger.Infof("Cleaned up %d old executions", removed)
	return removed, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{sqliteTime, time.RFC3339, "2006-01-02T15:04:05Z"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
