package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

// Run ordering on the chart's x axis.
const (
	OrderOldestFirst = "oldest-first"
	OrderNewestFirst = "newest-first"
)

// Config holds the configuration for report generation
type Config struct {
	// General settings
	ProjectName string `mapstructure:"project_name"`
	ReportsDir  string `mapstructure:"reports_dir"`
	ThemePath   string `mapstructure:"theme_path"`
	LogLevel    string `mapstructure:"log_level"`

	// History settings
	HistoryEnabled     bool `mapstructure:"history_enabled"`
	RetentionDays      int  `mapstructure:"retention_days"`
	FlakyTestDetection bool `mapstructure:"flaky_test_detection"`
	FlakyWindowDays    int  `mapstructure:"flaky_window_days"`

	// Trend chart settings
	Chart ChartConfig `mapstructure:"chart"`

	// Build links: BuildURLTemplate may contain %d for the run id;
	// BuildURL is a fixed link for the current run (e.g. Jenkins BUILD_URL).
	BuildURLTemplate string `mapstructure:"build_url_template"`
	BuildURL         string `mapstructure:"build_url"`
	BuildNumber      int    `mapstructure:"build_number"`

	// Export settings
	ExportFormats    []string `mapstructure:"export_formats"`
	MaxConcurrentGen int      `mapstructure:"max_concurrent_gen"`
}

// ChartConfig holds trend chart rendering defaults
type ChartConfig struct {
	Width         float64 `mapstructure:"width"`
	Height        float64 `mapstructure:"height"`
	MaxRuns       int     `mapstructure:"max_runs"`
	ShowBars      bool    `mapstructure:"show_bars"`
	ShowTrendLine bool    `mapstructure:"show_trend_line"`
	Order         string  `mapstructure:"order"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ProjectName:        getProjectName(),
		ReportsDir:         "reports",
		ThemePath:          "light",
		LogLevel:           "info",
		HistoryEnabled:     true,
		RetentionDays:      90,
		FlakyTestDetection: true,
		FlakyWindowDays:    30,
		Chart: ChartConfig{
			Width:         800,
			Height:        400,
			MaxRuns:       10,
			ShowBars:      true,
			ShowTrendLine: true,
			Order:         OrderOldestFirst,
		},
		ExportFormats:    []string{"html"},
		MaxConcurrentGen: 4,
	}
}

// LoadConfig loads configuration from the first config file found, then
// applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := NewConfig()

	configPaths := []string{
		"gauge-report-config.yml",
		"gauge-report-config.yaml",
		"gauge-report-config.json",
		filepath.Join(".gauge", "report-config.yml"),
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		break
	}

	cfg.LoadFromEnv()
	return cfg, cfg.Validate()
}

// LoadFromFile loads configuration from a file (YAML, JSON, or TOML)
func (c *Config) LoadFromFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if dir := os.Getenv("GAUGE_REPORTS_DIR"); dir != "" {
		c.ReportsDir = dir
	}

	if theme := os.Getenv("GAUGE_HTML_THEME"); theme != "" {
		c.ThemePath = theme
	}

	if level := os.Getenv("GAUGE_REPORT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if tmpl := os.Getenv("TREND_BUILD_URL_TEMPLATE"); tmpl != "" {
		c.BuildURLTemplate = tmpl
	}

	if buildURL := os.Getenv("BUILD_URL"); buildURL != "" {
		c.BuildURL = buildURL
	}

	// Jenkins sets BUILD_NUMBER, Azure Pipelines sets BUILD_BUILDID
	for _, key := range []string{"BUILD_NUMBER", "BUILD_BUILDID"} {
		if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
			c.BuildNumber = n
			break
		}
	}

	if maxRuns, err := strconv.Atoi(os.Getenv("TREND_MAX_RUNS")); err == nil && maxRuns > 0 {
		c.Chart.MaxRuns = maxRuns
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	v.Set("project_name", c.ProjectName)
	v.Set("reports_dir", c.ReportsDir)
	v.Set("theme_path", c.ThemePath)
	v.Set("log_level", c.LogLevel)
	v.Set("history_enabled", c.HistoryEnabled)
	v.Set("retention_days", c.RetentionDays)
	v.Set("build_url_template", c.BuildURLTemplate)
	v.Set("export_formats", c.ExportFormats)
	v.Set("chart.width", c.Chart.Width)
	v.Set("chart.height", c.Chart.Height)
	v.Set("chart.max_runs", c.Chart.MaxRuns)
	v.Set("chart.show_bars", c.Chart.ShowBars)
	v.Set("chart.show_trend_line", c.Chart.ShowTrendLine)
	v.Set("chart.order", c.Chart.Order)

	return v.WriteConfig()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Chart.MaxRuns < 1 {
		return fmt.Errorf("chart.max_runs must be positive, got %d", c.Chart.MaxRuns)
	}
	vp := trendchart.Viewport{Width: c.Chart.Width, Height: c.Chart.Height}
	if err := vp.Validate(); err != nil {
		return fmt.Errorf("chart dimensions %vx%v: %w", c.Chart.Width, c.Chart.Height, err)
	}
	switch c.Chart.Order {
	case OrderOldestFirst, OrderNewestFirst:
	default:
		return fmt.Errorf("chart.order must be %q or %q, got %q", OrderOldestFirst, OrderNewestFirst, c.Chart.Order)
	}
	if c.BuildURLTemplate != "" && strings.Count(c.BuildURLTemplate, "%d") > 1 {
		return fmt.Errorf("build_url_template may contain at most one %%d")
	}
	return nil
}

// getProjectName tries to get project name from current directory
func getProjectName() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "Gauge Project"
	}
	return filepath.Base(cwd)
}
