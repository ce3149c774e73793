package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lirany1/gauge-trend-report/pkg/analytics"
	"github.com/lirany1/gauge-trend-report/pkg/builder"
	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/generator"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/plugin"
	"github.com/lirany1/gauge-trend-report/pkg/server"
	"github.com/lirany1/gauge-trend-report/pkg/storage"
	"github.com/lirany1/gauge-trend-report/pkg/themes"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Gauge starts reporters with <plugin-id>_action=execution
	if os.Getenv("trend-report_action") == "execution" || len(os.Args) == 1 {
		runAsGaugePlugin()
		return
	}

	if err := newRootCmd().Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trend-report",
		Short: "Execution trend report for Gauge",
		Long: `Execution Trend Report Plugin for Gauge

Records every suite run in a local history and renders the latest runs as a
stacked pass/fail/skip chart with a passed-count trend line.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("reports-dir", "d", "", "Reports directory holding the history and the report")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Record saved Gauge results and generate the trend report",
		Long:  "Record one or more protobuf-encoded Gauge suite results, oldest first, then render the trend report. With --from-history only the report is rebuilt.",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringSliceP("input", "i", nil, "Protobuf suite result files, oldest first")
	generateCmd.Flags().Bool("from-history", false, "Rebuild the report from recorded runs only")
	generateCmd.Flags().StringP("theme", "t", "", "Theme to use (light, dark or a theme directory)")
	generateCmd.Flags().StringSliceP("formats", "f", nil, "Export formats (html, json, svg, png)")
	generateCmd.Flags().Int("max-runs", 0, "Number of recent runs to chart")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start live report server",
		Long:  "Serve the generated report together with an interactive chart API backed by the run history.",
		RunE:  runServe,
	}
	serveCmd.Flags().IntP("port", "p", 8080, "Port to run server on")
	serveCmd.Flags().StringP("host", "H", "localhost", "Host to bind server to")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the recorded run history",
	}
	historyListCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE:  runHistoryList,
	}
	historyListCmd.Flags().IntP("limit", "n", 0, "Number of runs to list (defaults to chart.max_runs)")
	historyListCmd.Flags().Bool("json", false, "Print runs as JSON")
	historyCmd.AddCommand(historyListCmd)

	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Manage report themes",
	}
	themeCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available themes",
		RunE:  runListThemes,
	})

	pluginCmd := &cobra.Command{
		Use:   "plugin",
		Short: "Run as Gauge plugin",
		Long:  "Start the plugin in Gauge plugin mode (used internally by Gauge).",
		Run:   func(cmd *cobra.Command, args []string) { runAsGaugePlugin() },
	}

	rootCmd.AddCommand(generateCmd, serveCmd, historyCmd, themeCmd, pluginCmd)
	return rootCmd
}

// loadConfig resolves configuration from file, env and the persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	reportsDir, _ := cmd.Flags().GetString("reports-dir")

	var cfg *config.Config
	if configFile != "" {
		cfg = config.NewConfig()
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.LoadFromEnv()
	} else {
		var err error
		if cfg, err = config.LoadConfig(); err != nil {
			return nil, err
		}
	}

	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, cfg.Validate()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputs, _ := cmd.Flags().GetStringSlice("input")
	fromHistory, _ := cmd.Flags().GetBool("from-history")
	if len(inputs) == 0 && !fromHistory {
		return fmt.Errorf("either --input or --from-history is required")
	}

	if theme, _ := cmd.Flags().GetString("theme"); theme != "" {
		cfg.ThemePath = theme
	}
	if formats, _ := cmd.Flags().GetStringSlice("formats"); len(formats) > 0 {
		cfg.ExportFormats = formats
	}
	if maxRuns, _ := cmd.Flags().GetInt("max-runs"); maxRuns > 0 {
		cfg.Chart.MaxRuns = maxRuns
	}

	logger.WithFields(logger.Fields{
		"reportsDir": cfg.ReportsDir,
		"theme":      cfg.ThemePath,
		"formats":    cfg.ExportFormats,
	}).Info("Starting trend report generation")

	gen := generator.NewGenerator(cfg)
	defer gen.Close()

	ctx := cmd.Context()
	if fromHistory {
		err = gen.GenerateFromHistory(ctx)
	} else {
		err = gen.GenerateFromFiles(ctx, inputs...)
	}
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	logger.Infof("View report: file://%s", filepath.Join(gen.Builder().ReportDir(), "index.html"))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	db, err := storage.NewDatabase(cfg.ReportsDir)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	reportDir := filepath.Join(cfg.ReportsDir, builder.ReportDirName)
	logger.Infof("Serving reports from: %s", reportDir)

	srv := server.NewServer(&server.Config{
		Host:       host,
		Port:       port,
		ReportsDir: reportDir,
		Viewport:   trendchart.Viewport{Width: cfg.Chart.Width, Height: cfg.Chart.Height},
		Palette:    themes.NewManager(cfg).Current().Chart,
	}, analytics.NewEngine(cfg, db))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		cfg.Chart.MaxRuns = limit
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	db, err := storage.NewDatabase(cfg.ReportsDir)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	runs, err := analytics.NewEngine(cfg, db).RecentRuns()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, trendchart.EmptyStateMessage)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTIMESTAMP\tPASSED\tFAILED\tSKIPPED\tPASS RATE\tURL")
	for _, run := range runs {
		fmt.Fprintf(w, "#%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			run.RunID,
			run.Timestamp.Local().Format("2006-01-02 15:04"),
			run.PassedCount,
			run.FailedCount,
			run.SkippedCount,
			trendchart.FormatPassRate(run),
			run.URL,
		)
	}
	return w.Flush()
}

func runListThemes(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available themes:")
	for _, name := range themes.ListThemes() {
		fmt.Fprintf(out, "  • %s\n", name)
	}
	return nil
}

func runAsGaugePlugin() {
	logger.Info("Starting trend report plugin")

	p := plugin.NewPlugin()
	if err := p.Start(); err != nil {
		logger.Fatalf("Failed to start plugin: %v", err)
	}
}
