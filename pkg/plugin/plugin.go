package plugin

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"google.golang.org/grpc"

	"github.com/lirany1/gauge-trend-report/pkg/builder"
	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
)

// Plugin is the Gauge reporter that records each suite and redraws the trend report
type Plugin struct {
	gauge_messages.UnimplementedReporterServer
	config   *config.Config
	server   *grpc.Server
	stopChan chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	reportBuilder *builder.ReportBuilder
}

// NewPlugin creates a new plugin instance
func NewPlugin() *Plugin {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warnf("Failed to load config, using defaults: %v", err)
		cfg = config.NewConfig()
		cfg.LoadFromEnv()
	}
	return newPlugin(cfg)
}

func newPlugin(cfg *config.Config) *Plugin {
	logger.SetLevel(cfg.LogLevel)
	cfg.ReportsDir = resolveReportsDir(cfg.ReportsDir)
	return &Plugin{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// resolveReportsDir anchors the reports directory at the Gauge project root
func resolveReportsDir(configured string) string {
	projectRoot := os.Getenv("GAUGE_PROJECT_ROOT")
	if projectRoot == "" {
		projectRoot = "."
	}

	reportsDir := os.Getenv("gauge_reports_dir")
	if reportsDir == "" {
		reportsDir = configured
	}
	if reportsDir == "" {
		reportsDir = "reports"
	}
	if !filepath.IsAbs(reportsDir) {
		reportsDir = filepath.Join(projectRoot, reportsDir)
	}
	return reportsDir
}

// Start starts the plugin as a gRPC server and blocks until Kill
func (p *Plugin) Start() error {
	address, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to resolve TCP address: %w", err)
	}

	listener, err := net.ListenTCP("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	p.server = grpc.NewServer(grpc.MaxRecvMsgSize(1024 * 1024 * 1024)) // 1GB max message size
	gauge_messages.RegisterReporterServer(p.server, p)

	port := listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := p.server.Serve(listener); err != nil {
			logger.Errorf("gRPC server error: %v", err)
		}
		p.stop()
	}()

	// Gauge's CustomWriter looks for "Listening on port:XXXXX"
	fmt.Fprintf(os.Stdout, "Listening on port:%d\n", port)
	_ = os.Stdout.Sync()

	logger.Infof("gRPC server ready on port %d", port)

	<-p.stopChan
	logger.Info("Plugin shutdown complete")
	return nil
}

func (p *Plugin) stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

// ensureBuilder returns the report builder, creating it on first use
func (p *Plugin) ensureBuilder() *builder.ReportBuilder {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reportBuilder == nil {
		p.reportBuilder = builder.NewReportBuilder(p.config)
		logger.Debugf("Report builder initialized for %s", p.config.ReportsDir)
	}
	return p.reportBuilder
}

// NotifyExecutionStarting opens the history so it is ready for the suite result
func (p *Plugin) NotifyExecutionStarting(ctx context.Context, info *gauge_messages.ExecutionStartingRequest) (*gauge_messages.Empty, error) {
	logger.Info("Execution starting...")
	p.ensureBuilder()
	return &gauge_messages.Empty{}, nil
}

// NotifyExecutionEnding is called when execution ends
func (p *Plugin) NotifyExecutionEnding(ctx context.Context, result *gauge_messages.ExecutionEndingRequest) (*gauge_messages.Empty, error) {
	logger.Info("Execution ending, waiting for suite result...")
	return &gauge_messages.Empty{}, nil
}

// NotifySuiteResult records the suite and regenerates the report
func (p *Plugin) NotifySuiteResult(ctx context.Context, result *gauge_messages.SuiteExecutionResult) (*gauge_messages.Empty, error) {
	if result.GetSuiteResult() == nil {
		logger.Warn("Suite result is empty, skipping report generation")
		return &gauge_messages.Empty{}, nil
	}

	logger.Info("Suite execution complete, generating trend report...")
	rb := p.ensureBuilder()
	if err := rb.BuildReport(ctx, result.GetSuiteResult()); err != nil {
		logger.Errorf("Failed to generate report: %v", err)
		return &gauge_messages.Empty{}, err
	}
	logger.Info("Trend report generated successfully!")

	return &gauge_messages.Empty{}, nil
}

// Kill stops the plugin
func (p *Plugin) Kill(ctx context.Context, request *gauge_messages.KillProcessRequest) (*gauge_messages.Empty, error) {
	logger.Info("Shutting down plugin...")

	p.mu.Lock()
	if p.reportBuilder != nil {
		if err := p.reportBuilder.Close(); err != nil {
			logger.Warnf("Failed to close report builder: %v", err)
		}
		p.reportBuilder = nil
	}
	p.mu.Unlock()

	if p.server != nil {
		go p.server.GracefulStop()
	}
	p.stop()
	return &gauge_messages.Empty{}, nil
}
