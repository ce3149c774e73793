package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"

	"github.com/lirany1/gauge-trend-report/pkg/builder"
	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
)

// Generator produces reports offline, outside a Gauge run
type Generator struct {
	config  *config.Config
	builder *builder.ReportBuilder
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		config:  cfg,
		builder: builder.NewReportBuilder(cfg),
	}
}

// Builder exposes the underlying report builder
func (g *Generator) Builder() *builder.ReportBuilder {
	return g.builder
}

// Close releases the history database
func (g *Generator) Close() error {
	return g.builder.Close()
}

// GenerateFromFiles records saved protobuf suite results in the given order
// and regenerates the report after the last one. Files are decoded
// concurrently; a single unreadable file aborts the whole batch.
func (g *Generator) GenerateFromFiles(ctx context.Context, inputFiles ...string) error {
	if len(inputFiles) == 0 {
		return fmt.Errorf("no input files given")
	}

	startTime := time.Now()
	results := make([]*gauge_messages.ProtoSuiteResult, len(inputFiles))

	eg, egctx := errgroup.WithContext(ctx)
	if g.config.MaxConcurrentGen > 0 {
		eg.SetLimit(g.config.MaxConcurrentGen)
	}
	for i, path := range inputFiles {
		i, path := i, path
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			result, err := readSuiteResult(path)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, result := range results {
		logger.Infof("Recording test results from %s", inputFiles[i])
		if err := g.builder.BuildReport(ctx, result); err != nil {
			return fmt.Errorf("failed to build report for %s: %w", inputFiles[i], err)
		}
	}

	logger.Infof("Report generated in %v", time.Since(startTime))
	return nil
}

// GenerateFromHistory regenerates the report from recorded runs only
func (g *Generator) GenerateFromHistory(ctx context.Context) error {
	logger.Info("Rebuilding report from history...")
	return g.builder.BuildFromHistory(ctx)
}

// readSuiteResult reads one saved protobuf suite result
func readSuiteResult(path string) (*gauge_messages.ProtoSuiteResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	result := &gauge_messages.ProtoSuiteResult{}
	if err := proto.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proto data from %s: %w", path, err)
	}
	return result, nil
}
