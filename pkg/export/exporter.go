package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"

	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/themes"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

// Supported export formats. html is produced by the renderer, not here.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// Exporter handles exporting the run history to various formats
type Exporter struct {
	config *config.Config
	themes *themes.Manager
}

// NewExporter creates a new exporter
func NewExporter(cfg *config.Config) *Exporter {
	return &Exporter{config: cfg, themes: themes.NewManager(cfg)}
}

// runsDocument is the JSON export payload
type runsDocument struct {
	Project     string              `json:"project"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Runs        []models.RunSummary `json:"runs"`
}

// ExportAll writes every requested format into outputDir concurrently,
// bounded by max_concurrent_gen. Unknown formats are skipped with a warning.
func (e *Exporter) ExportAll(ctx context.Context, runs []models.RunSummary, outputDir string, formats []string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if e.config.MaxConcurrentGen > 0 {
		g.SetLimit(e.config.MaxConcurrentGen)
	}

	for _, format := range formats {
		format := format
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return e.Export(runs, outputDir, format)
		})
	}

	return g.Wait()
}

// Export exports the runs to the specified format
func (e *Exporter) Export(runs []models.RunSummary, outputDir, format string) error {
	var name string
	var write func(io.Writer, []models.RunSummary) error

	switch strings.ToLower(format) {
	case FormatJSON:
		name, write = "trend.json", e.WriteJSON
	case FormatSVG:
		name, write = "trend.svg", e.WriteSVG
	case FormatPNG:
		name, write = "trend.png", e.WritePNG
	case "html":
		return nil
	default:
		logger.Warnf("Unknown export format %q, skipping", format)
		return nil
	}

	path := filepath.Join(outputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	if err := write(f, runs); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to export %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	logger.Infof("Exported %s", path)
	return nil
}

// WriteJSON writes the run summaries as an indented JSON document
func (e *Exporter) WriteJSON(w io.Writer, runs []models.RunSummary) error {
	if runs == nil {
		runs = []models.RunSummary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runsDocument{
		Project:     e.config.ProjectName,
		GeneratedAt: time.Now().UTC(),
		Runs:        runs,
	})
}

// WriteSVG writes a standalone trend chart without hover tooltips
func (e *Exporter) WriteSVG(w io.Writer, runs []models.RunSummary) error {
	view := trendchart.NewViewState()
	view.ShowBars = e.config.Chart.ShowBars
	view.ShowTrendLine = e.config.Chart.ShowTrendLine

	return trendchart.Render(w, runs, e.viewport(), view, trendchart.RenderOptions{
		Palette: e.themes.Current().Chart,
	})
}

// WritePNG rasterises the run history as one line per outcome. The y axis
// reuses the trend chart's ticks so both exports read the same.
func (e *Exporter) WritePNG(w io.Writer, runs []models.RunSummary) error {
	if len(runs) == 0 {
		return trendchart.ErrEmptySequence
	}

	scale, err := trendchart.ComputeScale(runs, e.viewport())
	if err != nil {
		return err
	}

	xs := make([]float64, len(runs))
	xTicks := make([]chart.Tick, len(runs))
	passed := make([]float64, len(runs))
	failed := make([]float64, len(runs))
	skipped := make([]float64, len(runs))
	for i, run := range runs {
		xs[i] = float64(i)
		xTicks[i] = chart.Tick{Value: float64(i), Label: fmt.Sprintf("#%d", run.RunID)}
		passed[i] = float64(run.PassedCount)
		failed[i] = float64(run.FailedCount)
		skipped[i] = float64(run.SkippedCount)
	}
	// a lone run is drawn as a zero-length segment so its dot still renders
	if len(xs) == 1 {
		xs = append(xs, xs[0])
		passed = append(passed, passed[0])
		failed = append(failed, failed[0])
		skipped = append(skipped, skipped[0])
	}

	yTicks := make([]chart.Tick, len(scale.Ticks))
	for i, tick := range scale.Ticks {
		yTicks[i] = chart.Tick{Value: float64(tick.Value), Label: fmt.Sprintf("%d", tick.Value)}
	}

	palette := e.themes.Current().Chart
	series := []chart.Series{
		chart.ContinuousSeries{Name: "Passed", XValues: xs, YValues: passed, Style: lineStyle(palette.Passed.Top)},
		chart.ContinuousSeries{Name: "Failed", XValues: xs, YValues: failed, Style: lineStyle(palette.Failed.Top)},
		chart.ContinuousSeries{Name: "Skipped", XValues: xs, YValues: skipped, Style: lineStyle(palette.Skipped.Top)},
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s - Execution Trend", e.config.ProjectName),
		Width:      int(e.config.Chart.Width),
		Height:     int(e.config.Chart.Height),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 24}},
		XAxis: chart.XAxis{
			Name: "Run",
			// half a slot either side keeps the x range non-zero for one run
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(runs)) - 0.5},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Name:  "Total tests",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(scale.MaxTotal)},
			Ticks: yTicks,
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("failed to render png: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func (e *Exporter) viewport() trendchart.Viewport {
	return trendchart.Viewport{Width: e.config.Chart.Width, Height: e.config.Chart.Height}
}

func lineStyle(hex string) chart.Style {
	col := drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 3,
		DotColor:    col,
		DotWidth:    4,
	}
}
