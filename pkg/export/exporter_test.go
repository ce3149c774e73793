package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

func runs() []models.RunSummary {
	return []models.RunSummary{
		{RunID: 1, PassedCount: 8, FailedCount: 2},
		{RunID: 2, PassedCount: 9, FailedCount: 0, SkippedCount: 1, URL: "https://ci.example.com/2"},
		{RunID: 3, PassedCount: 10},
	}
}

func TestWriteJSON(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProjectName = "checkout"

	var buf bytes.Buffer
	require.NoError(t, NewExporter(cfg).WriteJSON(&buf, runs()))

	var doc struct {
		Project string `json:"project"`
		Runs    []struct {
			RunID       int    `json:"runId"`
			PassedCount int    `json:"passedCount"`
			URL         string `json:"url"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "checkout", doc.Project)
	require.Len(t, doc.Runs, 3)
	assert.Equal(t, 8, doc.Runs[0].PassedCount)
	assert.Empty(t, doc.Runs[0].URL)
	assert.Equal(t, "https://ci.example.com/2", doc.Runs[1].URL)
}

func TestWriteJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(config.NewConfig()).WriteJSON(&buf, nil))
	assert.Contains(t, buf.String(), `"runs": []`)
}

func TestWriteSVG_RespectsToggles(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Chart.ShowTrendLine = false

	var buf bytes.Buffer
	require.NoError(t, NewExporter(cfg).WriteSVG(&buf, runs()))
	svg := buf.String()

	assert.Contains(t, svg, `class="tc-bars"`)
	assert.NotContains(t, svg, `class="tc-trend"`)
	assert.NotContains(t, svg, `class="tc-tip"`, "static exports carry no hover tooltips")
}

func TestWritePNG(t *testing.T) {
	exp := NewExporter(config.NewConfig())

	var buf bytes.Buffer
	require.NoError(t, exp.WritePNG(&buf, runs()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	err = exp.WritePNG(&bytes.Buffer{}, nil)
	assert.True(t, errors.Is(err, trendchart.ErrEmptySequence))
}

func TestWritePNG_SingleRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(config.NewConfig()).WritePNG(&buf, runs()[:1]))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestExport_SingleRunPNG(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewExporter(config.NewConfig()).Export(runs()[:1], dir, FormatPNG))

	info, err := os.Stat(filepath.Join(dir, "trend.png"))
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestExport_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	err := NewExporter(config.NewConfig()).Export(nil, dir, FormatPNG)
	assert.ErrorIs(t, err, trendchart.ErrEmptySequence)

	_, err = os.Stat(filepath.Join(dir, "trend.png"))
	assert.True(t, os.IsNotExist(err), "a failed export must not leave trend.png behind")
}

func TestExportAll(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MaxConcurrentGen = 2
	dir := filepath.Join(t.TempDir(), "exports")

	err := NewExporter(cfg).ExportAll(context.Background(), runs(), dir, []string{"json", "SVG", "png", "html", "pdf"})
	require.NoError(t, err)

	for _, name := range []string{"trend.json", "trend.svg", "trend.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Size(), name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.True(t, strings.HasPrefix(entry.Name(), "trend."), "unexpected file %s", entry.Name())
	}
}

func TestExportAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExporter(config.NewConfig()).ExportAll(ctx, runs(), t.TempDir(), []string{"json"})
	assert.ErrorIs(t, err, context.Canceled)
}
