package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lirany1/gauge-trend-report/pkg/analytics"
	"github.com/lirany1/gauge-trend-report/pkg/config"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/themes"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

// Page is everything the index template needs
type Page struct {
	ProjectName string
	GeneratedAt time.Time
	// Suite is nil when the report is rebuilt from history alone.
	Suite   *models.SuiteResult
	Runs    []models.RunSummary
	Fragile []models.FragileScenario
}

type pageData struct {
	Page
	Theme     themes.Theme
	Chart     template.HTML
	ShowBars  bool
	ShowTrend bool
}

// Renderer handles HTML template rendering
type Renderer struct {
	config *config.Config
	themes *themes.Manager
	tmpl   *template.Template
}

// NewRenderer creates a new renderer
func NewRenderer(cfg *config.Config) *Renderer {
	funcMap := template.FuncMap{
		"formatDuration": analytics.FormatDuration,
		"formatRate": func(rate float64) string {
			return fmt.Sprintf("%.1f", rate)
		},
		"formatTimestamp": func(t time.Time) string {
			return t.Format("January 2, 2006 at 3:04 PM")
		},
	}

	return &Renderer{
		config: cfg,
		themes: themes.NewManager(cfg),
		tmpl:   template.Must(template.New("index").Funcs(funcMap).Parse(indexTemplate)),
	}
}

// ChartSVG renders the trend chart the way the static report embeds it
func (r *Renderer) ChartSVG(runs []models.RunSummary, view *trendchart.ViewState) (string, error) {
	var buf bytes.Buffer
	vp := trendchart.Viewport{Width: r.config.Chart.Width, Height: r.config.Chart.Height}
	opts := trendchart.RenderOptions{
		Palette:     r.themes.Current().Chart,
		CSSTooltips: true,
	}
	if err := trendchart.Render(&buf, runs, vp, view, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderIndex writes the report page to w
func (r *Renderer) RenderIndex(w io.Writer, page Page) error {
	// the page toggles layers with CSS, so the SVG always carries both
	chart, err := r.ChartSVG(page.Runs, trendchart.NewViewState())
	if err != nil {
		return fmt.Errorf("failed to render trend chart: %w", err)
	}

	if page.GeneratedAt.IsZero() {
		page.GeneratedAt = time.Now()
	}

	data := pageData{
		Page:      page,
		Theme:     r.themes.Current(),
		Chart:     template.HTML(chart),
		ShowBars:  r.config.Chart.ShowBars,
		ShowTrend: r.config.Chart.ShowTrendLine,
	}
	return r.tmpl.Execute(w, data)
}

// WriteIndex renders index.html into reportDir
func (r *Renderer) WriteIndex(reportDir string, page Page) error {
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	indexPath := filepath.Join(reportDir, "index.html")
	f, err := os.Create(indexPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := r.RenderIndex(f, page); err != nil {
		return err
	}
	return f.Close()
}

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.ProjectName}} - Execution Trend</title>
    <style>
        body { margin: 0; font-family: 'Inter', system-ui, sans-serif; background: {{.Theme.Background}}; color: {{.Theme.Text}}; }
        main { max-width: 1100px; margin: 0 auto; padding: 32px 24px; }
        header h1 { margin: 0; font-size: 24px; }
        header p { margin: 4px 0 0; color: {{.Theme.Muted}}; font-size: 14px; }
        .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 16px; margin: 24px 0; }
        .card, .panel { background: {{.Theme.Surface}}; border: 1px solid {{.Theme.Border}}; border-radius: 12px; padding: 16px 20px; }
        .card .label { font-size: 11px; font-weight: 700; letter-spacing: .08em; color: {{.Theme.Muted}}; text-transform: uppercase; }
        .card .value { font-size: 28px; font-weight: 700; margin-top: 4px; }
        .passed { color: {{.Theme.Chart.Passed.Top}}; }
        .failed { color: {{.Theme.Chart.Failed.Top}}; }
        .skipped { color: {{.Theme.Chart.Skipped.Top}}; }
        .panel { margin-bottom: 24px; }
        .panel h2 { margin: 0 0 12px; font-size: 16px; }
        .toggles { display: flex; gap: 16px; font-size: 13px; color: {{.Theme.Muted}}; margin-bottom: 8px; }
        #trend > input { display: none; }
        .toggles label { cursor: pointer; user-select: none; padding: 4px 10px; border: 1px solid {{.Theme.Border}}; border-radius: 999px; }
        #tc-show-bars:checked ~ .toggles label[for="tc-show-bars"],
        #tc-show-trend:checked ~ .toggles label[for="tc-show-trend"] { color: {{.Theme.Text}}; border-color: {{.Theme.Chart.Trend}}; }
        #tc-show-bars:not(:checked) ~ .chart .tc-bars { display: none; }
        #tc-show-trend:not(:checked) ~ .chart .tc-trend { display: none; }
        .chart svg { width: 100%; height: auto; display: block; }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        th { text-align: left; font-size: 11px; letter-spacing: .08em; color: {{.Theme.Muted}}; text-transform: uppercase; padding: 8px; border-bottom: 1px solid {{.Theme.Border}}; }
        td { padding: 8px; border-bottom: 1px solid {{.Theme.Border}}; }
        .empty { color: {{.Theme.Muted}}; font-size: 14px; }
        .hook { border-left: 4px solid {{.Theme.Chart.Failed.Top}}; }
        .hook pre { margin: 0; white-space: pre-wrap; font-size: 13px; }
    </style>
</head>
<body>
<main>
    <header>
        <h1>{{.ProjectName}}</h1>
        <p>Execution trend - {{formatTimestamp .GeneratedAt}}</p>
    </header>

    {{with .Suite}}
    <section class="cards">
        <div class="card"><div class="label">Scenarios</div><div class="value">{{.TotalScenariosCount}}</div></div>
        <div class="card"><div class="label">Passed</div><div class="value passed">{{.PassedScenariosCount}}</div></div>
        <div class="card"><div class="label">Failed</div><div class="value failed">{{.FailedScenariosCount}}</div></div>
        <div class="card"><div class="label">Skipped</div><div class="value skipped">{{.SkippedScenariosCount}}</div></div>
        <div class="card"><div class="label">Success Rate</div><div class="value">{{formatRate .SuccessRate}}%</div></div>
        <div class="card"><div class="label">Duration</div><div class="value">{{formatDuration .ExecutionTime}}</div></div>
    </section>
    {{with .BeforeSuiteFailure}}
    <section class="panel hook"><h2>Before Suite hook failed</h2><pre>{{.ErrorMessage}}</pre></section>
    {{end}}
    {{with .AfterSuiteFailure}}
    <section class="panel hook"><h2>After Suite hook failed</h2><pre>{{.ErrorMessage}}</pre></section>
    {{end}}
    {{end}}

    <section class="panel" id="trend">
        <h2>Execution Trend</h2>
        <input type="checkbox" id="tc-show-bars"{{if .ShowBars}} checked{{end}}>
        <input type="checkbox" id="tc-show-trend"{{if .ShowTrend}} checked{{end}}>
        <div class="toggles">
            <label for="tc-show-bars">Bars</label>
            <label for="tc-show-trend">Trend line</label>
        </div>
        <div class="chart">{{.Chart}}</div>
    </section>

    <section class="panel" id="fragility">
        <h2>Fragility Index</h2>
        {{if .Fragile}}
        <table>
            <thead><tr><th>Spec</th><th>Scenario</th><th>Score</th><th>Failure Rate</th><th>Runs</th></tr></thead>
            <tbody>
            {{range .Fragile}}
                <tr><td>{{.SpecName}}</td><td>{{.ScenarioName}}</td><td>{{formatRate .Score}}</td><td>{{formatRate .FailureRate}}%</td><td>{{.Runs}}</td></tr>
            {{end}}
            </tbody>
        </table>
        {{else}}
        <p class="empty">No fragile scenarios detected.</p>
        {{end}}
    </section>
</main>
</body>
</html>
`
