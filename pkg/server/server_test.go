package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

type staticRuns struct {
	mu   sync.Mutex
	runs []models.RunSummary
	err  error
}

func (s *staticRuns) RecentRuns() ([]models.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.err
}

func (s *staticRuns) set(runs []models.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
}

func tenRuns() []models.RunSummary {
	runs := make([]models.RunSummary, 10)
	for i := range runs {
		runs[i] = models.RunSummary{RunID: i + 1, PassedCount: 8, FailedCount: 2}
	}
	runs[0].URL = "https://ci.example.com/1"
	return runs
}

func newTestServer(t *testing.T, provider RunsProvider) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(&Config{}, provider).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeState(t *testing.T, body []byte) StateView {
	t.Helper()
	var state StateView
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func TestListRuns(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/runs", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []models.RunSummary
	require.NoError(t, json.Unmarshal(body, &runs))
	assert.Len(t, runs, 10)
	assert.Equal(t, "https://ci.example.com/1", runs[0].URL)
}

func TestListRuns_ProviderError(t *testing.T) {
	srv := newTestServer(t, &staticRuns{err: errors.New("db locked")})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/runs", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "db locked")
}

func TestPointerHoverAndLeave(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"enter","index":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, body)
	require.NotNil(t, state.Hovered)
	assert.Equal(t, 0, *state.Hovered)
	require.NotNil(t, state.Tooltip)
	assert.Equal(t, "BUILD #1", state.Tooltip.Title)
	assert.Equal(t, "80.0%", state.Tooltip.Rows[3].Value)
	assert.GreaterOrEqual(t, state.Tooltip.X, 60.0, "tooltip stays inside the plot")

	_, body = do(t, http.MethodGet, srv.URL+"/api/chart.svg", "")
	assert.Contains(t, string(body), "tc-tip-active")

	_, body = do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"leave"}`)
	state = decodeState(t, body)
	assert.Nil(t, state.Hovered)
	assert.Nil(t, state.Tooltip)

	_, body = do(t, http.MethodGet, srv.URL+"/api/chart.svg", "")
	assert.NotContains(t, string(body), "tc-tip-active")
}

func TestPointerMove(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	// ten lanes over x 60..740 are 68 wide; x=700 is in the last one
	_, body := do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"move","x":700}`)
	state := decodeState(t, body)
	require.NotNil(t, state.Hovered)
	assert.Equal(t, 9, *state.Hovered)

	_, body = do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"move","x":10}`)
	state = decodeState(t, body)
	assert.Nil(t, state.Hovered, "moving outside the plot leaves")
}

func TestPointerClick(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	_, body := do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"click","index":0}`)
	assert.Equal(t, "https://ci.example.com/1", decodeState(t, body).URL)

	_, body = do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"click","index":1}`)
	assert.Empty(t, decodeState(t, body).URL, "run without URL is not clickable")
}

func TestPointerBadRequests(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"wiggle"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// an out-of-range enter is ignored
	_, body := do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"enter","index":42}`)
	assert.Nil(t, decodeState(t, body).Hovered)
}

func TestStaleHoverIsDropped(t *testing.T) {
	provider := &staticRuns{runs: tenRuns()}
	srv := newTestServer(t, provider)

	do(t, http.MethodPost, srv.URL+"/api/chart/pointer", `{"type":"enter","index":9}`)
	provider.set(tenRuns()[:3])

	_, body := do(t, http.MethodGet, srv.URL+"/api/chart/state", "")
	assert.Nil(t, decodeState(t, body).Hovered)
}

func TestToggles(t *testing.T) {
	srv := newTestServer(t, &staticRuns{runs: tenRuns()})

	_, body := do(t, http.MethodPut, srv.URL+"/api/chart/toggles", `{"showBars":false}`)
	state := decodeState(t, body)
	assert.False(t, state.ShowBars)
	assert.True(t, state.ShowTrendLine)
	assert.Equal(t, "trend", state.Mode)

	_, svg := do(t, http.MethodGet, srv.URL+"/api/chart.svg", "")
	assert.NotContains(t, string(svg), `class="tc-bars"`)
	assert.Contains(t, string(svg), `class="tc-trend"`)

	_, body = do(t, http.MethodPut, srv.URL+"/api/chart/toggles", `{"showTrendLine":false}`)
	state = decodeState(t, body)
	assert.Equal(t, "lanes", state.Mode)

	_, svg = do(t, http.MethodGet, srv.URL+"/api/chart.svg", "")
	assert.Contains(t, string(svg), `class="tc-lane"`, "lanes stay interactive with both layers off")
}

func TestChartSVG(t *testing.T) {
	srv := newTestServer(t, &staticRuns{})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/chart.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), trendchart.EmptyStateMessage)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/chart.svg?width=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/chart.svg?width=50", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, q := range []string{"width=NaN", "width=Inf", "height=-Inf", "height=nan"} {
		resp, body = do(t, http.MethodGet, srv.URL+"/api/chart.svg?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.NotContains(t, string(body), "NaN", q)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>report</h1>"), 0644))

	srv := httptest.NewServer(NewServer(&Config{ReportsDir: dir}, &staticRuns{}).Handler())
	defer srv.Close()

	_, body := do(t, http.MethodGet, srv.URL+"/index.html", "")
	assert.Contains(t, string(body), "report")

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/runs", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "api routes take precedence over static files")
}
