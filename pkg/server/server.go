package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/models"
	"github.com/lirany1/gauge-trend-report/pkg/trendchart"
)

// Config holds server configuration
type Config struct {
	Host       string
	Port       int
	ReportsDir string
	Viewport   trendchart.Viewport
	Palette    trendchart.Palette
}

// RunsProvider supplies the chart input on every request
type RunsProvider interface {
	RecentRuns() ([]models.RunSummary, error)
}

// Server provides live report viewing with one shared chart view state
type Server struct {
	config *Config
	router *mux.Router
	runs   RunsProvider

	mu   sync.Mutex
	view *trendchart.ViewState
}

// NewServer creates a new report server
func NewServer(cfg *Config, runs RunsProvider) *Server {
	if cfg.Viewport.Width == 0 || cfg.Viewport.Height == 0 {
		cfg.Viewport = trendchart.DefaultViewport
	}

	s := &Server{
		config: cfg,
		router: mux.NewRouter(),
		runs:   runs,
		view:   trendchart.NewViewState(),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return gctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Infof("Server running at http://%s", addr)
		logger.Infof("Press Ctrl+C to stop")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debugf("Shutting down report server...")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/chart.svg", s.handleChartSVG).Methods(http.MethodGet)
	api.HandleFunc("/chart/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/chart/pointer", s.handlePointer).Methods(http.MethodPost)
	api.HandleFunc("/chart/toggles", s.handleToggles).Methods(http.MethodPut)

	// Serve static files
	if s.config.ReportsDir != "" {
		fs := http.FileServer(http.Dir(s.config.ReportsDir))
		s.router.PathPrefix("/").Handler(fs)
	}
}

// PointerEvent is the body of POST /api/chart/pointer
type PointerEvent struct {
	Type  string  `json:"type"` // enter, move, leave, click
	Index int     `json:"index"`
	X     float64 `json:"x"`
}

// Toggles is the body of PUT /api/chart/toggles. Omitted fields keep their value.
type Toggles struct {
	ShowBars      *bool `json:"showBars"`
	ShowTrendLine *bool `json:"showTrendLine"`
}

// TooltipView is the hovered tooltip as JSON
type TooltipView struct {
	Index  int                     `json:"index"`
	RunID  int                     `json:"runId"`
	X      float64                 `json:"x"`
	Y      float64                 `json:"y"`
	Width  float64                 `json:"width"`
	Height float64                 `json:"height"`
	Title  string                  `json:"title"`
	Rows   []trendchart.TooltipRow `json:"rows"`
}

// StateView is the chart view state as JSON
type StateView struct {
	Hovered       *int         `json:"hovered"`
	ShowBars      bool         `json:"showBars"`
	ShowTrendLine bool         `json:"showTrendLine"`
	Mode          string       `json:"mode"`
	Tooltip       *TooltipView `json:"tooltip,omitempty"`
	URL           string       `json:"url,omitempty"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.loadRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []models.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	vp, err := s.viewportFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runs, err := s.loadRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	opts := trendchart.RenderOptions{Palette: s.config.Palette}
	if err := trendchart.Render(w, runs, vp, s.view, opts); err != nil {
		logger.Errorf("Failed to render chart: %v", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	runs, err := s.loadRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateLocked(runs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var ev PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid pointer event: %w", err))
		return
	}

	runs, err := s.loadRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var url string
	switch ev.Type {
	case "enter":
		if ev.Index < len(runs) {
			s.view.PointerEnter(ev.Index)
		}
	case "leave":
		s.view.PointerLeave()
	case "move":
		if len(runs) == 0 {
			s.view.PointerLeave()
			break
		}
		chart, err := trendchart.New(runs, s.config.Viewport, s.view)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.view.PointerMove(chart.Lanes, ev.X)
	case "click":
		url, _ = s.view.Click(runs, ev.Index)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown pointer event %q", ev.Type))
		return
	}

	state, err := s.stateLocked(runs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	state.URL = url
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleToggles(w http.ResponseWriter, r *http.Request) {
	var t Toggles
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid toggles: %w", err))
		return
	}

	runs, err := s.loadRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ShowBars != nil && *t.ShowBars != s.view.ShowBars {
		s.view.ToggleBars()
	}
	if t.ShowTrendLine != nil && *t.ShowTrendLine != s.view.ShowTrendLine {
		s.view.ToggleTrendLine()
	}

	state, err := s.stateLocked(runs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// stateLocked snapshots the view state against runs. Callers hold s.mu.
func (s *Server) stateLocked(runs []models.RunSummary) (*StateView, error) {
	s.view.Reconcile(len(runs))

	state := &StateView{
		ShowBars:      s.view.ShowBars,
		ShowTrendLine: s.view.ShowTrendLine,
		Mode:          s.view.Mode().String(),
	}

	i, ok := s.view.Hovered()
	if !ok || len(runs) == 0 {
		return state, nil
	}

	chart, err := trendchart.New(runs, s.config.Viewport, s.view)
	if err != nil {
		return nil, err
	}
	state.Hovered = &i
	if tip := chart.Tooltip; tip != nil {
		state.Tooltip = &TooltipView{
			Index:  tip.Index,
			RunID:  tip.Run.RunID,
			X:      tip.X,
			Y:      tip.Y,
			Width:  tip.Width,
			Height: tip.Height,
			Title:  tip.Title(),
			Rows:   tip.Rows(),
		}
	}
	return state, nil
}

func (s *Server) loadRuns() ([]models.RunSummary, error) {
	if s.runs == nil {
		return nil, nil
	}
	runs, err := s.runs.RecentRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	return runs, nil
}

func (s *Server) viewportFrom(r *http.Request) (trendchart.Viewport, error) {
	vp := s.config.Viewport
	q := r.URL.Query()
	for key, dst := range map[string]*float64{"width": &vp.Width, "height": &vp.Height} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return vp, fmt.Errorf("invalid %s %q", key, raw)
		}
		*dst = v
	}
	if err := vp.Validate(); err != nil {
		return vp, err
	}
	return vp, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
