package trendchart

import (
	"github.com/lirany1/gauge-trend-report/pkg/logger"
	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// ViewState is the interaction state of one chart instance: the hovered run
// and the two display toggles. It is not safe for concurrent use; callers
// that share one across goroutines must serialise access.
type ViewState struct {
	hovered  int
	hovering bool

	ShowBars      bool
	ShowTrendLine bool
}

// NewViewState returns the default state: nothing hovered, everything shown.
func NewViewState() *ViewState {
	return &ViewState{ShowBars: true, ShowTrendLine: true}
}

// Hovered returns the hovered run index, if any.
func (v *ViewState) Hovered() (int, bool) {
	return v.hovered, v.hovering
}

// PointerEnter moves to Hovering(i). Entering a new lane without a leave in
// between is a direct transition.
func (v *ViewState) PointerEnter(i int) {
	if i < 0 {
		return
	}
	v.hovered = i
	v.hovering = true
}

// PointerLeave returns to Idle.
func (v *ViewState) PointerLeave() {
	v.hovered = 0
	v.hovering = false
}

// PointerMove hit-tests x and enters the lane under it, or leaves when x is
// outside the plot. It returns the resulting hover index.
func (v *ViewState) PointerMove(lanes Lanes, x float64) (int, bool) {
	i, ok := lanes.HitTest(x)
	if !ok {
		v.PointerLeave()
		return 0, false
	}
	v.PointerEnter(i)
	return i, true
}

// Click resolves a click on lane i to the run's build URL. Runs without a
// URL are a no-op.
func (v *ViewState) Click(runs []models.RunSummary, i int) (string, bool) {
	if i < 0 || i >= len(runs) {
		return "", false
	}
	run := runs[i]
	if !run.Clickable() {
		logger.WithFields(logger.Fields{"runId": run.RunID}).Debug("No build URL available for run")
		return "", false
	}
	return run.URL, true
}

// Reconcile drops a hover index that no longer fits a sequence of n runs.
func (v *ViewState) Reconcile(n int) {
	if v.hovering && v.hovered >= n {
		v.PointerLeave()
	}
}

// ToggleBars flips bar visibility.
func (v *ViewState) ToggleBars() {
	v.ShowBars = !v.ShowBars
}

// ToggleTrendLine flips trend line visibility.
func (v *ViewState) ToggleTrendLine() {
	v.ShowTrendLine = !v.ShowTrendLine
}

// Mode resolves the toggles to a display mode.
func (v *ViewState) Mode() Mode {
	return ModeFor(v.ShowBars, v.ShowTrendLine)
}
