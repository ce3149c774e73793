package trendchart

import (
	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// Chart is the full geometry of one render: scale, bars, lanes and the
// tooltip for the hovered run.
type Chart struct {
	Runs     []models.RunSummary
	Viewport Viewport
	Scale    Scale
	Layout   Layout
	Lanes    Lanes
	Mode     Mode

	// Hovered is -1 when nothing is hovered.
	Hovered int
	Tooltip *Tooltip
}

// New computes the chart for runs. view may be nil for the default state; a
// non-nil view is reconciled against the sequence length first.
func New(runs []models.RunSummary, vp Viewport, view *ViewState) (*Chart, error) {
	if view == nil {
		view = NewViewState()
	}
	view.Reconcile(len(runs))

	scale, err := ComputeScale(runs, vp)
	if err != nil {
		return nil, err
	}
	layout := ComputeLayout(runs, scale)

	c := &Chart{
		Runs:     runs,
		Viewport: vp,
		Scale:    scale,
		Layout:   layout,
		Lanes:    ComputeLanes(layout),
		Mode:     view.Mode(),
		Hovered:  -1,
	}
	if i, ok := view.Hovered(); ok {
		if tip, ok := PositionTooltip(layout, i); ok {
			c.Hovered = i
			c.Tooltip = &tip
		}
	}
	return c, nil
}

// Style is the resolved style for the chart's mode.
func (c *Chart) Style() Style {
	return c.Mode.Style()
}
