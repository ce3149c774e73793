// Package trendchart turns a sequence of build run summaries into a scaled,
// interactive SVG chart: stacked pass/fail/skip bars, a passed-count trend
// line, per-run hover lanes and a clamped tooltip.
//
// Every geometry step is a pure function of the runs and the viewport.
// The only mutable state is ViewState, which callers own.
package trendchart

import (
	"errors"
	"math"
)

// Chart geometry in logical units. The plot area is the viewport minus fixed
// margins; the defaults reproduce an 800x400 canvas with a 680x300 plot.
const (
	MarginLeft   = 60.0
	MarginRight  = 60.0
	MarginTop    = 50.0
	MarginBottom = 50.0

	// MaxBarWidth stops bars growing unboundedly wide when there are few runs.
	MaxBarWidth = 55.0
	// BarFill is the share of a slot a bar may occupy.
	BarFill = 0.7
	// CornerRadius is applied to the outward edges of a bar stack.
	CornerRadius = 8.0

	TooltipWidth  = 175.0
	TooltipHeight = 135.0
	TooltipGap    = 12.0
	TooltipMinTop = 20.0
)

var (
	// ErrEmptySequence is returned when geometry is requested for zero runs.
	// Callers are expected to render EmptyStateSVG instead.
	ErrEmptySequence = errors.New("trendchart: empty run sequence")
	// ErrViewportTooSmall is returned when the margins leave no plot area.
	ErrViewportTooSmall = errors.New("trendchart: viewport too small for plot area")
	// ErrViewportNotFinite is returned for NaN or infinite dimensions.
	ErrViewportNotFinite = errors.New("trendchart: viewport dimensions must be finite")
)

// Viewport is the logical canvas size; the rendered SVG scales it to its container.
type Viewport struct {
	Width  float64
	Height float64
}

// DefaultViewport matches the report layout.
var DefaultViewport = Viewport{Width: 800, Height: 400}

// Plot holds the plotting bounds inside a viewport.
type Plot struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// Plot returns the plotting bounds of v.
func (v Viewport) Plot() Plot {
	return Plot{
		Left:   MarginLeft,
		Right:  v.Width - MarginRight,
		Top:    MarginTop,
		Bottom: v.Height - MarginBottom,
	}
}

// Validate reports whether v is finite and leaves a positive plot area.
func (v Viewport) Validate() error {
	for _, d := range []float64{v.Width, v.Height} {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return ErrViewportNotFinite
		}
	}
	p := v.Plot()
	if p.Width() <= 0 || p.Height() <= 0 {
		return ErrViewportTooSmall
	}
	return nil
}

// Width of the plot area
func (p Plot) Width() float64 { return p.Right - p.Left }

// Height of the plot area
func (p Plot) Height() float64 { return p.Bottom - p.Top }

// Point is a position in viewport coordinates.
type Point struct {
	X float64
	Y float64
}
