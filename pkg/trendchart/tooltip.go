package trendchart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// Tooltip is the placed hover box for one run.
type Tooltip struct {
	Index  int
	X      float64
	Y      float64
	Width  float64
	Height float64
	Run    models.RunSummary
}

// TooltipRow is one label/value line of tooltip content.
type TooltipRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Kind  string `json:"kind"` // passed, failed, skipped, rate
}

// PositionTooltip places the tooltip above the bar at index. The box is
// clamped below TooltipMinTop when it would leave the plot top, then kept
// horizontally inside the plot.
func PositionTooltip(l Layout, index int) (Tooltip, bool) {
	if index < 0 || index >= len(l.Bars) {
		return Tooltip{}, false
	}
	bar := l.Bars[index]
	plot := l.plot

	top := bar.Top - TooltipGap - TooltipHeight
	if top < plot.Top {
		top = TooltipMinTop
	}

	left := bar.Center - TooltipWidth/2
	left = math.Min(left, plot.Right-TooltipWidth)
	left = math.Max(left, plot.Left)

	return Tooltip{
		Index:  index,
		X:      left,
		Y:      top,
		Width:  TooltipWidth,
		Height: TooltipHeight,
		Run:    bar.Run,
	}, true
}

// Title is the tooltip heading.
func (t Tooltip) Title() string {
	return fmt.Sprintf("BUILD #%d", t.Run.RunID)
}

// Rows returns the fixed tooltip content.
func (t Tooltip) Rows() []TooltipRow {
	return []TooltipRow{
		{Label: "Passed", Value: strconv.Itoa(t.Run.PassedCount), Kind: "passed"},
		{Label: "Failed", Value: strconv.Itoa(t.Run.FailedCount), Kind: "failed"},
		{Label: "Skipped", Value: strconv.Itoa(t.Run.SkippedCount), Kind: "skipped"},
		{Label: "PASS RATE", Value: FormatPassRate(t.Run), Kind: "rate"},
	}
}

// FormatPassRate renders a run's pass rate with one decimal, e.g. "80.0%".
func FormatPassRate(run models.RunSummary) string {
	return strconv.FormatFloat(run.PassRate(), 'f', 1, 64) + "%"
}
