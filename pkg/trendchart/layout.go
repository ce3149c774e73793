package trendchart

import (
	"math"
	"strings"

	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// SegmentKind identifies a slice of a stacked bar. Stacking order is fixed:
// passed at the bottom, then failed, then skipped.
type SegmentKind int

const (
	SegmentPassed SegmentKind = iota
	SegmentFailed
	SegmentSkipped
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentPassed:
		return "passed"
	case SegmentFailed:
		return "failed"
	case SegmentSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Segment is one slice of a stacked bar.
type Segment struct {
	Kind   SegmentKind
	Count  int
	Y      float64
	Height float64
	// Only the outward-facing edges of the stack are rounded.
	RoundTop    bool
	RoundBottom bool
}

// Bar is the stacked bar for one run.
type Bar struct {
	Index    int
	Run      models.RunSummary
	X        float64
	Width    float64
	Center   float64
	Top      float64
	Segments [3]Segment
}

// Layout holds bar and trend line positions for a sequence.
type Layout struct {
	SlotWidth float64
	BarWidth  float64
	Bars      []Bar
	// Trend has one point per run at the top of the passed segment.
	Trend []Point
	plot  Plot
}

// ComputeLayout positions every bar and trend point.
func ComputeLayout(runs []models.RunSummary, scale Scale) Layout {
	plot := scale.Plot()
	n := len(runs)
	if n == 0 {
		return Layout{plot: plot}
	}

	slot := plot.Width() / float64(n)
	barWidth := math.Min(MaxBarWidth, slot*BarFill)

	l := Layout{
		SlotWidth: slot,
		BarWidth:  barWidth,
		Bars:      make([]Bar, n),
		Trend:     make([]Point, n),
		plot:      plot,
	}

	for i, run := range runs {
		slotLeft := plot.Left + float64(i)*slot
		center := slotLeft + slot/2
		bar := Bar{
			Index:  i,
			Run:    run,
			X:      center - barWidth/2,
			Width:  barWidth,
			Center: center,
		}

		counts := [3]int{run.PassedCount, run.FailedCount, run.SkippedCount}
		y := plot.Bottom
		for k, c := range counts {
			h := scale.Height(float64(c))
			y -= h
			bar.Segments[k] = Segment{Kind: SegmentKind(k), Count: c, Y: y, Height: h}
		}
		bar.Top = y
		roundOutwardEdges(&bar.Segments)

		l.Bars[i] = bar
		l.Trend[i] = Point{X: center, Y: bar.Segments[SegmentPassed].Y}
	}
	return l
}

func roundOutwardEdges(segs *[3]Segment) {
	lowest, highest := -1, -1
	for k := range segs {
		if segs[k].Height <= 0 {
			continue
		}
		if lowest < 0 {
			lowest = k
		}
		highest = k
	}
	if lowest < 0 {
		return
	}
	segs[lowest].RoundBottom = true
	segs[highest].RoundTop = true
}

// Plot returns the bounds the layout was computed for.
func (l Layout) Plot() Plot {
	return l.plot
}

// HasTrendLine reports whether there are enough points to draw a line.
func (l Layout) HasTrendLine() bool {
	return len(l.Trend) >= 2
}

// TrendPath returns the SVG path data for the trend polyline.
func (l Layout) TrendPath() (string, bool) {
	if !l.HasTrendLine() {
		return "", false
	}
	var sb strings.Builder
	for i, p := range l.Trend {
		if i == 0 {
			sb.WriteString("M ")
		} else {
			sb.WriteString(" L ")
		}
		sb.WriteString(num(p.X) + "," + num(p.Y))
	}
	return sb.String(), true
}

// AreaPath returns the SVG path data for the fill beneath the trend line.
func (l Layout) AreaPath() (string, bool) {
	line, ok := l.TrendPath()
	if !ok {
		return "", false
	}
	first, last := l.Trend[0], l.Trend[len(l.Trend)-1]
	return line +
		" L " + num(last.X) + "," + num(l.plot.Bottom) +
		" L " + num(first.X) + "," + num(l.plot.Bottom) + " Z", true
}
