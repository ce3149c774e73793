package trendchart

import (
	"math"

	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// Tick is one horizontal grid line on the count axis.
type Tick struct {
	Value int
	Y     float64
}

// Scale maps test counts to vertical pixel positions.
type Scale struct {
	// MaxTotal is never zero; a unit denominator stands in when every run is empty.
	MaxTotal int
	Ticks    []Tick
	plot     Plot
}

// ComputeScale derives the vertical scale from the largest run total.
func ComputeScale(runs []models.RunSummary, vp Viewport) (Scale, error) {
	if len(runs) == 0 {
		return Scale{}, ErrEmptySequence
	}
	if err := vp.Validate(); err != nil {
		return Scale{}, err
	}

	maxTotal := 0
	for _, run := range runs {
		if t := run.Total(); t > maxTotal {
			maxTotal = t
		}
	}
	if maxTotal == 0 {
		maxTotal = 1
	}

	s := Scale{MaxTotal: maxTotal, plot: vp.Plot()}
	m := float64(maxTotal)
	values := []int{
		0,
		int(math.Round(m * 0.25)),
		int(math.Round(m * 0.5)),
		int(math.Round(m * 0.75)),
		maxTotal,
	}
	for i, v := range values {
		// small totals round to the same value more than once
		if i > 0 && v == values[i-1] {
			continue
		}
		s.Ticks = append(s.Ticks, Tick{Value: v, Y: s.Y(float64(v))})
	}
	return s, nil
}

// Y returns the pixel row for a count.
func (s Scale) Y(count float64) float64 {
	return s.plot.Bottom - s.Height(count)
}

// Height returns the pixel height a count occupies.
func (s Scale) Height(count float64) float64 {
	return count / float64(s.MaxTotal) * s.plot.Height()
}

// Plot returns the bounds the scale was computed for.
func (s Scale) Plot() Plot {
	return s.plot
}
