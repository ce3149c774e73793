package trendchart

import (
	"sort"
)

// Lane is the horizontal hit region of one run. Lanes are wider than bars
// so hovering anywhere between neighbours selects the closer run.
type Lane struct {
	Index int
	Left  float64
	Right float64
}

// Width of the lane
func (l Lane) Width() float64 { return l.Right - l.Left }

// Lanes partition the plot horizontally, ordered left to right.
type Lanes []Lane

// ComputeLanes splits the plot at the midpoints between adjacent bar centres.
// The outer lanes reach the plot edges.
func ComputeLanes(l Layout) Lanes {
	n := len(l.Bars)
	if n == 0 {
		return nil
	}
	lanes := make(Lanes, n)
	for i, bar := range l.Bars {
		lane := Lane{Index: i, Left: l.plot.Left, Right: l.plot.Right}
		if i > 0 {
			lane.Left = (l.Bars[i-1].Center + bar.Center) / 2
		}
		if i < n-1 {
			lane.Right = (bar.Center + l.Bars[i+1].Center) / 2
		}
		lanes[i] = lane
	}
	return lanes
}

// HitTest maps a pointer x to a lane index. Lanes are half-open [Left, Right)
// except the last, which also owns the plot's right edge.
func (ls Lanes) HitTest(x float64) (int, bool) {
	n := len(ls)
	if n == 0 || x < ls[0].Left || x > ls[n-1].Right {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return ls[i].Right > x })
	if i == n {
		i = n - 1
	}
	return i, true
}
