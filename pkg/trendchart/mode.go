package trendchart

// Mode is the chart's display mode, derived from the view toggles.
type Mode int

const (
	ModeFull Mode = iota
	ModeBarsOnly
	ModeTrendOnly
	ModeLanesOnly
)

// Style is everything a mode changes about rendering.
type Style struct {
	DrawBars  bool
	DrawTrend bool
	// AreaOpacity is stronger when the area is the only volume cue.
	AreaOpacity       float64
	MarkerRadius      float64
	HoverMarkerRadius float64
	TrendStrokeWidth  float64
}

var modeStyles = map[Mode]Style{
	ModeFull: {
		DrawBars: true, DrawTrend: true,
		AreaOpacity: 0.08, MarkerRadius: 6, HoverMarkerRadius: 9, TrendStrokeWidth: 5,
	},
	ModeBarsOnly: {
		DrawBars: true,
	},
	ModeTrendOnly: {
		DrawTrend:   true,
		AreaOpacity: 0.18, MarkerRadius: 6, HoverMarkerRadius: 9, TrendStrokeWidth: 5,
	},
	ModeLanesOnly: {},
}

// ModeFor maps the two toggles to a mode.
func ModeFor(showBars, showTrend bool) Mode {
	switch {
	case showBars && showTrend:
		return ModeFull
	case showBars:
		return ModeBarsOnly
	case showTrend:
		return ModeTrendOnly
	default:
		return ModeLanesOnly
	}
}

// Style returns the style record for m.
func (m Mode) Style() Style {
	return modeStyles[m]
}

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeBarsOnly:
		return "bars"
	case ModeTrendOnly:
		return "trend"
	case ModeLanesOnly:
		return "lanes"
	default:
		return "unknown"
	}
}
