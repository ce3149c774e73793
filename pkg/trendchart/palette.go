package trendchart

// Gradient is a top-to-bottom two-stop fill.
type Gradient struct {
	Top    string
	Bottom string
}

// Palette holds the colours the SVG is drawn with.
type Palette struct {
	Name        string
	Passed      Gradient
	Failed      Gradient
	Skipped     Gradient
	Trend       string
	TrendShadow string
	Grid        string
	AxisLabel   string
	RunLabel    string
	RunLabelHot string
	LaneHover   string
	TooltipBg   string
	TooltipText string
	TooltipRule string
	Background  string
	EmptyText   string
}

// LightPalette is the default report palette.
var LightPalette = Palette{
	Name:        "light",
	Passed:      Gradient{Top: "#10b981", Bottom: "#059669"},
	Failed:      Gradient{Top: "#f43f5e", Bottom: "#e11d48"},
	Skipped:     Gradient{Top: "#94a3b8", Bottom: "#64748b"},
	Trend:       "#6366f1",
	TrendShadow: "rgba(99,102,241,0.4)",
	Grid:        "#f1f5f9",
	AxisLabel:   "#64748b",
	RunLabel:    "#cbd5e1",
	RunLabelHot: "#0f172a",
	LaneHover:   "rgba(99,102,241,0.05)",
	TooltipBg:   "rgba(15,23,42,0.95)",
	TooltipText: "#ffffff",
	TooltipRule: "rgba(255,255,255,0.1)",
	Background:  "#ffffff",
	EmptyText:   "#94a3b8",
}

// DarkPalette suits dark report themes.
var DarkPalette = Palette{
	Name:        "dark",
	Passed:      Gradient{Top: "#34d399", Bottom: "#10b981"},
	Failed:      Gradient{Top: "#fb7185", Bottom: "#f43f5e"},
	Skipped:     Gradient{Top: "#cbd5e1", Bottom: "#94a3b8"},
	Trend:       "#818cf8",
	TrendShadow: "rgba(129,140,248,0.35)",
	Grid:        "#1e293b",
	AxisLabel:   "#94a3b8",
	RunLabel:    "#475569",
	RunLabelHot: "#f8fafc",
	LaneHover:   "rgba(129,140,248,0.08)",
	TooltipBg:   "rgba(248,250,252,0.95)",
	TooltipText: "#0f172a",
	TooltipRule: "rgba(15,23,42,0.1)",
	Background:  "#0f172a",
	EmptyText:   "#64748b",
}

func (p Palette) orDefault() Palette {
	if p.Name == "" {
		return LightPalette
	}
	return p
}

func (p Palette) segmentColor(k SegmentKind) string {
	switch k {
	case SegmentFailed:
		return p.Failed.Top
	case SegmentSkipped:
		return p.Skipped.Top
	default:
		return p.Passed.Top
	}
}
