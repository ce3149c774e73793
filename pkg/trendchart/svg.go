package trendchart

import (
	"fmt"
	"html"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lirany1/gauge-trend-report/pkg/models"
)

// EmptyStateMessage is shown instead of a chart when there is no history.
const EmptyStateMessage = "No execution history available"

// RenderOptions control SVG output.
type RenderOptions struct {
	Palette Palette
	// ID prefixes gradient ids so several charts can share a page.
	ID string
	// CSSTooltips embeds a tooltip per lane shown on :hover, which makes a
	// static report interactive without script.
	CSSTooltips bool
}

func (o RenderOptions) id(name string) string {
	prefix := o.ID
	if prefix == "" {
		prefix = "tc"
	}
	return prefix + "-" + name
}

// Render writes the chart for runs, or the empty state when there are none.
func Render(w io.Writer, runs []models.RunSummary, vp Viewport, view *ViewState, opts RenderOptions) error {
	if len(runs) == 0 {
		_, err := io.WriteString(w, EmptyStateSVG(vp, opts.Palette))
		return err
	}
	c, err := New(runs, vp, view)
	if err != nil {
		return fmt.Errorf("failed to compute chart: %w", err)
	}
	_, err = io.WriteString(w, c.SVG(opts))
	return err
}

// EmptyStateSVG is the placeholder drawn for an empty sequence.
func EmptyStateSVG(vp Viewport, p Palette) string {
	p = p.orDefault()
	var sb strings.Builder
	openSVG(&sb, vp, "tc-chart tc-empty")
	fmt.Fprintf(&sb, `<text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" fill="%s" font-size="14" font-weight="600">%s</text>`,
		num(vp.Width/2), num(vp.Height/2), p.EmptyText, html.EscapeString(EmptyStateMessage))
	sb.WriteString("</svg>")
	return sb.String()
}

// SVG renders the chart.
func (c *Chart) SVG(opts RenderOptions) string {
	p := opts.Palette.orDefault()
	style := c.Style()

	var sb strings.Builder
	openSVG(&sb, c.Viewport, "tc-chart tc-mode-"+c.Mode.String())
	c.writeDefs(&sb, opts, p)
	c.writeAxis(&sb, p)

	if style.DrawBars {
		sb.WriteString(`<g class="tc-bars">`)
		for _, bar := range c.Layout.Bars {
			c.writeBar(&sb, bar, opts, p)
		}
		sb.WriteString(`</g>`)
	}
	if style.DrawTrend {
		c.writeTrend(&sb, style, p)
	}

	// hit regions are drawn last so they sit above bars and the trend line
	sb.WriteString(`<g class="tc-lanes">`)
	for _, lane := range c.Lanes {
		c.writeLane(&sb, lane, opts, p)
	}
	sb.WriteString(`</g>`)

	if c.Tooltip != nil {
		writeTooltip(&sb, *c.Tooltip, "tc-tip tc-tip-active", p)
	}
	sb.WriteString("</svg>")
	return sb.String()
}

func openSVG(sb *strings.Builder, vp Viewport, class string) {
	fmt.Fprintf(sb, `<svg xmlns="http://www.w3.org/2000/svg" class="%s" width="100%%" height="100%%" viewBox="0 0 %s %s" preserveAspectRatio="none" style="overflow:visible">`,
		class, num(vp.Width), num(vp.Height))
}

func (c *Chart) writeDefs(sb *strings.Builder, opts RenderOptions, p Palette) {
	sb.WriteString("<defs>")
	for _, g := range []struct {
		name string
		grad Gradient
	}{
		{"passed", p.Passed},
		{"failed", p.Failed},
		{"skipped", p.Skipped},
	} {
		fmt.Fprintf(sb, `<linearGradient id="%s" x1="0" y1="0" x2="0" y2="1"><stop offset="0%%" stop-color="%s"/><stop offset="100%%" stop-color="%s"/></linearGradient>`,
			opts.id(g.name), g.grad.Top, g.grad.Bottom)
	}
	sb.WriteString("</defs>")
	if opts.CSSTooltips {
		sb.WriteString(`<style>.tc-lane .tc-tip{display:none}.tc-lane:hover .tc-tip{display:inline}.tc-lane:hover .tc-lane-bg{fill-opacity:1}.tc-lane:hover .tc-run-label{fill:` + p.RunLabelHot + `}</style>`)
	}
}

func (c *Chart) writeAxis(sb *strings.Builder, p Palette) {
	plot := c.Scale.Plot()
	mid := (plot.Top + plot.Bottom) / 2
	fmt.Fprintf(sb, `<g class="tc-axis"><text x="15" y="%s" text-anchor="middle" transform="rotate(-90 15,%s)" fill="%s" font-size="10" font-weight="900" letter-spacing="1px">TOTAL TESTS</text>`,
		num(mid), num(mid), p.AxisLabel)
	for _, tick := range c.Scale.Ticks {
		dash := "5,5"
		if tick.Value == 0 {
			dash = "0"
		}
		fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1" stroke-dasharray="%s"/>`,
			num(plot.Left-15), num(tick.Y), num(plot.Right+15), num(tick.Y), p.Grid, dash)
		fmt.Fprintf(sb, `<text x="%s" y="%s" text-anchor="end" dominant-baseline="middle" fill="%s" font-size="11" font-weight="900">%d</text>`,
			num(plot.Left-22), num(tick.Y), p.RunLabel, tick.Value)
	}
	sb.WriteString("</g>")
}

func (c *Chart) writeBar(sb *strings.Builder, bar Bar, opts RenderOptions, p Palette) {
	fmt.Fprintf(sb, `<g class="tc-bar" data-run="%d">`, bar.Run.RunID)
	for _, seg := range bar.Segments {
		// the passed segment is always drawn so a zero bar still has a baseline
		if seg.Height <= 0 && seg.Kind != SegmentPassed {
			continue
		}
		stroke := ""
		if seg.Kind != SegmentPassed {
			stroke = ` stroke="white" stroke-width="1"`
		}
		fmt.Fprintf(sb, `<path class="tc-seg tc-seg-%s" d="%s" fill="url(#%s)"%s/>`,
			seg.Kind, segmentPath(bar.X, seg, bar.Width), opts.id(seg.Kind.String()), stroke)
	}
	sb.WriteString("</g>")
}

// segmentPath draws a rectangle whose top and/or bottom corners are rounded.
func segmentPath(x float64, seg Segment, w float64) string {
	y, h := seg.Y, seg.Height
	r := math.Min(CornerRadius, math.Min(w/2, h/2))
	rt, rb := 0.0, 0.0
	if seg.RoundTop {
		rt = r
	}
	if seg.RoundBottom {
		rb = r
	}
	var sb strings.Builder
	sb.WriteString("M " + num(x) + "," + num(y+rt))
	if rt > 0 {
		sb.WriteString(" A " + num(rt) + "," + num(rt) + " 0 0 1 " + num(x+rt) + "," + num(y))
	}
	sb.WriteString(" H " + num(x+w-rt))
	if rt > 0 {
		sb.WriteString(" A " + num(rt) + "," + num(rt) + " 0 0 1 " + num(x+w) + "," + num(y+rt))
	}
	sb.WriteString(" V " + num(y+h-rb))
	if rb > 0 {
		sb.WriteString(" A " + num(rb) + "," + num(rb) + " 0 0 1 " + num(x+w-rb) + "," + num(y+h))
	}
	sb.WriteString(" H " + num(x+rb))
	if rb > 0 {
		sb.WriteString(" A " + num(rb) + "," + num(rb) + " 0 0 1 " + num(x) + "," + num(y+h-rb))
	}
	sb.WriteString(" Z")
	return sb.String()
}

func (c *Chart) writeTrend(sb *strings.Builder, style Style, p Palette) {
	sb.WriteString(`<g class="tc-trend">`)
	if area, ok := c.Layout.AreaPath(); ok {
		fmt.Fprintf(sb, `<path class="tc-area" d="%s" fill="%s" fill-opacity="%s" stroke="none"/>`,
			area, p.Trend, num(style.AreaOpacity))
	}
	if line, ok := c.Layout.TrendPath(); ok {
		fmt.Fprintf(sb, `<path class="tc-line" d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round" style="filter:drop-shadow(0px 8px 12px %s)"/>`,
			line, p.Trend, num(style.TrendStrokeWidth), p.TrendShadow)
		for i, pt := range c.Layout.Trend {
			r := style.MarkerRadius
			if i == c.Hovered {
				r = style.HoverMarkerRadius
			}
			fmt.Fprintf(sb, `<circle class="tc-point" cx="%s" cy="%s" r="%s" fill="white" stroke="%s" stroke-width="4"/>`,
				num(pt.X), num(pt.Y), num(r), p.Trend)
		}
	}
	sb.WriteString("</g>")
}

func (c *Chart) writeLane(sb *strings.Builder, lane Lane, opts RenderOptions, p Palette) {
	bar := c.Layout.Bars[lane.Index]
	run := bar.Run
	plot := c.Scale.Plot()
	hot := lane.Index == c.Hovered

	cursor := "default"
	if run.Clickable() {
		cursor = "pointer"
		fmt.Fprintf(sb, `<a href="%s" target="_blank" rel="noopener">`, html.EscapeString(run.URL))
	}
	fmt.Fprintf(sb, `<g class="tc-lane" data-index="%d" data-run="%d" style="cursor:%s">`, lane.Index, run.RunID, cursor)

	// transparent rect spanning the whole lane so hover isn't limited to the bar
	fmt.Fprintf(sb, `<rect class="tc-lane-hit" x="%s" y="%s" width="%s" height="%s" fill="transparent"/>`,
		num(lane.Left), num(plot.Top-10), num(lane.Width()), num(plot.Height()+40))

	bgOpacity := "0"
	if hot {
		bgOpacity = "1"
	}
	fmt.Fprintf(sb, `<rect class="tc-lane-bg" x="%s" y="%s" width="%s" height="%s" rx="16" fill="%s" fill-opacity="%s" pointer-events="none"/>`,
		num(bar.X-10), num(plot.Top-10), num(bar.Width+20), num(plot.Height()+40), p.LaneHover, bgOpacity)

	labelColor := p.RunLabel
	if hot {
		labelColor = p.RunLabelHot
	}
	fmt.Fprintf(sb, `<text class="tc-run-label" x="%s" y="%s" text-anchor="middle" fill="%s" font-size="11" font-weight="900">#%d</text>`,
		num(bar.Center), num(plot.Bottom+30), labelColor, run.RunID)

	if opts.CSSTooltips && !hot {
		if tip, ok := PositionTooltip(c.Layout, lane.Index); ok {
			writeTooltip(sb, tip, "tc-tip", p)
		}
	}
	sb.WriteString("</g>")
	if run.Clickable() {
		sb.WriteString("</a>")
	}
}

func writeTooltip(sb *strings.Builder, tip Tooltip, class string, p Palette) {
	x, y := tip.X, tip.Y
	fmt.Fprintf(sb, `<g class="%s" pointer-events="none">`, class)
	fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s" rx="16" fill="%s"/>`,
		num(x), num(y), num(tip.Width), num(tip.Height), p.TooltipBg)
	fmt.Fprintf(sb, `<text x="%s" y="%s" fill="%s" font-size="11" font-weight="900">%s</text>`,
		num(x+14), num(y+22), p.TooltipText, html.EscapeString(tip.Title()))
	fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"/>`,
		num(x+14), num(y+30), num(x+tip.Width-14), num(y+30), p.TooltipRule)

	rowY := y + 50
	for _, row := range tip.Rows() {
		labelColor := p.TooltipText
		switch row.Kind {
		case "passed":
			labelColor = p.segmentColor(SegmentPassed)
		case "failed":
			labelColor = p.segmentColor(SegmentFailed)
		case "skipped":
			labelColor = p.segmentColor(SegmentSkipped)
		case "rate":
			rowY += 8
			fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"/>`,
				num(x+14), num(rowY-14), num(x+tip.Width-14), num(rowY-14), p.TooltipRule)
		}
		valueColor := p.TooltipText
		if row.Kind == "rate" {
			valueColor = p.Trend
		}
		fmt.Fprintf(sb, `<text x="%s" y="%s" fill="%s" font-size="10" font-weight="600">%s</text>`,
			num(x+14), num(rowY), labelColor, html.EscapeString(row.Label))
		fmt.Fprintf(sb, `<text x="%s" y="%s" text-anchor="end" fill="%s" font-size="10" font-weight="900">%s</text>`,
			num(x+tip.Width-14), num(rowY), valueColor, html.EscapeString(row.Value))
		rowY += 18
	}
	sb.WriteString("</g>")
}

// num formats a coordinate with at most two decimals.
func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
