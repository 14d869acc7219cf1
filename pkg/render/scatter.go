package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// ScatterOptions tune an MD scatter plot.
type ScatterOptions struct {
	// Trend is subtracted from every point and from the trend line, so a
	// flat cloud sits on zero.
	Trend float64
	// TrendX and TrendY trace the per-bin median ratio. SpreadY traces the
	// per-bin ratio spread over the same x positions. All three are
	// optional.
	TrendX  []float64
	TrendY  []float64
	SpreadY []float64
	// Threshold draws a vertical rule at log2(Threshold) when positive.
	Threshold float64
	// Width and Height are the SVG size in pixels. Defaults to 640 by 480.
	Width  int
	Height int
}

const (
	defaultScatterWidth  = 640
	defaultScatterHeight = 480
	scatterMargin        = 48.0
	pointRadius          = 2
)

//nolint:lll //this is a template
const scatterTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<line x1="{{.Left}}" y1="{{.Bottom}}" x2="{{.Right}}" y2="{{.Bottom}}" stroke="#000000"/>
<line x1="{{.Left}}" y1="{{.Top}}" x2="{{.Left}}" y2="{{.Bottom}}" stroke="#000000"/>
<text x="{{.XLabelX}}" y="{{.XLabelY}}" text-anchor="middle" font-size="12">{{.XLabel}}</text>
<text x="{{.YLabelX}}" y="{{.YLabelY}}" text-anchor="middle" font-size="12" transform="rotate(-90 {{.YLabelX}} {{.YLabelY}})">{{.YLabel}}</text>
{{- range .Points}}
<circle cx="{{.X}}" cy="{{.Y}}" r="{{$.Radius}}" fill="#1f77b4" fill-opacity="0.5"/>
{{- end}}
{{- if .Trend}}
<polyline points="{{.Trend}}" fill="none" stroke="#ffff00" stroke-width="2"/>
{{- end}}
{{- if .Spread}}
<polyline points="{{.Spread}}" fill="none" stroke="#ff0000" stroke-width="2"/>
{{- end}}
{{- if .HasRule}}
<line x1="{{.RuleX}}" y1="{{.Top}}" x2="{{.RuleX}}" y2="{{.Bottom}}" stroke="#1f77b4"/>
{{- end}}
</svg>
`

type scatterPoint struct {
	X string
	Y string
}

type scatterDoc struct {
	Width   int
	Height  int
	Left    string
	Right   string
	Top     string
	Bottom  string
	XLabel  string
	YLabel  string
	XLabelX string
	XLabelY string
	YLabelX string
	YLabelY string
	Radius  int
	Points  []scatterPoint
	Trend   string
	Spread  string
	HasRule bool
	RuleX   string
}

// MDScatter renders the (mean, diff) cloud with the trend subtracted, the
// per-bin trend and spread lines, and the threshold rule.
func MDScatter(w io.Writer, mean, diff []float64, opts ScatterOptions) error {
	if len(mean) != len(diff) {
		return errors.Wrapf(ErrCloudMismatch, "%d means, %d diffs", len(mean), len(diff))
	}

	if len(opts.TrendX) != len(opts.TrendY) {
		return errors.Wrap(ErrCloudMismatch, "trend line")
	}

	if len(opts.SpreadY) > 0 && len(opts.SpreadY) != len(opts.TrendX) {
		return errors.Wrap(ErrCloudMismatch, "spread line")
	}

	width := opts.Width
	if width <= 0 {
		width = defaultScatterWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultScatterHeight
	}

	xs := make([]float64, 0, len(mean))
	ys := make([]float64, 0, len(diff))
	for i := range mean {
		y := diff[i] - opts.Trend
		if !finite(mean[i]) || !finite(y) {
			continue
		}

		xs = append(xs, mean[i])
		ys = append(ys, y)
	}

	if len(xs) == 0 {
		return ErrNoFinitePoint
	}

	ruleX := math.NaN()
	if opts.Threshold > 0 {
		ruleX = math.Log2(opts.Threshold)
	}

	xlo, xhi := dataRange(xs, opts.TrendX, []float64{ruleX})
	ylo, yhi := dataRange(ys, shifted(opts.TrendY, opts.Trend), opts.SpreadY)

	plot := plotArea{
		left:   scatterMargin,
		top:    scatterMargin / 2,
		width:  float64(width) - 1.5*scatterMargin,
		height: float64(height) - 1.5*scatterMargin,
		xlo:    xlo,
		xhi:    xhi,
		ylo:    ylo,
		yhi:    yhi,
	}

	doc := scatterDoc{
		Width:   width,
		Height:  height,
		Left:    coord(plot.left),
		Right:   coord(plot.left + plot.width),
		Top:     coord(plot.top),
		Bottom:  coord(plot.top + plot.height),
		XLabel:  "Log2 Mean contact number",
		YLabel:  "Log2 ratio",
		XLabelX: coord(plot.left + plot.width/2),
		XLabelY: coord(float64(height) - 8),
		YLabelX: coord(14),
		YLabelY: coord(plot.top + plot.height/2),
		Radius:  pointRadius,
		Points:  make([]scatterPoint, 0, len(xs)),
		Trend:   polyline(plot, opts.TrendX, shifted(opts.TrendY, opts.Trend)),
		Spread:  polyline(plot, opts.TrendX, opts.SpreadY),
	}

	for i := range xs {
		doc.Points = append(doc.Points, scatterPoint{
			X: coord(plot.x(xs[i])),
			Y: coord(plot.y(ys[i])),
		})
	}

	if finite(ruleX) {
		doc.HasRule = true
		doc.RuleX = coord(plot.x(ruleX))
	}

	tpl, err := template.New("scatter").Parse(scatterTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse scatter template")
	}

	err = tpl.Execute(w, doc)
	if err != nil {
		return errors.Wrap(err, "unable to execute scatter template")
	}

	return nil
}

type plotArea struct {
	left   float64
	top    float64
	width  float64
	height float64
	xlo    float64
	xhi    float64
	ylo    float64
	yhi    float64
}

func (p plotArea) x(v float64) float64 {
	return p.left + (v-p.xlo)/(p.xhi-p.xlo)*p.width
}

func (p plotArea) y(v float64) float64 {
	return p.top + p.height - (v-p.ylo)/(p.yhi-p.ylo)*p.height
}

// dataRange returns the finite min and max over all the slices, padded by 5%
// so nothing sits exactly on the axes.
func dataRange(slices ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, xs := range slices {
		for _, v := range xs {
			if !finite(v) {
				continue
			}

			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	if lo > hi {
		return 0, 1
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}

	return lo - span/20, hi + span/20
}

func polyline(plot plotArea, xs, ys []float64) string {
	if len(xs) == 0 || len(xs) != len(ys) {
		return ""
	}

	var sb strings.Builder
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(coord(plot.x(xs[i])))
		sb.WriteByte(',')
		sb.WriteString(coord(plot.y(ys[i])))
	}

	return sb.String()
}

func shifted(ys []float64, by float64) []float64 {
	if by == 0 {
		return ys
	}

	out := make([]float64, len(ys))
	for i, y := range ys {
		out[i] = y - by
	}

	return out
}

func coord(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
