package render

import (
	"io"
	"math"
	"text/template"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// HeatmapOptions tune a matrix rendering.
type HeatmapOptions struct {
	// Palette colours the cells. Defaults to Sequential.
	Palette Palette
	// Log10 colours the log10 of the cell values instead of the raw values.
	Log10 bool
	// Min and Max bound the colour range. When equal, the range is derived
	// from the finite values of the matrix.
	Min float64
	Max float64
	// CellSize is the edge of one cell in pixels. Defaults to 2.
	CellSize int
	// Title is an optional SVG title.
	Title string
}

const defaultCellSize = 2

//nolint:lll //this is a template
const heatmapTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{- if .Title}}
<title>{{.Title}}</title>
{{- end}}
{{- range .Cells}}
<rect x="{{.X}}" y="{{.Y}}" width="{{$.CellSize}}" height="{{$.CellSize}}" fill="{{.Fill}}"/>
{{- end}}
</svg>
`

type heatmapCell struct {
	X    int
	Y    int
	Fill string
}

type heatmapDoc struct {
	Width    int
	Height   int
	CellSize int
	Title    string
	Cells    []heatmapCell
}

// Heatmap renders the matrix as an SVG grid of coloured cells. Cells without
// a finite value come out neutral grey.
func Heatmap(w io.Writer, m mat.Matrix, opts HeatmapOptions) error {
	if m == nil {
		return ErrMatrixMustBeSet
	}

	pal := opts.Palette
	if pal == nil {
		pal = Sequential()
	}

	cell := opts.CellSize
	if cell <= 0 {
		cell = defaultCellSize
	}

	rows, cols := m.Dims()

	values := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if opts.Log10 {
				v = math.Log10(v)
			}
			if math.IsInf(v, 0) {
				v = math.NaN()
			}

			values[i*cols+j] = v
		}
	}

	lo, hi := opts.Min, opts.Max
	if lo == hi {
		lo, hi = valueRange(values)
	}
	if hi == lo {
		hi = lo + 1
	}

	doc := heatmapDoc{
		Width:    cols * cell,
		Height:   rows * cell,
		CellSize: cell,
		Title:    opts.Title,
		Cells:    make([]heatmapCell, 0, rows*cols),
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t := (values[i*cols+j] - lo) / (hi - lo)
			doc.Cells = append(doc.Cells, heatmapCell{
				X:    j * cell,
				Y:    i * cell,
				Fill: pal.At(t),
			})
		}
	}

	tpl, err := template.New("heatmap").Parse(heatmapTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse heatmap template")
	}

	err = tpl.Execute(w, doc)
	if err != nil {
		return errors.Wrap(err, "unable to execute heatmap template")
	}

	return nil
}

// Differential prepares a log-ratio matrix for rendering: the flat trend is
// subtracted everywhere and, in triangular mode, the upper triangle is
// blanked out.
func Differential(d *mat.Dense, trend float64, triangular bool) (*mat.Dense, error) {
	if d == nil {
		return nil, ErrMatrixMustBeSet
	}

	rows, cols := d.Dims()
	out := mat.NewDense(rows, cols, nil)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if triangular && j > i {
				out.Set(i, j, math.NaN())

				continue
			}

			out.Set(i, j, d.At(i, j)-trend)
		}
	}

	return out, nil
}

func valueRange(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if lo > hi {
		return 0, 1
	}

	return lo, hi
}
