package render

import (
	"math"

	"gopkg.in/go-playground/colors.v1" //nolint
)

// neutralHex is the colour of cells without a finite value.
const neutralHex = "#cccccc"

// Palette maps a position in [0, 1] to a hex colour. Positions outside the
// range are clamped, NaN maps to a neutral grey.
type Palette interface {
	At(t float64) string
}

// gradient interpolates linearly between equally spaced RGB stops.
type gradient struct {
	stops [][3]float64
}

// Sequential returns the white to red to black ramp used for contact maps.
func Sequential() Palette {
	return gradient{stops: [][3]float64{
		{1, 1, 1},
		{1, 0, 0},
		{0, 0, 0},
	}}
}

// Diverging returns the blue to white to red ramp used for differential
// maps, centred on white.
func Diverging() Palette {
	return gradient{stops: [][3]float64{
		{0, 0, 0.5},
		{0, 0, 1},
		{1, 1, 1},
		{1, 0, 0},
		{0.5, 0, 0},
	}}
}

func (g gradient) At(t float64) string {
	if math.IsNaN(t) {
		return neutralHex
	}

	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(g.stops)-1)
	idx := int(pos)
	if idx > len(g.stops)-2 {
		idx = len(g.stops) - 2
	}
	frac := pos - float64(idx)

	low, high := g.stops[idx], g.stops[idx+1]

	channel := func(c int) uint8 {
		return uint8(math.Round((low[c] + frac*(high[c]-low[c])) * 255))
	}

	rgb, err := colors.RGB(channel(0), channel(1), channel(2))
	if err != nil {
		return neutralHex
	}

	return rgb.ToHEX().String()
}

var _ Palette = gradient{}
