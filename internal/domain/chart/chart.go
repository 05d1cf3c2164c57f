// Package chart projects the health metrics series into SVG line chart geometry.
package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/vitaldash/internal/domain/display"
	"github.com/okian/vitaldash/internal/domain/model"
)

// Title of the dashboard chart.
const Title = "Health Metrics Over Time"

// Viewport geometry in SVG user units.
const (
	Width        = 720.0
	Height       = 300.0
	padLeft      = 48.0
	padRight     = 16.0
	padTop       = 16.0
	padBottom    = 40.0
	targetYTicks = 5
)

// Series colors.
const (
	ColorBMI       = "rgb(75, 192, 192)"
	ColorSystolic  = "rgb(255, 99, 132)"
	ColorDiastolic = "rgb(53, 162, 235)"
)

// Point in SVG coordinates.
type Point struct {
	X, Y  float64
	Value float64
}

// Dataset is one line on the chart.
type Dataset struct {
	Label  string
	Color  string
	Values []*float64
	// Segments are SVG polyline "points" attributes. Missing values split the line.
	Segments []string
	Points   []Point
}

// Tick is an axis label at a position.
type Tick struct {
	Pos   float64
	Label string
}

// Chart is the renderable chart.
type Chart struct {
	Title    string
	Width    float64
	Height   float64
	Labels   []string
	Datasets []Dataset
	XTicks   []Tick
	YTicks   []Tick
	// Plot area bounds.
	Left, Right, Top, Bottom float64
	// Y range shared by all datasets.
	Min, Max float64
}

// Empty reports whether there is nothing to draw.
func (c Chart) Empty() bool {
	for _, ds := range c.Datasets {
		if len(ds.Points) > 0 {
			return false
		}
	}
	return true
}

// Build lays out the BMI, systolic and diastolic series over the sample dates.
func Build(samples []model.HealthMetricsSample) Chart {
	c := Chart{
		Title:  Title,
		Width:  Width,
		Height: Height,
		Left:   padLeft,
		Right:  Width - padRight,
		Top:    padTop,
		Bottom: Height - padBottom,
	}

	bmi := make([]*float64, len(samples))
	sys := make([]*float64, len(samples))
	dia := make([]*float64, len(samples))
	c.Labels = make([]string, len(samples))
	for i, s := range samples {
		c.Labels[i] = display.Date(s.Date)
		bmi[i] = s.BMI
		sys[i] = s.BloodPressureSystolic
		dia[i] = s.BloodPressureDiastolic
	}
	c.Datasets = []Dataset{
		{Label: "BMI", Color: ColorBMI, Values: bmi},
		{Label: "Systolic BP", Color: ColorSystolic, Values: sys},
		{Label: "Diastolic BP", Color: ColorDiastolic, Values: dia},
	}

	lo, hi, ok := valueRange(c.Datasets)
	if !ok {
		return c
	}
	step := niceStep((hi - lo) / float64(targetYTicks-1))
	c.Min = math.Floor(lo/step) * step
	c.Max = math.Ceil(hi/step) * step
	if c.Max == c.Min {
		c.Max = c.Min + step
	}

	for v := c.Min; v <= c.Max+step/2; v += step {
		c.YTicks = append(c.YTicks, Tick{Pos: c.y(v), Label: formatTick(v)})
	}
	for i, label := range c.Labels {
		c.XTicks = append(c.XTicks, Tick{Pos: c.x(i), Label: label})
	}

	for d := range c.Datasets {
		ds := &c.Datasets[d]
		var seg []string
		for i, v := range ds.Values {
			if v == nil || math.IsNaN(*v) {
				if len(seg) > 0 {
					ds.Segments = append(ds.Segments, strings.Join(seg, " "))
					seg = nil
				}
				continue
			}
			p := Point{X: c.x(i), Y: c.y(*v), Value: *v}
			ds.Points = append(ds.Points, p)
			seg = append(seg, coord(p.X)+","+coord(p.Y))
		}
		if len(seg) > 0 {
			ds.Segments = append(ds.Segments, strings.Join(seg, " "))
		}
	}
	return c
}

func (c Chart) x(i int) float64 {
	n := len(c.Labels)
	if n <= 1 {
		return (c.Left + c.Right) / 2
	}
	return c.Left + float64(i)*(c.Right-c.Left)/float64(n-1)
}

func (c Chart) y(v float64) float64 {
	return c.Bottom - (v-c.Min)/(c.Max-c.Min)*(c.Bottom-c.Top)
}

func valueRange(datasets []Dataset) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, ds := range datasets {
		for _, v := range ds.Values {
			if v == nil || math.IsNaN(*v) {
				continue
			}
			lo = math.Min(lo, *v)
			hi = math.Max(hi, *v)
			ok = true
		}
	}
	return lo, hi, ok
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1:
		return mag
	case norm <= 2:
		return 2 * mag
	case norm <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func formatTick(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
