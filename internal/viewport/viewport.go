// Package viewport maps between screen space (the viewing surface, affected
// by pan and zoom) and board space (the fixed 3200x1800 logical canvas note
// positions are stored in).
package viewport

import (
	"fmt"
	"math"
	"strconv"

	"questboard/internal/model"
)

const (
	MinScale = 0.1
	MaxScale = 3.0

	// ZoomStep is the delta applied by zoom buttons/keys.
	ZoomStep = 0.1
	// WheelFactor converts a pixel wheel delta into a scale delta.
	WheelFactor = -0.001
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Dist is the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// State is the client-local, never persisted part of the viewport.
type State struct {
	Scale float64 `json:"scale"`
	Pan   Point   `json:"panOffset"`
}

// Viewport owns the zoom scale and pan offset of one viewer.
//
// The board is centred in the viewing surface: with a zero pan offset the
// board centre sits at the surface centre, at any scale.
type Viewport struct {
	scale  float64
	pan    Point
	width  float64
	height float64

	transform string
	percent   int
}

// New returns a viewport at scale 1 with no pan for a surface of the given size.
func New(width, height float64) *Viewport {
	v := &Viewport{scale: 1, width: width, height: height}
	v.derive()
	return v
}

// Resize updates the viewing surface size without touching scale or pan.
func (v *Viewport) Resize(width, height float64) {
	v.width = width
	v.height = height
}

func (v *Viewport) Size() (float64, float64) { return v.width, v.height }
func (v *Viewport) Scale() float64         { return v.scale }
func (v *Viewport) Pan() Point             { return v.pan }
func (v *Viewport) State() State           { return State{Scale: v.scale, Pan: v.pan} }

// Transform is the on-screen transform of the board element.
func (v *Viewport) Transform() string { return v.transform }

// ZoomPercent is the displayed zoom level, round(scale*100).
func (v *Viewport) ZoomPercent() int { return v.percent }

// originShift is where board origin (0,0) lands on screen before panning.
func (v *Viewport) originShift() Point {
	return Point{
		X: v.width/2 - model.BoardWidth/2*v.scale,
		Y: v.height/2 - model.BoardHeight/2*v.scale,
	}
}

// ScreenToBoard inverse-maps a screen point: (screen - originShift - pan) / scale.
func (v *Viewport) ScreenToBoard(p Point) Point {
	o := v.originShift()
	return Point{
		X: (p.X - o.X - v.pan.X) / v.scale,
		Y: (p.Y - o.Y - v.pan.Y) / v.scale,
	}
}

// BoardToScreen is the forward transform: board*scale + originShift + pan.
func (v *Viewport) BoardToScreen(p Point) Point {
	o := v.originShift()
	return Point{
		X: p.X*v.scale + o.X + v.pan.X,
		Y: p.Y*v.scale + o.Y + v.pan.Y,
	}
}

// ZoomBy changes the scale by delta. A delta that would leave
// [MinScale, MaxScale] is rejected and the scale stays where it was, so
// repeated small deltas at a bound never creep past it.
func (v *Viewport) ZoomBy(delta float64) (float64, bool) {
	next := v.scale + delta
	if next < MinScale || next > MaxScale || math.IsNaN(next) {
		return v.scale, false
	}
	v.scale = next
	v.derive()
	return v.scale, true
}

// WheelZoom applies a pixel wheel delta (positive deltaY zooms out).
func (v *Viewport) WheelZoom(deltaY float64) (float64, bool) {
	return v.ZoomBy(deltaY * WheelFactor)
}

// FitToViewport resets the pan offset and picks the largest scale that shows
// the whole board on a width x height surface, clamped to the zoom bounds.
func (v *Viewport) FitToViewport(width, height float64) float64 {
	v.width = width
	v.height = height
	v.pan = Point{}
	v.scale = clampScale(math.Min(width/model.BoardWidth, height/model.BoardHeight))
	v.derive()
	return v.scale
}

// PanTo sets the pan offset in screen units.
func (v *Viewport) PanTo(p Point) {
	v.pan = p
	v.derive()
}

// PanBy moves the pan offset by (dx, dy) screen units.
func (v *Viewport) PanBy(dx, dy float64) {
	v.PanTo(Point{X: v.pan.X + dx, Y: v.pan.Y + dy})
}

func (v *Viewport) derive() {
	v.transform = fmt.Sprintf("translate(calc(-50%% + %spx), calc(-50%% + %spx)) scale(%s)",
		fmtNum(v.pan.X), fmtNum(v.pan.Y), fmtNum(v.scale))
	v.percent = int(math.Round(v.scale * 100))
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) || s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
