package curve

import (
	"errors"
	"math"

	"cutroom/internal/api"
)

// ErrNotDrawable is returned when fewer than two arcs are available.
var ErrNotDrawable = errors.New("curve: at least two arcs are required")

const (
	PadLeft   = 24.0
	PadRight  = 24.0
	PadTop    = 22.0
	PadBottom = 15.0

	DefaultWidth     = 720.0
	DefaultHeight    = 160.0
	DefaultTotalDays = 90.0

	pointHitRadius    = 14.0
	conflictHitRadius = 16.0
	conflictHitLift   = 11.0
	diamondSize       = 6.0
	diamondOffset     = diamondSize + 3
	defaultSeverity   = 5.0
)

// Palette holds the per-arc colours, reused cyclically.
var Palette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#06b6d4", "#8b5cf6",
	"#ec4899", "#14b8a6", "#6366f1", "#f43f5e", "#84cc16", "#0ea5e9",
}

// Input is the data plotted on the tension curve.
type Input struct {
	Arcs      []api.Arc
	Conflicts []api.Conflict
	TotalDays float64
}

// FromStory builds the curve input from a breakdown.
func FromStory(story *api.Story) Input {
	if story == nil {
		return Input{}
	}
	return Input{Arcs: story.Arcs(), Conflicts: story.Conflicts, TotalDays: story.Days()}
}

// Vec is a 2D point in surface coordinates.
type Vec struct {
	X, Y float64
}

// Point is one arc anchor on the curve.
type Point struct {
	Vec
	Tension    float64
	Percentage float64
	Name       string
	Desc       string
	DayRange   string
	Color      string
}

// Segment is a cubic Bezier from the previous anchor to End.
type Segment struct {
	CP1, CP2, End Vec
}

// Marker is a conflict diamond placed on the curve.
type Marker struct {
	Vec
	Color    string
	Conflict api.Conflict
}

// Layout is the computed geometry of one curve.
type Layout struct {
	Width, Height  float64
	GraphW, GraphH float64
	Points         []Point
	Segments       []Segment
	Markers        []Marker
	Peak           int
	TotalDays      float64
}

// Compute lays the curve out on a width x height surface.
func Compute(in Input, width, height float64) (*Layout, error) {
	if len(in.Arcs) < 2 {
		return nil, ErrNotDrawable
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	totalDays := in.TotalDays
	if totalDays <= 0 {
		totalDays = DefaultTotalDays
	}
	l := &Layout{
		Width:     width,
		Height:    height,
		GraphW:    width - PadLeft - PadRight,
		GraphH:    height - PadTop - PadBottom,
		TotalDays: totalDays,
	}

	n := len(in.Arcs)
	fallbackPct := math.Round(100 / float64(n))
	cumPct := 0.0
	peakVal := 0.0
	for i, arc := range in.Arcs {
		pct := arc.Percentage
		if pct == 0 {
			pct = fallbackPct
		}
		mid := cumPct + pct/2
		p := Point{
			Vec: Vec{
				X: PadLeft + mid/100*l.GraphW,
				Y: PadTop + l.GraphH - arc.Tension/100*l.GraphH,
			},
			Tension:    arc.Tension,
			Percentage: pct,
			Name:       arc.Phase,
			Desc:       arc.Description,
			DayRange:   arc.DayRange,
			Color:      Palette[i%len(Palette)],
		}
		if arc.Tension > peakVal {
			peakVal = arc.Tension
			l.Peak = i
		}
		l.Points = append(l.Points, p)
		cumPct += pct
	}

	for i := 0; i < n-1; i++ {
		p0 := l.Points[max(i-1, 0)].Vec
		p1 := l.Points[i].Vec
		p2 := l.Points[i+1].Vec
		p3 := l.Points[min(i+2, n-1)].Vec
		l.Segments = append(l.Segments, Segment{
			CP1: Vec{X: p1.X + (p2.X-p0.X)/6, Y: p1.Y + (p2.Y-p0.Y)/6},
			CP2: Vec{X: p2.X - (p3.X-p1.X)/6, Y: p2.Y - (p3.Y-p1.Y)/6},
			End: p2,
		})
	}

	for _, c := range in.Conflicts {
		if c.Day == 0 {
			continue
		}
		x := l.ConflictX(c.Day)
		l.Markers = append(l.Markers, Marker{
			Vec:      Vec{X: x, Y: l.YAt(x)},
			Color:    SeverityColor(c.Severity),
			Conflict: c,
		})
	}
	return l, nil
}

// ConflictX maps a story day onto the horizontal axis.
func (l *Layout) ConflictX(day float64) float64 {
	return PadLeft + day/l.TotalDays*l.GraphW
}

// Baseline is the y coordinate of the graph floor.
func (l *Layout) Baseline() float64 {
	return l.Height - PadBottom
}

// YAt evaluates the curve at x. Outside the anchors it clamps to the first
// or last anchor's y.
func (l *Layout) YAt(x float64) float64 {
	for i, seg := range l.Segments {
		startX := l.Points[i].X
		endX := seg.End.X
		if x >= startX && x <= endX {
			if endX == startX {
				return l.Points[i].Y
			}
			t := (x - startX) / (endX - startX)
			return bezierY(l.Points[i].Y, seg.CP1.Y, seg.CP2.Y, seg.End.Y, t)
		}
	}
	if x <= l.Points[0].X {
		return l.Points[0].Y
	}
	return l.Points[len(l.Points)-1].Y
}

func bezierY(p0, p1, p2, p3, t float64) float64 {
	mt := 1 - t
	return mt*mt*mt*p0 + 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t*p3
}

// TensionAt converts the curve height at x back to a 0-100 tension value.
func (l *Layout) TensionAt(x float64) float64 {
	if l.GraphH <= 0 {
		return 0
	}
	return (PadTop + l.GraphH - l.YAt(x)) / l.GraphH * 100
}

// SeverityColor picks the conflict marker colour. A zero severity counts as 5.
func SeverityColor(severity float64) string {
	if severity == 0 {
		severity = defaultSeverity
	}
	switch {
	case severity >= 7:
		return "#ef4444"
	case severity >= 4:
		return "#f59e0b"
	default:
		return "#22c55e"
	}
}
