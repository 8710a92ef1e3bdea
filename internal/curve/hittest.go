package curve

import (
	"fmt"
	"math"
	"strconv"
)

// TooltipKind tells point tooltips from conflict tooltips.
type TooltipKind int

const (
	TooltipPoint TooltipKind = iota
	TooltipConflict
)

// Tooltip is the hover text for a hit.
type Tooltip struct {
	Kind  TooltipKind
	Index int
	Title string
	Lines []string
	X, Y  float64
}

// HitTest finds the element under (x, y). Arc points win over conflict
// diamonds.
func (l *Layout) HitTest(x, y float64) (Tooltip, bool) {
	if l == nil {
		return Tooltip{}, false
	}
	for i, p := range l.Points {
		if math.Hypot(x-p.X, y-p.Y) < pointHitRadius {
			return l.pointTooltip(i), true
		}
	}
	for i, m := range l.Markers {
		if math.Hypot(x-m.X, y-(m.Y-conflictHitLift)) < conflictHitRadius {
			return l.conflictTooltip(i), true
		}
	}
	return Tooltip{}, false
}

func (l *Layout) pointTooltip(i int) Tooltip {
	p := l.Points[i]
	return Tooltip{
		Kind:  TooltipPoint,
		Index: i,
		Title: p.Name,
		Lines: []string{fmt.Sprintf("Tension: %s/100", formatNumber(p.Tension)), p.DayRange},
		X:     math.Min(p.X+12, l.Width-180),
		Y:     p.Y - 10,
	}
}

func (l *Layout) conflictTooltip(i int) Tooltip {
	m := l.Markers[i]
	c := m.Conflict
	title := c.Title
	if title == "" {
		title = "?"
	}
	severity := "?"
	if c.Severity != 0 {
		severity = formatNumber(c.Severity)
	}
	return Tooltip{
		Kind:  TooltipConflict,
		Index: i,
		Title: "⚡ " + title,
		Lines: []string{c.Description, fmt.Sprintf("Day %s · Severity %s/10", formatNumber(c.Day), severity)},
		X:     math.Min(m.X+12, l.Width-200),
		Y:     m.Y - 30,
	}
}

// Text renders the tooltip as plain lines.
func (t Tooltip) Text() string {
	out := t.Title
	for _, line := range t.Lines {
		out += "\n" + line
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
