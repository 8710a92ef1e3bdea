package curve

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrNoSurface is returned when painting onto a surface with no width, such
// as a hidden section.
var ErrNoSurface = errors.New("curve: surface has no size")

// Plot binds curve data to a surface. The layout follows the surface's
// runtime size; a single Resize is honoured before the first paint and later
// resizes are ignored.
type Plot struct {
	mu      sync.Mutex
	in      Input
	width   float64
	height  float64
	layout  *Layout
	err     error
	resized bool
	painted bool
}

// NewPlot prepares a plot. A plot with fewer than two arcs is kept but every
// operation on it is a no-op returning ErrNotDrawable.
func NewPlot(in Input, width, height float64) *Plot {
	p := &Plot{in: in, width: width, height: height}
	p.recompute()
	return p
}

func (p *Plot) recompute() {
	if p.width <= 0 {
		p.layout, p.err = nil, nil
		if len(p.in.Arcs) < 2 {
			p.err = ErrNotDrawable
		}
		return
	}
	p.layout, p.err = Compute(p.in, p.width, p.height)
}

// Resize reports whether the new size was applied.
func (p *Plot) Resize(width, height float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resized || p.painted || width <= 0 || p.err != nil {
		return false
	}
	p.resized = true
	p.width = width
	if height > 0 {
		p.height = height
	}
	p.recompute()
	return true
}

// Layout returns the current geometry.
func (p *Plot) Layout() (*Layout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if p.layout == nil {
		return nil, ErrNoSurface
	}
	return p.layout, nil
}

// Paint writes the SVG for the current layout.
func (p *Plot) Paint(w io.Writer) error {
	layout, err := p.Layout()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.painted = true
	p.mu.Unlock()
	return layout.WriteSVG(w)
}

// Painted reports whether Paint has succeeded at least once.
func (p *Plot) Painted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.painted
}

// HitTest forwards to the layout. It reports no hit when not drawable.
func (p *Plot) HitTest(x, y float64) (Tooltip, bool) {
	layout, err := p.Layout()
	if err != nil {
		return Tooltip{}, false
	}
	return layout.HitTest(x, y)
}

const sparkRunes = "▁▂▃▄▅▆▇█"

// Sparkline samples the curve into columns of block characters.
func (l *Layout) Sparkline(columns int) string {
	if l == nil || columns <= 0 {
		return ""
	}
	runes := []rune(sparkRunes)
	first := l.Points[0].X
	last := l.Points[len(l.Points)-1].X
	var b strings.Builder
	for c := 0; c < columns; c++ {
		x := first
		if columns > 1 {
			x = first + (last-first)*float64(c)/float64(columns-1)
		}
		t := l.TensionAt(x)
		idx := int(t / 100 * float64(len(runes)-1))
		idx = max(0, min(idx, len(runes)-1))
		b.WriteRune(runes[idx])
	}
	return b.String()
}
