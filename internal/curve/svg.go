package curve

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// WriteSVG renders the layout as a standalone SVG document.
func (l *Layout) WriteSVG(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(l.Width), num(l.Height), num(l.Width), num(l.Height))
	b.WriteString(`<defs>` + "\n")
	fmt.Fprintf(&b, `<linearGradient id="tensionFill" gradientUnits="userSpaceOnUse" x1="0" y1="%s" x2="0" y2="%s">`+"\n",
		num(PadTop), num(l.Baseline()))
	b.WriteString(`<stop offset="0" stop-color="rgb(239,68,68)" stop-opacity="0.30"/>` + "\n")
	b.WriteString(`<stop offset="0.4" stop-color="rgb(234,179,8)" stop-opacity="0.15"/>` + "\n")
	b.WriteString(`<stop offset="1" stop-color="rgb(34,197,94)" stop-opacity="0.03"/>` + "\n")
	b.WriteString(`</linearGradient>` + "\n")
	b.WriteString(`<filter id="glow" x="-50%" y="-50%" width="200%" height="200%"><feGaussianBlur stdDeviation="4" result="blur"/><feMerge><feMergeNode in="blur"/><feMergeNode in="SourceGraphic"/></feMerge></filter>` + "\n")
	b.WriteString(`</defs>` + "\n")

	first := l.Points[0]
	last := l.Points[len(l.Points)-1]
	curve := l.pathData()
	fmt.Fprintf(&b, `<path d="M %s %s L %s %s %s L %s %s Z" fill="url(#tensionFill)"/>`+"\n",
		num(first.X), num(l.Baseline()), num(first.X), num(first.Y), curve, num(last.X), num(l.Baseline()))
	fmt.Fprintf(&b, `<path d="M %s %s %s" fill="none" stroke="rgba(255,255,255,0.9)" stroke-width="2.5" stroke-linejoin="round" filter="url(#glow)"/>`+"\n",
		num(first.X), num(first.Y), curve)

	for i, m := range l.Markers {
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-opacity="0.27" stroke-width="1" stroke-dasharray="3 3"/>`+"\n",
			num(m.X), num(m.Y), num(m.X), num(l.Baseline()), m.Color)
		cy := m.Y - diamondOffset
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" transform="rotate(45 %s %s)" filter="url(#glow)">`,
			num(m.X-diamondSize/2), num(cy-diamondSize/2), num(diamondSize), num(diamondSize), m.Color, num(m.X), num(cy))
		writeTitle(&b, l.conflictTooltip(i))
		b.WriteString("</rect>\n")
	}

	for i, p := range l.Points {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="6" fill="%s" stroke="rgba(255,255,255,0.5)" stroke-width="1.5" filter="url(#glow)">`,
			num(p.X), num(p.Y), p.Color)
		writeTitle(&b, l.pointTooltip(i))
		b.WriteString("</circle>\n")
	}

	pk := l.Points[l.Peak]
	fmt.Fprintf(&b, `<path d="M %s %s L %s %s L %s %s Z" fill="#ef4444"/>`+"\n",
		num(pk.X), num(pk.Y-14), num(pk.X-4), num(pk.Y-8), num(pk.X+4), num(pk.Y-8))
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (l *Layout) pathData() string {
	parts := make([]string, 0, len(l.Segments))
	for _, s := range l.Segments {
		parts = append(parts, fmt.Sprintf("C %s %s, %s %s, %s %s",
			num(s.CP1.X), num(s.CP1.Y), num(s.CP2.X), num(s.CP2.Y), num(s.End.X), num(s.End.Y)))
	}
	return strings.Join(parts, " ")
}

func writeTitle(b *strings.Builder, t Tooltip) {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(t.Text()))
	b.WriteString("<title>")
	b.Write(buf.Bytes())
	b.WriteString("</title>")
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
