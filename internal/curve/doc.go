// Package curve lays out and renders the narrative tension curve: arc anchors
// positioned by cumulative percentage, a Catmull-Rom spline converted to
// cubic Bezier segments, conflict diamonds placed on the curve by story day,
// and hover hit testing. Output is SVG or a terminal sparkline.
package curve
