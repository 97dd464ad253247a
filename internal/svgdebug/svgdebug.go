// Package svgdebug renders a map's collision geometry to SVG for visual
// inspection, mirroring the source compiler's -S/--svg-dump option.
package svgdebug

import (
	"fmt"
	"io"

	"github.com/aliensun/mapcompile/internal/collision"
)

// ViewBox is the SVG viewBox rectangle, in pixels.
type ViewBox struct {
	X, Y, W, H float64
}

// Write renders builder's unioned polygons (green fill, black stroke),
// polylines (stroke only) and circles (green fill, black stroke) as a
// single SVG document. Write must be called after builder.Build.
func Write(w io.Writer, builder *collision.Builder, box ViewBox) error {
	if _, err := fmt.Fprintf(w, `<svg viewBox="%g %g %g %g" xmlns="http://www.w3.org/2000/svg">`, box.X, box.Y, box.W, box.H); err != nil {
		return err
	}

	if _, err := io.WriteString(w, `<path fill="green" stroke="black" d="`); err != nil {
		return err
	}
	for _, poly := range builder.Polygons() {
		if err := writeLoop(w, poly, true); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, `"/>`); err != nil {
		return err
	}

	for _, pl := range builder.Polylines() {
		if _, err := io.WriteString(w, `<path fill="none" stroke="black" d="`); err != nil {
			return err
		}
		if err := writeLoop(w, pl.Points, false); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `"/>`); err != nil {
			return err
		}
	}

	for _, c := range builder.Circles() {
		if _, err := fmt.Fprintf(w, `<circle fill="green" stroke="black" r="%g" cx="%g" cy="%g"/>`, c.R, c.X, c.Y); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, `</svg>`)
	return err
}

func writeLoop(w io.Writer, pts []collision.Point, closed bool) error {
	cmd := "M"
	for _, p := range pts {
		if _, err := fmt.Fprintf(w, "%s %g %g ", cmd, p.X, p.Y); err != nil {
			return err
		}
		cmd = "L"
	}
	if closed {
		if _, err := io.WriteString(w, "Z "); err != nil {
			return err
		}
	}
	return nil
}
