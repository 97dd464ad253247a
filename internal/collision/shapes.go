// Package collision builds the per-map collision shape stream: it
// derives shapes from tileset tiles, ingests them (with the flip
// transforms tile rotation implies) over chunked tile data, ingests
// object-layer shapes directly, unions the polygon set, and emits the
// tagged record stream mapfile defines.
package collision

import "math"

// TileSize is the authoring tile dimension in pixels; the map compiler
// only ever works with 16x16 tiles.
const TileSize = 16.0

// Point is a 2-D coordinate in pixel units.
type Point struct {
	X, Y float64
}

// Circle is a circle shape with (X, Y) its center.
type Circle struct {
	R, X, Y float64
}

// Translate returns c shifted by (dx, dy).
func (c Circle) Translate(dx, dy float64) Circle {
	return Circle{R: c.R, X: c.X + dx, Y: c.Y + dy}
}

// Polyline is an open chain of vertices.
type Polyline struct {
	Points []Point
}

func translatePoints(pts []Point, dx, dy float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// RotatePoint rotates (x0, y0) by rot degrees around (xc, yc), matching
// the authoring tool's object-rotation convention.
func RotatePoint(x0, y0, rot, xc, yc float64) Point {
	x0 -= xc
	y0 -= yc
	rad := rot * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Point{X: x0*cos - y0*sin + xc, Y: y0*cos + x0*sin + yc}
}

// ShapeKind tags the sum type a tile's derived shape carries.
type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapePolygon
	ShapePolyline
)

// TileShape is one shape attached to a tile, in tile-local pixel
// coordinates (0,0)-(TileSize,TileSize).
type TileShape struct {
	Kind    ShapeKind
	Circle  Circle
	Polygon []Point // used for both ShapePolygon and ShapePolyline
}

// FullTileBox is the default collision shape for an opaque tile with no
// authored tile objects: its full 16x16 bounds.
func FullTileBox() TileShape {
	return TileShape{
		Kind: ShapePolygon,
		Polygon: []Point{
			{X: 0, Y: 0},
			{X: TileSize, Y: 0},
			{X: TileSize, Y: TileSize},
			{X: 0, Y: TileSize},
		},
	}
}
