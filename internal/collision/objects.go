package collision

import "fmt"

// ObjectKind tags which Tiled object-layer geometry a CollisionObject
// represents.
type ObjectKind int

const (
	ObjRectangle ObjectKind = iota
	ObjEllipse
	ObjPolygon
	ObjPolyline
)

// CollisionObject is the subset of a Tiled object-layer object the
// collision builder needs. It is deliberately narrower than the full
// Tiled data model (out of scope per the map compositor's collaborator
// contracts): callers translate from the richer loader-owned type into
// this one.
type CollisionObject struct {
	Kind ObjectKind
	ID   int
	Name string

	// X, Y is the object's authored coordinate: top-left for rectangles
	// and ellipses, the polygon/polyline origin otherwise.
	X, Y float64

	// Width, Height apply to ObjRectangle and ObjEllipse only.
	Width, Height float64

	// Points are polygon/polyline vertices relative to (X, Y).
	Points []Point

	// Rotation is in degrees, applied about (X, Y).
	Rotation float64

	Sensor      bool
	Interactive bool
}

// Flags packs an object's sensor/interactive properties into a shape
// record's flags field.
func (o CollisionObject) Flags() uint16 {
	var f uint16
	if o.Sensor {
		f |= 1 << 0
	}
	if o.Interactive {
		f |= 1<<0 | 1<<1
	}
	return f
}

// ObjectShape is the result of converting a CollisionObject to
// geometry: a circle, or a polygon/polyline point list in absolute map
// coordinates.
type ObjectShape struct {
	Kind    ShapeKind
	Circle  Circle
	Polygon []Point
}

// ToShape converts a CollisionObject the way the source compiler's
// tiled_object_to_shape helper does: ellipses must be circles,
// rectangles become 4-point polygons, polygons and polylines keep their
// authored points, all with rotation applied before translation.
func ToShape(o CollisionObject) (ObjectShape, error) {
	switch o.Kind {
	case ObjEllipse:
		if o.Width != o.Height {
			return ObjectShape{}, fmt.Errorf("ellipse collision object %d is not a circle", o.ID)
		}
		rad := o.Width / 2
		return ObjectShape{Kind: ShapeCircle, Circle: Circle{R: rad, X: o.X + rad, Y: o.Y + rad}}, nil

	case ObjRectangle:
		x0, y0 := o.X, o.Y
		x1, y1 := x0+o.Width, y0+o.Height
		pts := []Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}}
		if o.Rotation != 0 {
			pts = rotateAll(pts, o.Rotation, x0, y0)
		}
		return ObjectShape{Kind: ShapePolygon, Polygon: pts}, nil

	case ObjPolygon, ObjPolyline:
		pts := translatePoints(o.Points, o.X, o.Y)
		if o.Rotation != 0 {
			pts = rotateAll(pts, o.Rotation, o.X, o.Y)
		}
		kind := ShapePolygon
		if o.Kind == ObjPolyline {
			kind = ShapePolyline
		}
		return ObjectShape{Kind: kind, Polygon: pts}, nil

	default:
		return ObjectShape{}, fmt.Errorf("unsupported collision object kind %d", o.Kind)
	}
}

func rotateAll(pts []Point, rot, xc, yc float64) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = RotatePoint(p.X, p.Y, rot, xc, yc)
	}
	return out
}

// PackDirect encodes o's own shape directly (not unioned with anything
// else) into a mapfile shape record, used for a trigger's private
// collision geometry. Unrotated rectangles stay AABBs; everything else
// degrades to the same polygon/polyline/circle records the merged
// stream uses.
func PackDirect(o CollisionObject, offsetX, offsetY float64) ([]byte, error) {
	flags := o.Flags()
	if o.Kind == ObjRectangle && o.Rotation == 0 {
		return packAABB(o.X+offsetX, o.Y+offsetY, o.Width, o.Height, flags, o.Name), nil
	}
	shape, err := ToShape(o)
	if err != nil {
		return nil, err
	}
	switch shape.Kind {
	case ShapeCircle:
		c := shape.Circle.Translate(offsetX, offsetY)
		return packCircle(c, flags, o.Name), nil
	default:
		pts := translatePoints(shape.Polygon, offsetX, offsetY)
		return packPoints(pts, shape.Kind == ShapePolyline, flags, o.Name), nil
	}
}
