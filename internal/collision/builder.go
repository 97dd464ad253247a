package collision

import "github.com/aliensun/mapcompile/internal/poolwriter"

// Gid flip flags as authored by the map editor, distinct from the
// compiler's own emitted TID flip bits (mapfile's FlipX/FlipY/FlipD).
const (
	gidFlipX = 1 << 31
	gidFlipY = 1 << 30
	gidFlipD = 1 << 29
	gidMask  = gidFlipX | gidFlipY | gidFlipD
)

// Gid is an authored Tiled gid, including its top flip bits.
type Gid uint32

// Plain strips the flip bits, leaving the raw tileset-local gid.
func (g Gid) Plain() uint32 { return uint32(g) &^ gidMask }

// FlipX reports the horizontal-flip bit.
func (g Gid) FlipX() bool { return uint32(g)&gidFlipX != 0 }

// FlipY reports the vertical-flip bit.
func (g Gid) FlipY() bool { return uint32(g)&gidFlipY != 0 }

// FlipD reports the anti-diagonal-flip bit.
func (g Gid) FlipD() bool { return uint32(g)&gidFlipD != 0 }

// TileShapeTable maps a tileset-local plain gid to the shapes that gid
// carries (see DeriveTileShapes).
type TileShapeTable map[uint32][]TileShape

// applyFlip transforms tile-local points by gid's flip bits in the
// fixed order the compiler always uses: anti-diagonal swap, then
// horizontal mirror, then vertical mirror.
func applyFlip(pts []Point, g Gid) []Point {
	out := make([]Point, len(pts))
	copy(out, pts)
	if g.FlipD() {
		for i, p := range out {
			out[i] = Point{X: p.Y, Y: p.X}
		}
	}
	if g.FlipX() {
		for i, p := range out {
			out[i] = Point{X: TileSize - p.X, Y: p.Y}
		}
	}
	if g.FlipY() {
		for i, p := range out {
			out[i] = Point{X: p.X, Y: TileSize - p.Y}
		}
	}
	return out
}

// Builder accumulates the collision geometry for one map compile: tile
// shapes ingested chunk by chunk, object-layer shapes ingested
// directly, unioned on Build into the final tagged shape stream.
//
// Nothing in the shared stream carries a shape's sensor/interactive
// flags or name: polygons lose per-object identity through the union
// by construction, and circles/polylines are emitted with flags 0 and
// no fid even though they are never unioned, matching the shared
// stream's one-object's-worth-of-identity-per-trigger design — a
// trigger's own geometry keeps its flags and fid only in its private
// collision blob (see PackDirect).
type Builder struct {
	shapes TileShapeTable
	clip   *Clipper

	polylines []Polyline
	circles   []Circle

	union [][]Point
	built bool
}

// NewBuilder returns a Builder that looks up per-tile shapes in shapes.
func NewBuilder(shapes TileShapeTable) *Builder {
	return &Builder{shapes: shapes, clip: NewClipper()}
}

// AddChunk ingests one 16x16 grid of raw gids whose local (0,0) cell
// sits at pixel offset (originX, originY) — the layer offset plus the
// chunk's world-tile coordinate, already scaled to pixels.
func (b *Builder) AddChunk(grid [256]Gid, originX, originY float64) {
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			g := grid[y*16+x]
			tileShapes := b.shapes[g.Plain()]
			if len(tileShapes) == 0 {
				continue
			}
			offX := originX + float64(x)*TileSize
			offY := originY + float64(y)*TileSize
			for _, sh := range tileShapes {
				switch sh.Kind {
				case ShapeCircle:
					b.circles = append(b.circles, sh.Circle.Translate(offX, offY))
				case ShapePolygon:
					pts := translatePoints(applyFlip(sh.Polygon, g), offX, offY)
					b.clip.AddSubject(pts)
				case ShapePolyline:
					pts := translatePoints(applyFlip(sh.Polygon, g), offX, offY)
					b.polylines = append(b.polylines, Polyline{Points: pts})
				}
			}
		}
	}
}

// AddObject ingests a single object-layer shape in absolute map
// coordinates: ellipses go to the circle list, polylines to the
// polyline list, and polygons join the union.
func (b *Builder) AddObject(obj CollisionObject) error {
	shape, err := ToShape(obj)
	if err != nil {
		return err
	}
	switch shape.Kind {
	case ShapeCircle:
		b.circles = append(b.circles, shape.Circle)
	case ShapePolyline:
		b.polylines = append(b.polylines, Polyline{Points: shape.Polygon})
	case ShapePolygon:
		b.clip.AddSubject(shape.Polygon)
	}
	return nil
}

// Build runs the polygon union and writes the complete shape stream —
// union polygons, then polylines, then circles, then the terminator —
// into out.
func (b *Builder) Build(out *poolwriter.Chunk) {
	b.union = b.clip.Union()
	b.built = true

	for _, poly := range b.union {
		out.Write(packPoints(poly, false, 0, ""))
	}
	for _, pl := range b.polylines {
		out.Write(packPoints(pl.Points, true, 0, ""))
	}
	for _, c := range b.circles {
		out.Write(packCircle(c, 0, ""))
	}
	out.Write(packEnd())
}

// Polygons returns the unioned polygon loops. Valid only after Build.
func (b *Builder) Polygons() [][]Point {
	return b.union
}

// Polylines returns the accumulated polylines, untouched by the union.
func (b *Builder) Polylines() []Polyline {
	return b.polylines
}

// Circles returns the accumulated circles, untouched by the union.
func (b *Builder) Circles() []Circle {
	return b.circles
}
