// Package mapfile defines the on-disk binary record layouts the map
// compositor emits: the header, tileset, background, chunk, prop,
// actor and waypoint records, plus the collision shape stream.
package mapfile

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Shape tags for the collision shape stream.
const (
	ShapeEnd      = 0
	ShapeCircle   = 1
	ShapeAABB     = 2
	ShapeTriangle = 3
	ShapeQuad     = 4
	ShapePoly     = 5
	ShapeEdge     = 6
	ShapeChain    = 7
)

// Flag bits carried in a shape record's flags field. Interactive
// implies sensor.
const (
	ShapeFlagSensor      = 1 << 0
	ShapeFlagInteractive = 1<<0 | 1<<1
)

// PointScale is the 1/16 pixel-to-world-unit convention the collision
// stream's float coordinates are emitted in.
const PointScale = 1.0 / 16.0

// Point2 is a minimal coordinate pair, kept free of any dependency on
// the collision package's richer shape types.
type Point2 struct{ X, Y float64 }

func fid4(name string) [4]byte {
	var b [4]byte
	copy(b[:], name)
	return b
}

func writeHeader(buf *bytes.Buffer, tag uint16, flags uint16, fid string) {
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], tag)
	binary.BigEndian.PutUint16(b[2:4], flags)
	buf.Write(b[:])
	f := fid4(fid)
	buf.Write(f[:])
}

func writeF32(buf *bytes.Buffer, v float64) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(v)))
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// scalePoint rounds a raw pixel-space coordinate to the nearest
// integer, then applies PointScale; this mirrors the source compiler's
// emission order (round in pixel space before converting to world
// units) rather than scaling first.
func scalePoint(v float64) float64 {
	return math.Round(v) * PointScale
}

// PackCircle encodes a CIRCLE record: f32 r, cx, cy where (cx, cy) is
// the circle's center.
func PackCircle(r, cx, cy float64, flags uint16, fid string) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, ShapeCircle, flags, fid)
	writeF32(&buf, scalePoint(r))
	writeF32(&buf, scalePoint(cx))
	writeF32(&buf, scalePoint(cy))
	return buf.Bytes()
}

// PackAABB encodes an AABB record from a top-left (x, y) and a (w, h)
// extent: f32 x0, y0, x1, y1.
func PackAABB(x, y, w, h float64, flags uint16, fid string) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, ShapeAABB, flags, fid)
	sx, sy := scalePoint(x), scalePoint(y)
	sw, sh := scalePoint(w), scalePoint(h)
	writeF32(&buf, sx)
	writeF32(&buf, sy)
	writeF32(&buf, sx+sw)
	writeF32(&buf, sy+sh)
	return buf.Bytes()
}

// PackPoints encodes a vertex list as whichever tagged record its
// point count (and whether it is an open polyline rather than a closed
// polygon) implies:
//
//   - fewer than 2 points: no record (nil)
//   - exactly 2 points: EDGE, regardless of polyline
//   - 3+ points, polyline: CHAIN
//   - 3 points, polygon: TRIANGLE
//   - 4 points, polygon: QUAD
//   - 5+ points, polygon: POLY
func PackPoints(points []Point2, polyline bool, flags uint16, fid string) []byte {
	n := len(points)
	if n < 2 {
		return nil
	}
	scaled := make([]Point2, n)
	for i, p := range points {
		scaled[i] = Point2{X: scalePoint(p.X), Y: scalePoint(p.Y)}
	}

	var buf bytes.Buffer
	switch {
	case n == 2:
		writeHeader(&buf, ShapeEdge, flags, fid)
		writeF32(&buf, scaled[0].X)
		writeF32(&buf, scaled[0].Y)
		writeF32(&buf, scaled[1].X)
		writeF32(&buf, scaled[1].Y)
	case polyline:
		writeHeader(&buf, ShapeChain, flags, fid)
		writeU32(&buf, uint32(n))
		writeF32(&buf, scaled[0].X)
		writeF32(&buf, scaled[0].Y)
		writeF32(&buf, scaled[n-1].X)
		writeF32(&buf, scaled[n-1].Y)
		for _, p := range scaled {
			writeF32(&buf, p.X)
			writeF32(&buf, p.Y)
		}
	case n == 3:
		writeHeader(&buf, ShapeTriangle, flags, fid)
		for _, p := range scaled {
			writeF32(&buf, p.X)
			writeF32(&buf, p.Y)
		}
	case n == 4:
		writeHeader(&buf, ShapeQuad, flags, fid)
		for _, p := range scaled {
			writeF32(&buf, p.X)
			writeF32(&buf, p.Y)
		}
	default:
		writeHeader(&buf, ShapePoly, flags, fid)
		writeU32(&buf, uint32(n))
		for _, p := range scaled {
			writeF32(&buf, p.X)
			writeF32(&buf, p.Y)
		}
	}
	return buf.Bytes()
}

// PackEnd encodes the terminating COLL_END record: just the u16 tag and
// a u16 zero, unlike every other shape record this carries no fid.
func PackEnd() []byte {
	var buf bytes.Buffer
	writeU16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		buf.Write(b[:])
	}
	writeU16(ShapeEnd)
	writeU16(0)
	return buf.Bytes()
}
