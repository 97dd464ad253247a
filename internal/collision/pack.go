package collision

import "github.com/aliensun/mapcompile/internal/mapfile"

func toPoint2s(pts []Point) []mapfile.Point2 {
	out := make([]mapfile.Point2, len(pts))
	for i, p := range pts {
		out[i] = mapfile.Point2{X: p.X, Y: p.Y}
	}
	return out
}

func packCircle(c Circle, flags uint16, fid string) []byte {
	return mapfile.PackCircle(c.R, c.X, c.Y, flags, fid)
}

func packAABB(x, y, w, h float64, flags uint16, fid string) []byte {
	return mapfile.PackAABB(x, y, w, h, flags, fid)
}

func packPoints(pts []Point, polyline bool, flags uint16, fid string) []byte {
	return mapfile.PackPoints(toPoint2s(pts), polyline, flags, fid)
}

func packEnd() []byte {
	return mapfile.PackEnd()
}
