package collision

import (
	"math"
	"sort"
)

// Clipper unions closed subject polygons via edge cancellation: two
// polygons that share an exact boundary edge (authored in opposite
// winding order once both are normalized) have that edge removed, and
// the surviving edges are traced into closed loops. This is exact for
// the geometry the compiler actually produces — 16x16 tile boxes (and
// their 90-degree FLIPX/FLIPY/FLIPD rotations) tiled edge-to-edge on a
// grid — because adjacent tiles always share an identical boundary
// segment. Polygons that overlap in their interior without sharing an
// edge (arbitrary authored polygons crossing tile boundaries) are not
// merged; their loops are emitted separately rather than combined into
// one outline.
//
// No third-party polygon-clipping library appears anywhere in this
// project's dependency pool, so this is implemented directly against
// the standard library.
type Clipper struct {
	polys [][]Point
}

// NewClipper returns an empty clipper.
func NewClipper() *Clipper {
	return &Clipper{}
}

// AddSubject registers a polygon (an open ring — do not repeat the
// first vertex) to be included in the next Union.
func (c *Clipper) AddSubject(points []Point) {
	if len(points) < 3 {
		return
	}
	c.polys = append(c.polys, points)
}

// quantum is the grid the clipper snaps vertices to before comparing
// them for edge cancellation, absorbing floating-point noise introduced
// by translation and rotation arithmetic without meaningfully moving
// any vertex (tile geometry is always on whole-pixel boundaries).
const quantum = 1.0 / 256.0

func quantize(v float64) float64 {
	return math.Round(v/quantum) * quantum
}

type edgeKey struct {
	ax, ay, bx, by float64
}

func (k edgeKey) reverse() edgeKey {
	return edgeKey{k.bx, k.by, k.ax, k.ay}
}

func (k edgeKey) points() (Point, Point) {
	return Point{X: k.ax, Y: k.ay}, Point{X: k.bx, Y: k.by}
}

func signedArea(pts []Point) float64 {
	area := 0.0
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return area
}

// normalizeCCW returns pts in counter-clockwise order (by signed area
// sign), so every polygon's boundary edges are directed consistently
// and shared edges between adjacent polygons point opposite ways.
func normalizeCCW(pts []Point) []Point {
	if signedArea(pts) >= 0 {
		return pts
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// Union executes the even-odd boundary merge over every subject added
// so far and returns the resulting closed loops, collinear vertices
// removed.
func (c *Clipper) Union() [][]Point {
	fwdCount := map[edgeKey]int{}

	for _, raw := range c.polys {
		pts := normalizeCCW(raw)
		n := len(pts)
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			key := edgeKey{quantize(a.X), quantize(a.Y), quantize(b.X), quantize(b.Y)}
			if key.ax == key.bx && key.ay == key.by {
				continue // degenerate zero-length edge
			}
			fwdCount[key]++
		}
	}

	survive := map[edgeKey]int{}
	visited := map[edgeKey]bool{}
	for key, cnt := range fwdCount {
		if visited[key] {
			continue
		}
		rev := key.reverse()
		revCnt := fwdCount[rev]
		visited[key] = true
		visited[rev] = true
		net := cnt - revCnt
		switch {
		case net > 0:
			survive[key] = net
		case net < 0:
			survive[rev] = -net
		}
	}

	var loops [][]Point
	for len(survive) > 0 {
		start := lowestSurvivingEdge(survive)
		loop := traceLoop(survive, start)
		if len(loop) >= 3 {
			loops = append(loops, removeCollinear(loop))
		}
	}
	sortLoops(loops)
	return loops
}

// lowestSurvivingEdge picks a deterministic starting edge so Union's
// output loop order does not depend on Go's randomized map iteration.
func lowestSurvivingEdge(survive map[edgeKey]int) edgeKey {
	var best edgeKey
	first := true
	for k := range survive {
		if first || lessEdge(k, best) {
			best = k
			first = false
		}
	}
	return best
}

func lessEdge(a, b edgeKey) bool {
	if a.ax != b.ax {
		return a.ax < b.ax
	}
	if a.ay != b.ay {
		return a.ay < b.ay
	}
	if a.bx != b.bx {
		return a.bx < b.bx
	}
	return a.by < b.by
}

func sortLoops(loops [][]Point) {
	sort.Slice(loops, func(i, j int) bool {
		a, b := loops[i][0], loops[j][0]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

// traceLoop follows surviving edges starting at start until it returns
// to its own start point, consuming one occurrence of each edge used.
func traceLoop(survive map[edgeKey]int, start edgeKey) []Point {
	byStart := make(map[Point][]edgeKey)
	for k := range survive {
		a, _ := k.points()
		byStart[a] = append(byStart[a], k)
	}

	var loop []Point
	cur := start
	first, _ := cur.points()
	loop = append(loop, first)

	for {
		consume(survive, cur)
		_, b := cur.points()
		if b == first {
			break
		}
		loop = append(loop, b)
		cands := byStart[b]
		next, ok := pickSurviving(survive, cands)
		if !ok {
			// Dangling chain (shouldn't happen for closed input
			// polygons); stop here rather than loop forever.
			break
		}
		cur = next
	}
	return loop
}

func consume(survive map[edgeKey]int, k edgeKey) {
	if survive[k] <= 1 {
		delete(survive, k)
	} else {
		survive[k]--
	}
}

func pickSurviving(survive map[edgeKey]int, cands []edgeKey) (edgeKey, bool) {
	for _, k := range cands {
		if survive[k] > 0 {
			return k, true
		}
	}
	return edgeKey{}, false
}

// removeCollinear drops vertices whose neighbors make them
// geometrically redundant, matching a clipper configured with
// preserveCollinear=false.
func removeCollinear(pts []Point) []Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		cur := pts[i]
		next := pts[(i+1)%n]
		cross := (cur.X-prev.X)*(next.Y-prev.Y) - (cur.Y-prev.Y)*(next.X-prev.X)
		if math.Abs(cross) > 1e-9 {
			out = append(out, cur)
		}
	}
	if len(out) < 3 {
		return pts
	}
	return out
}
