package compiler

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aliensun/mapcompile/internal/collision"
	"github.com/aliensun/mapcompile/internal/mapfile"
	"github.com/aliensun/mapcompile/internal/script"
	"github.com/aliensun/mapcompile/internal/symtab"
	"github.com/aliensun/mapcompile/internal/tileset"
)

// chunkSize is the edge length of one on-disk chunk, in tiles.
const chunkSize = 16

// chunkKey addresses one chunk by its chunk-grid coordinate (tile
// coordinate divided by chunkSize), not by raw tile coordinate.
type chunkKey struct{ CX, CY int }

// layerGrid is one tile layer's contribution to a single chunk: the
// flattened, TID-translated grid, tagged with whether it was scanned
// before (background) or after (foreground) the actors object layer.
type layerGrid struct {
	grid       [256]uint16
	foreground bool
}

// propScan is one prop placement's contribution to a chunk, in absolute
// map pixel coordinates. Image and AnimTileset are the prop tile's own
// authored fields (a props tileset is an image collection, not a
// spritesheet); the compositor resolves them to numeric ids once an
// asset resolver is available.
type propScan struct {
	LocalTile   int
	X, Y        int32
	W, H        uint32
	Depth       uint8
	Image       string
	AnimTileset string
}

// chunkScan accumulates everything one chunk coordinate collects across
// every tile layer and prop placement.
type chunkScan struct {
	cx, cy int
	grids  []layerGrid
	props  []propScan
}

// FgSplit reports how many of this chunk's grids are background,
// matching PackChunkHeader's FgSplit field. Foreground grids are always
// appended after background ones, since layers are scanned in authored
// order and the foreground flag only turns on once the actors layer has
// been seen.
func (c *chunkScan) FgSplit() int8 {
	n := 0
	for _, g := range c.grids {
		if g.foreground {
			break
		}
		n++
	}
	return int8(n)
}

// NumGrids reports how many tile layers contributed a grid to this chunk.
func (c *chunkScan) NumGrids() int { return len(c.grids) }

// NumProps reports how many props were placed in this chunk.
func (c *chunkScan) NumProps() int { return len(c.props) }

// Coord returns this chunk's (cx, cy) chunk-grid coordinate.
func (c *chunkScan) Coord() (int, int) { return c.cx, c.cy }

// actorScan is one spawned actor or trigger, before type/script
// resolution. Non-trigger fields (LocalTile) and trigger fields
// (TriggerObj, ScriptRef, Inline) are mutually exclusive.
type actorScan struct {
	IsTrigger  bool
	ObjectID   uint32
	ObjectName string
	X, Y       int32
	FlipX      bool
	FlipY      bool
	FlipD      bool
	Player     bool
	Angle      float64

	// SymbolID is this actor's/trigger's own id in the actor symbol
	// namespace, 0 if it was never named.
	SymbolID int

	// LocalTile is the actors-sheet tile index; non-triggers only.
	LocalTile int
	// TypeName is the actor's `actor` property, read off the actor
	// tile in the actors tileset (not the object itself).
	TypeName string
	// PlatformType is the placed object's own `type` property, used only
	// by the AT_CLIFF_PLATFORM*/AT_UNDERWATER_PLATFORM sub-flag and
	// argument encoding.
	PlatformType string
	// Speed and WaypointObjID back the cliff/underwater platform
	// argument blob; WaypointObjID is a Tiled object id, resolved
	// against ScanResult.Waypoints by id (not by name) at serialize
	// time. HaveWaypoint is false when the actor carries no `waypoint`
	// property at all.
	Speed         float64
	HaveWaypoint  bool
	WaypointObjID uint32

	// TriggerObj is the full authored object, needed to pack the
	// trigger's own private collision geometry; triggers only.
	TriggerObj TiledObject
	// ScriptRef is the referenced script's name, either authored
	// directly or produced by collapsing a single-jump inline body.
	ScriptRef string
	// Inline is the synthesized function body for a trigger whose
	// script could not collapse to a plain reference. Nil otherwise.
	Inline *script.Func
}

// waypointScan is one waypoint object, in physical table order (table
// position is its index in ScanResult.Waypoints).
type waypointScan struct {
	ObjectID uint32
	Name     string
	X, Y     int32
	// HaveNext, NextObjID back the authored `next` property, a Tiled
	// object id (not a name) resolved against ScanResult.Waypoints by id
	// at serialize time.
	HaveNext  bool
	NextObjID uint32
}

// backgroundScan is one image layer plus the render depth its position
// among the tile layers assigns it.
type backgroundScan struct {
	Layer *ImageLayer
	Depth uint8
}

// ScanResult is everything the layer scan extracts from a map, ready for
// serialize.go to turn into on-disk records once scripts and asset ids
// have been resolved.
type ScanResult struct {
	Backgrounds []backgroundScan
	Waypoints   []waypointScan
	Actors      []actorScan
	Chunks      map[chunkKey]*chunkScan

	HaveCameraStart bool
	CameraStartX    int32
	CameraStartY    int32

	HaveWater  bool
	WaterLine  int32
	WaterColor uint32

	LowerXChunks, LowerYChunks int16
	MapWChunks, MapHChunks     uint16
}

// FindWaypoint returns the table index of the waypoint whose authored
// Tiled object id is objID.
func (r *ScanResult) FindWaypoint(objID uint32) (int, bool) {
	for i, w := range r.Waypoints {
		if w.ObjectID == objID {
			return i, true
		}
	}
	return 0, false
}

func (r *ScanResult) chunk(cx, cy int) *chunkScan {
	k := chunkKey{CX: cx, CY: cy}
	cs, ok := r.Chunks[k]
	if !ok {
		cs = &chunkScan{cx: cx, cy: cy}
		r.Chunks[k] = cs
	}
	return cs
}

// SortedChunks returns every scanned chunk ordered by (cy, cx), giving
// serialize.go a deterministic chunk table.
func (r *ScanResult) SortedChunks() []*chunkScan {
	keys := make([]chunkKey, 0, len(r.Chunks))
	for k := range r.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CX < keys[j].CX
	})
	out := make([]*chunkScan, len(keys))
	for i, k := range keys {
		out[i] = r.Chunks[k]
	}
	return out
}

// finalizeBounds sets LowerXChunks/LowerYChunks to the lowest occupied
// chunk coordinate on each axis, never above 0, and MapWChunks/
// MapHChunks to the map's own declared size in chunks — the authored
// map dimensions, not the bounding box of the chunks actually scanned.
func (r *ScanResult) finalizeBounds(m *TiledMap) {
	minX, minY := 0, 0
	for k := range r.Chunks {
		if k.CX < minX {
			minX = k.CX
		}
		if k.CY < minY {
			minY = k.CY
		}
	}
	r.LowerXChunks = int16(minX)
	r.LowerYChunks = int16(minY)
	r.MapWChunks = uint16(m.WidthTiles / chunkSize)
	r.MapHChunks = uint16(m.HeightTiles / chunkSize)
}

// ScanLayers walks m's layers in authored order, ingesting tile data into
// builder's collision geometry and assign's TID translation, and
// classifying every object-layer entry into a camera start, a waypoint,
// a trigger, a plain collision object, an actor or a prop. curLayer
// tracks render depth: 0 before any tile layer, 1 once the first tile
// layer has been scanned, 2 once the actors object layer is found
// (wherever it sits), 3 once a tile layer is scanned after that. Image
// layers are tagged with whatever curLayer holds at the moment they are
// scanned.
func ScanLayers(m *TiledMap, assign *tileset.Assignment, symbols *symtab.SymbolPool, builder *collision.Builder) (*ScanResult, error) {
	res := &ScanResult{Chunks: make(map[chunkKey]*chunkScan)}

	var actorTiles, propTiles map[int]TiledTile
	for _, ts := range m.Tilesets {
		switch ts.Name {
		case "actors":
			actorTiles = ts.Tiles
		case "props":
			propTiles = ts.Tiles
		}
	}

	curLayer := 0
	seenActors := false

	for _, layer := range m.Layers {
		switch layer.Kind {
		case LayerImage:
			if isWaterLayerName(layer.Image.Name) {
				res.HaveWater = true
				res.WaterLine = int32(layer.Image.OffsetY) + 8
				if layer.Image.TintColor != nil {
					res.WaterColor = *layer.Image.TintColor
				}
			} else {
				res.Backgrounds = append(res.Backgrounds, backgroundScan{Layer: layer.Image, Depth: uint8(curLayer)})
			}

		case LayerTile:
			if err := scanTileLayer(layer.Tile, assign, builder, res, curLayer > 1); err != nil {
				return nil, err
			}
			if curLayer == 0 {
				curLayer = 1
			} else if curLayer == 2 {
				curLayer = 3
			}

		case LayerObject:
			hasActors, err := scanObjectLayer(layer.Object, assign, symbols, builder, res, uint8(curLayer), actorTiles, propTiles)
			if err != nil {
				return nil, err
			}
			if hasActors {
				if seenActors {
					return nil, ErrActorsOnMultipleLayers
				}
				seenActors = true
				curLayer = 2
			}
		}
	}

	res.finalizeBounds(m)
	return res, nil
}

func scanTileLayer(tl *TileLayer, assign *tileset.Assignment, builder *collision.Builder, res *ScanResult, foreground bool) error {
	if tl.OffsetX != 0 || tl.OffsetY != 0 {
		return ErrLayerOffsetUnsupported
	}
	if tl.ParallaxX != 1 || tl.ParallaxY != 1 {
		return ErrParallaxUnsupported
	}

	for _, chunk := range tl.Chunks {
		if chunk.CX%chunkSize != 0 || chunk.CY%chunkSize != 0 {
			return ErrUnalignedChunk
		}
		cx, cy := chunk.CX/chunkSize, chunk.CY/chunkSize

		var tids [256]uint16
		var gidGrid [256]collision.Gid
		for i, raw := range chunk.Data {
			g := collision.Gid(raw)
			gidGrid[i] = g
			plain := g.Plain()
			if plain == 0 {
				continue
			}
			tid, ok := assign.GidToTID(plain)
			if !ok {
				return fmt.Errorf("%w: gid %d", ErrInvalidTileID, plain)
			}
			if g.FlipX() {
				tid |= mapfile.FlipX
			}
			if g.FlipY() {
				tid |= mapfile.FlipY
			}
			if g.FlipD() {
				tid |= mapfile.FlipD
			}
			tids[i] = tid
		}

		if tl.Collide {
			originX := float64(chunk.CX) * collision.TileSize
			originY := float64(chunk.CY) * collision.TileSize
			builder.AddChunk(gidGrid, originX, originY)
		}

		cs := res.chunk(cx, cy)
		cs.grids = append(cs.grids, layerGrid{grid: tids, foreground: foreground})
	}
	return nil
}

// scanObjectLayer classifies every object on ol and reports whether any
// of them was an actor — the caller uses this to detect the map's single
// actors layer regardless of where it falls among the tile layers.
func scanObjectLayer(ol *ObjectLayer, assign *tileset.Assignment, symbols *symtab.SymbolPool, builder *collision.Builder, res *ScanResult, depth uint8, actorTiles, propTiles map[int]TiledTile) (bool, error) {
	hasActors := false
	for _, obj := range ol.Objects {
		switch obj.Kind {
		case ObjPoint:
			if err := scanPoint(offsetObj(obj, ol.OffsetX, ol.OffsetY), symbols, res); err != nil {
				return false, err
			}

		case ObjTile:
			plain := collision.Gid(obj.Gid).Plain()
			if local, ok := assign.IsActorGid(plain); ok {
				hasActors = true
				if err := scanActorTile(offsetObj(obj, ol.OffsetX, ol.OffsetY), local, res, actorTiles, symbols); err != nil {
					return false, err
				}
				continue
			}
			if local, ok := assign.IsPropGid(plain); ok {
				// Props are never offset: the source compiler never
				// re-applies the props layer's own offset to a prop
				// tile's authored coordinates.
				scanPropTile(obj, local, res, depth, propTiles)
				continue
			}
			return false, fmt.Errorf("%w: object %d gid %d is neither an actor nor a prop", ErrInvalidTileID, obj.ID, plain)

		default: // rectangle, ellipse, polygon, polyline
			if err := scanShapeObject(offsetObj(obj, ol.OffsetX, ol.OffsetY), builder, res, symbols); err != nil {
				return false, err
			}
		}
	}
	return hasActors, nil
}

// offsetObj returns obj with its layer's offset folded into X, Y, the
// way the source compiler applies a layer offset once at scan time for
// every object kind except prop tiles.
func offsetObj(obj TiledObject, dx, dy float64) TiledObject {
	obj.X += dx
	obj.Y += dy
	return obj
}

func scanPoint(obj TiledObject, symbols *symtab.SymbolPool, res *ScanResult) error {
	if obj.Name == "camera-start" {
		res.HaveCameraStart = true
		res.CameraStartX = int32(obj.X)
		res.CameraStartY = int32(obj.Y)
		return nil
	}

	idx := len(res.Waypoints)
	if obj.Name != "" {
		if _, err := symbols.InsertWithID(obj.Name, symtab.KindWaypoint, idx); err != nil {
			return err
		}
	}
	w := waypointScan{ObjectID: obj.ID, Name: obj.Name, X: int32(obj.X), Y: int32(obj.Y)}
	if next, ok := numberProp(obj.Properties["next"]); ok {
		nextID := uint32(next)
		if nextID == obj.ID {
			return fmt.Errorf("%w: waypoint %d", ErrWaypointSelfReference, obj.ID)
		}
		w.HaveNext = true
		w.NextObjID = nextID
	}
	res.Waypoints = append(res.Waypoints, w)
	return nil
}

// scanActorTile records one actor spawn. The actor's type comes from
// the `actor` property authored on its tile in the actors tileset, not
// from the placed object itself; everything else (speed, waypoint,
// platform sub-type, player flag) comes from the object's own
// properties, which the loader is expected to have already merged with
// the tile's.
func scanActorTile(obj TiledObject, localTile int, res *ScanResult, actorTiles map[int]TiledTile, symbols *symtab.SymbolPool) error {
	typename, _ := actorTiles[localTile].Properties["actor"].(string)
	if typename == "" {
		return fmt.Errorf("%w: actor tile %d has no `actor` property", ErrInvalidTileID, localTile)
	}
	platformType, _ := obj.Properties["type"].(string)
	player, _ := obj.Properties["player"].(bool)

	var symbolID int
	if obj.Name != "" {
		id, err := symbols.Insert(obj.Name, symtab.KindActor)
		if err != nil {
			return err
		}
		symbolID = id
	}

	a := actorScan{
		ObjectID:     obj.ID,
		ObjectName:   obj.Name,
		SymbolID:     symbolID,
		X:            int32(obj.X),
		Y:            int32(obj.Y),
		FlipX:        collision.Gid(obj.Gid).FlipX(),
		FlipY:        collision.Gid(obj.Gid).FlipY(),
		FlipD:        collision.Gid(obj.Gid).FlipD(),
		Player:       player,
		Angle:        obj.Rotation,
		LocalTile:    localTile,
		TypeName:     typename,
		PlatformType: platformType,
		Speed:        1,
	}
	if speed, ok := numberProp(obj.Properties["speed"]); ok {
		a.Speed = speed
	}
	if wp, ok := numberProp(obj.Properties["waypoint"]); ok {
		a.HaveWaypoint = true
		a.WaypointObjID = uint32(wp)
	}
	res.Actors = append(res.Actors, a)
	return nil
}

// numberProp reads a property that may have been authored as either an
// int or a float, the two numeric kinds a Tiled property can hold.
func numberProp(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// scanPropTile spans the prop's footprint across every chunk it
// overlaps. A Tiled tile object anchors at its bottom-left corner, not
// its top-left, so Y must be shifted up by the footprint's height
// before computing chunk coverage. The prop's own (X, Y) is recorded in
// absolute map pixel coordinates, not chunk-local — every chunk the
// footprint spans carries the same absolute placement.
func scanPropTile(obj TiledObject, localTile int, res *ScanResult, depth uint8, propTiles map[int]TiledTile) {
	w, h := obj.Width, obj.Height
	if w == 0 {
		w = collision.TileSize
	}
	if h == 0 {
		h = collision.TileSize
	}
	x0, y0 := obj.X, obj.Y-h
	x1, y1 := x0+w, y0+h

	cx0, cy0 := chunkCoord(x0), chunkCoord(y0)
	cx1, cy1 := chunkCoord(x1-1), chunkCoord(y1-1)

	tile := propTiles[localTile]
	animTileset, _ := tile.Properties["anim"].(string)

	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			cs := res.chunk(cx, cy)
			cs.props = append(cs.props, propScan{
				LocalTile:   localTile,
				X:           int32(x0),
				Y:           int32(y0),
				W:           uint32(w),
				H:           uint32(h),
				Depth:       depth,
				Image:       tile.Image,
				AnimTileset: animTileset,
			})
		}
	}
}

// isWaterLayerName reports whether name identifies the map's water
// plane, matched case-insensitively against the literal `water`.
func isWaterLayerName(name string) bool {
	return strings.EqualFold(name, "water")
}

func chunkCoord(pixel float64) int {
	tile := floorDiv(int(math.Floor(pixel)), int(collision.TileSize))
	return floorDiv(tile, chunkSize)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func scanShapeObject(obj TiledObject, builder *collision.Builder, res *ScanResult, symbols *symtab.SymbolPool) error {
	triggerSrc, isTrigger := obj.Properties["trigger"].(string)
	if !isTrigger {
		return builder.AddObject(toCollisionObject(obj))
	}

	scriptRef, inline, err := resolveTrigger(obj.ID, triggerSrc)
	if err != nil {
		return err
	}
	var symbolID int
	if obj.Name != "" {
		id, err := symbols.Insert(obj.Name, symtab.KindActor)
		if err != nil {
			return err
		}
		symbolID = id
	}
	res.Actors = append(res.Actors, actorScan{
		IsTrigger:  true,
		ObjectID:   obj.ID,
		ObjectName: obj.Name,
		SymbolID:   symbolID,
		TriggerObj: obj,
		ScriptRef:  scriptRef,
		Inline:     inline,
	})
	return nil
}

// resolveTrigger interprets an object's `trigger` property: either a bare
// script name reference, or inline script source. An inline body that is
// exactly a single `jump(name)` command with no inner attributes
// collapses to a plain reference to name, the same way a directly
// authored reference would, instead of compiling its own script entry.
func resolveTrigger(objID uint32, src string) (scriptRef string, inline *script.Func, err error) {
	if isBareIdent(src) {
		return src, nil, nil
	}

	fn, err := script.ParseInline(src, fmt.Sprintf("trigger %d", objID))
	if err != nil {
		return "", nil, err
	}
	if len(fn.Attributes) == 0 && len(fn.Commands) == 1 {
		cmd := fn.Commands[0]
		if cmd.Name == "jump" && len(cmd.Args) == 1 && cmd.Args[0].Name == "" && cmd.Args[0].Value.Kind == script.ValIdent {
			return cmd.Args[0].Value.Str, nil, nil
		}
	}
	return "", fn, nil
}

func isBareIdent(src string) bool {
	if src == "" {
		return false
	}
	for i, r := range src {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func toCollisionObject(obj TiledObject) collision.CollisionObject {
	kind := collision.ObjRectangle
	switch obj.Kind {
	case ObjEllipse:
		kind = collision.ObjEllipse
	case ObjPolygon:
		kind = collision.ObjPolygon
	case ObjPolyline:
		kind = collision.ObjPolyline
	}
	pts := make([]collision.Point, len(obj.Points))
	for i, p := range obj.Points {
		pts[i] = collision.Point{X: p.X, Y: p.Y}
	}
	sensor, _ := obj.Properties["sensor"].(bool)
	interactive, _ := obj.Properties["interactive"].(bool)
	return collision.CollisionObject{
		Kind:        kind,
		ID:          int(obj.ID),
		Name:        obj.Name,
		X:           obj.X,
		Y:           obj.Y,
		Width:       obj.Width,
		Height:      obj.Height,
		Points:      pts,
		Rotation:    obj.Rotation,
		Sensor:      sensor,
		Interactive: interactive,
	}
}
