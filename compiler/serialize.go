package compiler

import (
	"strings"

	"github.com/aliensun/mapcompile/internal/collision"
	"github.com/aliensun/mapcompile/internal/mapfile"
	"github.com/aliensun/mapcompile/internal/poolwriter"
	"github.com/aliensun/mapcompile/internal/script"
	"github.com/aliensun/mapcompile/internal/symtab"
	"github.com/aliensun/mapcompile/internal/tileset"
)

// defaultGravityX, defaultGravityY are the map-level gravity fallbacks
// used whenever the corresponding property is absent or zero.
const (
	defaultGravityX = 0
	defaultGravityY = 1000
)

// noWaterLine is the header's water_line sentinel for a map with no
// water plane.
const noWaterLine = int32(-0x80000000)

// defaultCameraStartX, defaultCameraStartY are the last-resort camera
// start used when a map has neither a camera-start point nor a player
// actor.
const (
	defaultCameraStartX = 214
	defaultCameraStartY = 120
)

// SerializeInput bundles everything Serialize needs once scripts have
// been linked and assembled and collision geometry has been built.
type SerializeInput struct {
	Map     *TiledMap
	Assign  *tileset.Assignment
	Scan    *ScanResult
	Builder *collision.Builder

	Scripts     *CompiledScripts
	ScriptBlobs [][]byte
	ActorBlobs  [][]byte

	Symbols *symtab.SymbolPool
	Strings *symtab.StringPool

	Assets AssetResolver
	Enums  EnumResolver
}

// Serialize assembles the complete on-disk map file from a fully
// scanned, linked and assembled compile: header, tileset table,
// background table, chunk table, actor and trigger spawns, waypoint
// table, collision stream, script bytecodes and the string pool,
// through the pooled writer's priority-driven layout.
func Serialize(in SerializeInput) ([]byte, error) {
	root := poolwriter.New([]byte("TMAP"))

	actorCount := len(in.Scan.Actors)
	root.Write(mapfile.PackHeaderCounts(mapfile.HeaderCounts{
		NumTilesets:     uint16(len(in.Assign.Ordinary)),
		NumBgs:          uint16(len(in.Scan.Backgrounds)),
		NumWaypoints:    uint16(len(in.Scan.Waypoints)),
		NumScripts:      uint16(len(in.Scripts.Funcs)),
		LowerXChunks:    in.Scan.LowerXChunks,
		LowerYChunks:    in.Scan.LowerYChunks,
		MapWChunks:      in.Scan.MapWChunks,
		MapHChunks:      in.Scan.MapHChunks,
		NumChunks:       uint16(len(in.Scan.Chunks)),
		NumStrings:      uint16(in.Strings.Len()),
		ActorCount:      uint16(actorCount),
		TotalActorCount: uint16(actorCount + len(in.ActorBlobs)),
	}))

	actorChunk := root.WriteRef(-3)
	waypointChunk := root.WriteRef(-4)
	collisionChunk := root.WriteRef(-4)
	scriptsChunk := root.WriteRef(-5)
	textsChunk := root.WriteRef(-6)

	musicID, err := resolveMusic(in.Map, in.Assets)
	if err != nil {
		return nil, err
	}
	cameraX, cameraY := resolveCameraStart(in.Scan)
	waterLine := noWaterLine
	if in.Scan.HaveWater {
		waterLine = in.Scan.WaterLine
	}

	root.Write(mapfile.PackHeaderTail(mapfile.HeaderTail{
		MusicID:            musicID,
		StartupScriptIndex: in.Scripts.StartupIndex,
		ParallaxOriginX:    int32(in.Map.ParallaxOriginX),
		ParallaxOriginY:    int32(in.Map.ParallaxOriginY),
		CameraStartX:       cameraX,
		CameraStartY:       cameraY,
		WaterLine:          waterLine,
		WaterColor:         in.Scan.WaterColor,
		GravityX:           gravityProp(in.Map.Properties, "gravity_x", defaultGravityX),
		GravityY:           gravityY(in.Map.Properties),
	}))

	// TILESETS
	for _, ord := range in.Assign.Ordinary {
		imageID, err := in.Assets.AssetIndex("gfx", ord.Source.Image)
		if err != nil {
			return nil, err
		}
		root.Write(mapfile.PackTilesetRecord(mapfile.TilesetRecord{
			FirstTID: ord.FirstTID,
			EndTID:   ord.EndTID,
			XMask:    ord.XMask,
			YShift:   ord.YShift,
			ImageID:  imageID,
		}))
	}

	// BGS
	for _, bg := range in.Scan.Backgrounds {
		rec, err := backgroundRecord(bg, in.Assets)
		if err != nil {
			return nil, err
		}
		root.Write(mapfile.PackBackgroundRecord(rec))
	}

	// CHUNKS
	for _, cs := range in.Scan.SortedChunks() {
		chunkChunk := root.WriteRef(0)
		cx, cy := cs.Coord()
		fg := cs.FgSplit()
		chunkChunk.Write(mapfile.PackChunkHeader(mapfile.ChunkHeader{
			CX: int16(cx), CY: int16(cy),
			PX: int32(cx) << 8, PY: int32(cy) << 8,
			NumLayers: int8(cs.NumGrids()), FgSplit: fg, NumProps: uint16(cs.NumProps()),
		}))
		propsChunk := chunkChunk.WriteRef(-1)
		for i := len(cs.props) - 1; i >= 0; i-- {
			rec, err := propRecord(cs.props[i], in.Assets)
			if err != nil {
				return nil, err
			}
			propsChunk.WriteRef(-2).Write(mapfile.PackPropRecord(rec))
		}
		chunkChunk.Write([]byte{0, 0, 0, 0})
		for _, g := range cs.grids {
			chunkChunk.Write(mapfile.PackTileGrid(g.grid))
		}
	}

	// ACTOR SPAWNS
	for _, a := range in.Scan.Actors {
		if a.IsTrigger {
			if err := writeTrigger(actorChunk, a, in.Scripts, in.Enums); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeActor(actorChunk, a, in.Scan, in.Enums); err != nil {
			return nil, err
		}
	}
	for _, blob := range in.ActorBlobs {
		actorChunk.Write(blob)
	}

	// WAYPOINTS
	for _, w := range in.Scan.Waypoints {
		next := uint32(mapfile.NoWaypoint)
		if w.HaveNext {
			if idx, ok := in.Scan.FindWaypoint(w.NextObjID); ok {
				next = uint32(idx)
			}
		}
		waypointChunk.Write(mapfile.PackWaypointRecord(w.X, w.Y, next))
	}

	// COLLISION
	in.Builder.Build(collisionChunk)

	// SCRIPTS
	for _, blob := range in.ScriptBlobs {
		scriptsChunk.WriteRef(-5).Write(blob)
	}

	// STRINGS
	for _, s := range in.Strings.Strings() {
		textsChunk.WriteRef(-5).Write(append([]byte(s), 0))
	}

	return root.Finish(), nil
}

func resolveMusic(m *TiledMap, assets AssetResolver) (uint32, error) {
	music, _ := m.Properties["music"].(string)
	if music == "" {
		return 0, nil
	}
	return assets.AssetIndex("mus", music)
}

func resolveCameraStart(scan *ScanResult) (int32, int32) {
	if scan.HaveCameraStart {
		return scan.CameraStartX, scan.CameraStartY
	}
	for _, a := range scan.Actors {
		if !a.IsTrigger && a.Player {
			return a.X, a.Y
		}
	}
	return defaultCameraStartX, defaultCameraStartY
}

// gravityProp reads a numeric property, falling back to def when the
// property is absent or exactly zero — the source compiler's `or`
// fallback treats a zero gravity component the same as a missing one.
func gravityProp(props map[string]any, key string, def float64) float64 {
	if v, ok := numberProp(props[key]); ok && v != 0 {
		return v
	}
	return def
}

// gravityY resolves gravity_y with its extra `gravity` alias fallback.
func gravityY(props map[string]any) float64 {
	if v, ok := numberProp(props["gravity_y"]); ok && v != 0 {
		return v
	}
	if v, ok := numberProp(props["gravity"]); ok && v != 0 {
		return v
	}
	return defaultGravityY
}

func colorProp(props map[string]any, key string) uint32 {
	v, ok := numberProp(props[key])
	if !ok {
		return 0
	}
	return uint32(v)
}

func backgroundRecord(bg backgroundScan, assets AssetResolver) (mapfile.BackgroundRecord, error) {
	layer := bg.Layer
	imageID, err := assets.AssetIndex("gfx", layer.Image)
	if err != nil {
		return mapfile.BackgroundRecord{}, err
	}
	var animID uint32
	if layer.AnimTileset != "" {
		animID, err = assets.AssetIndex("tileset", layer.AnimTileset)
		if err != nil {
			return mapfile.BackgroundRecord{}, err
		}
	}
	props := layer.Properties
	return mapfile.BackgroundRecord{
		OffsetX: layer.OffsetX, OffsetY: layer.OffsetY,
		AutoscrollX: numberPropOrZero(props, "autoscroll_x"),
		AutoscrollY: numberPropOrZero(props, "autoscroll_y"),
		ParallaxX:   layer.ParallaxX, ParallaxY: layer.ParallaxY,
		ClearTopRGBA: colorProp(props, "clear_top"),
		ClearBotRGBA: colorProp(props, "clear_bottom"),
		Depth:        bg.Depth,
		RepeatX:      layer.RepeatX, RepeatY: layer.RepeatY,
		ImageID: imageID, AnimTilesetID: animID,
	}, nil
}

func numberPropOrZero(props map[string]any, key string) float64 {
	v, _ := numberProp(props[key])
	return v
}

func propRecord(p propScan, assets AssetResolver) (mapfile.PropRecord, error) {
	imageID, err := assets.AssetIndex("gfx", p.Image)
	if err != nil {
		return mapfile.PropRecord{}, err
	}
	var animID uint32
	if p.AnimTileset != "" {
		animID, err = assets.AssetIndex("tileset", p.AnimTileset)
		if err != nil {
			return mapfile.PropRecord{}, err
		}
	}
	return mapfile.PropRecord{
		Layer: uint32(p.Depth),
		X:     p.X, Y: p.Y,
		Width: p.W, Height: p.H,
		ImageID: imageID, AnimTilesetID: animID,
	}, nil
}

// platformTypeFlag maps an authored platform `type` property to its
// sub-flag value, defaulting to 0 (linear) for anything unrecognized.
var platformTypeFlag = map[string]uint32{
	"linear": 0, "hsine": 1, "vsine": 2,
	"circle": 3, "circle-cw": 3, "cw": 3,
	"circle-ccw": 4, "ccw": 4,
	"swing-90": 5, "swing-45": 6, "swing": 6, "swing-22": 7,
}

// isPlatformActorType reports whether name is one of the actor types
// whose spawn argument carries a speed/waypoint pair instead of the
// ordinary zero placeholder.
func isPlatformActorType(name string) bool {
	return strings.HasPrefix(name, "AT_CLIFF_PLATFORM") || name == "AT_UNDERWATER_PLATFORM"
}

func actorSubFlags(a actorScan) uint32 {
	if !isPlatformActorType(a.TypeName) {
		return 0
	}
	return platformTypeFlag[a.PlatformType]
}

func writeActor(out *poolwriter.Chunk, a actorScan, scan *ScanResult, enums EnumResolver) error {
	typeID, err := enums.ActorTypeValue(a.TypeName)
	if err != nil {
		return err
	}
	flags := actorSubFlags(a)
	if a.FlipX {
		flags |= mapfile.ActorFlagFlipX
	}
	if a.FlipY {
		flags |= mapfile.ActorFlagFlipY
	}
	if a.FlipD {
		flags |= mapfile.ActorFlagFlipD
	}
	if a.Player {
		flags |= mapfile.ActorFlagCurrentPlayer
	}
	out.Write(mapfile.PackActorHeader(mapfile.ActorHeader{
		TypeID: typeID, X: a.X, Y: a.Y, Flags: flags,
		ObjectID: uint16(a.SymbolID), Angle16: script.Angle16(a.Angle),
	}))
	return writeActorArg(out, a, scan)
}

func writeActorArg(out *poolwriter.Chunk, a actorScan, scan *ScanResult) error {
	if !isPlatformActorType(a.TypeName) {
		out.Write([]byte{0, 0, 0, 0})
		return nil
	}
	speed := int64(a.Speed * 16)
	if speed < 0 {
		speed = 0
	}
	if speed > 0xffff {
		speed = 0xffff
	}
	waypoint := uint16(mapfile.NoWaypointArg)
	if a.HaveWaypoint {
		idx, ok := scan.FindWaypoint(a.WaypointObjID)
		if !ok {
			return ErrUnknownWaypoint
		}
		waypoint = uint16(idx)
	}
	out.Write(mapfile.PackActorArg(uint16(speed), waypoint))
	return nil
}

func writeTrigger(out *poolwriter.Chunk, a actorScan, cs *CompiledScripts, enums EnumResolver) error {
	typeID, err := enums.ActorTypeValue("AT_TRIGGER")
	if err != nil {
		return err
	}
	x, y := int32(a.TriggerObj.X), int32(a.TriggerObj.Y)
	flags := triggerFlags(a.TriggerObj.Properties)
	out.Write(mapfile.PackActorHeader(mapfile.ActorHeader{
		TypeID: typeID, X: x, Y: y, Flags: flags,
		ObjectID: uint16(a.SymbolID), Angle16: 0,
	}))

	scriptIdx, ok := cs.TriggerScript[a.ObjectID]
	if !ok {
		return ErrUnknownScript
	}
	argChunk := out.WriteRef(-3)
	argChunk.Write(mapfile.PackActorArg32(uint32(scriptIdx)))

	collisionChunk := argChunk.WriteRef(-10)
	blob, err := collision.PackDirect(toCollisionObject(a.TriggerObj), -float64(x), -float64(y))
	if err != nil {
		return err
	}
	collisionChunk.Write(blob)
	collisionChunk.Write(mapfile.PackEnd())
	return nil
}

func triggerFlags(props map[string]any) uint32 {
	var flags uint32
	set := func(key string, bit uint32) {
		if v, _ := props[key].(bool); v {
			flags |= bit
		}
	}
	set("player", mapfile.TriggerFlagPlayer)
	set("enemy", mapfile.TriggerFlagEnemy)
	set("prop", mapfile.TriggerFlagProp)
	set("projectile", mapfile.TriggerFlagProjectile)
	set("repeatable", mapfile.TriggerFlagRepeatable)
	set("manual", mapfile.TriggerFlagManual)
	set("current-player", mapfile.TriggerFlagCurrentPlayer)
	return flags
}
