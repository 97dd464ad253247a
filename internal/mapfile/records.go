package mapfile

import (
	"bytes"
	"encoding/binary"
)

// Flip bits the compiler sets on an emitted TID, distinct from the
// authored gid's own flip bits (see collision.Gid): these occupy the
// high bits of the 16-bit TID value, which is why ordinary tilesets are
// only ever assigned TIDs below FlipD.
const (
	FlipX = 1 << 15
	FlipY = 1 << 14
	FlipD = 1 << 13
)

// Actor spawn-record flag bits.
const (
	ActorFlagCurrentPlayer = 1 << 29
	ActorFlagFlipX         = 1 << 28
	ActorFlagFlipY         = 1 << 27
	ActorFlagFlipD         = 1 << 26
)

// Trigger spawn-record flag bits.
const (
	TriggerFlagPlayer        = 1 << 1
	TriggerFlagEnemy         = 1 << 2
	TriggerFlagProp          = 1 << 3
	TriggerFlagProjectile    = 1 << 4
	TriggerFlagRepeatable    = 1 << 8
	TriggerFlagManual        = 1 << 9
	TriggerFlagCurrentPlayer = 1 << 10
)

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeI16(buf *bytes.Buffer, v int16) {
	writeU16(buf, uint16(v))
}

func writeI32(buf *bytes.Buffer, v int32) {
	writeU32(buf, uint32(v))
}

func writeU8(buf *bytes.Buffer, v uint8) {
	buf.WriteByte(v)
}

func writeI8(buf *bytes.Buffer, v int8) {
	buf.WriteByte(byte(v))
}

// HeaderCounts is the fixed-size block of table sizes that opens the
// map file, immediately after the 'TMAP' tag.
type HeaderCounts struct {
	NumTilesets     uint16
	NumBgs          uint16
	NumWaypoints    uint16
	NumScripts      uint16
	LowerXChunks    int16
	LowerYChunks    int16
	MapWChunks      uint16
	MapHChunks      uint16
	NumChunks       uint16
	NumStrings      uint16
	ActorCount      uint16
	TotalActorCount uint16
}

// PackHeaderCounts encodes the 24-byte counts block.
func PackHeaderCounts(h HeaderCounts) []byte {
	var buf bytes.Buffer
	writeU16(&buf, h.NumTilesets)
	writeU16(&buf, h.NumBgs)
	writeU16(&buf, h.NumWaypoints)
	writeU16(&buf, h.NumScripts)
	writeI16(&buf, h.LowerXChunks)
	writeI16(&buf, h.LowerYChunks)
	writeU16(&buf, h.MapWChunks)
	writeU16(&buf, h.MapHChunks)
	writeU16(&buf, h.NumChunks)
	writeU16(&buf, h.NumStrings)
	writeU16(&buf, h.ActorCount)
	writeU16(&buf, h.TotalActorCount)
	return buf.Bytes()
}

// NoStartupScript is the sentinel startup_script_index value meaning
// "this map has no startup script".
const NoStartupScript = 0xFFFFFFFF

// HeaderTail is the fixed-size block that follows the five pooled
// offset slots (actor table, waypoint table, collision stream, script
// table, string table).
type HeaderTail struct {
	MusicID            uint32
	StartupScriptIndex uint32
	ParallaxOriginX    int32
	ParallaxOriginY    int32
	CameraStartX       int32
	CameraStartY       int32
	WaterLine          int32
	WaterColor         uint32
	GravityX           float64
	GravityY           float64
}

// PackHeaderTail encodes the 40-byte tail block.
func PackHeaderTail(h HeaderTail) []byte {
	var buf bytes.Buffer
	writeU32(&buf, h.MusicID)
	writeU32(&buf, h.StartupScriptIndex)
	writeI32(&buf, h.ParallaxOriginX)
	writeI32(&buf, h.ParallaxOriginY)
	writeI32(&buf, h.CameraStartX)
	writeI32(&buf, h.CameraStartY)
	writeI32(&buf, h.WaterLine)
	writeU32(&buf, h.WaterColor)
	writeF32(&buf, h.GravityX)
	writeF32(&buf, h.GravityY)
	return buf.Bytes()
}

// TilesetRecord is one ordinary tileset's emitted range and backing image.
type TilesetRecord struct {
	FirstTID uint16
	EndTID   uint16
	XMask    uint8
	YShift   uint8
	ImageID  uint32
}

// PackTilesetRecord encodes a 12-byte tileset record.
func PackTilesetRecord(r TilesetRecord) []byte {
	var buf bytes.Buffer
	writeU16(&buf, r.FirstTID)
	writeU16(&buf, r.EndTID)
	writeU8(&buf, r.XMask)
	writeU8(&buf, r.YShift)
	buf.Write([]byte{0, 0}) // pad
	writeU32(&buf, r.ImageID)
	return buf.Bytes()
}

// BackgroundRecord is one image-layer background's emitted fields.
type BackgroundRecord struct {
	OffsetX, OffsetY           float64
	AutoscrollX, AutoscrollY   float64
	ParallaxX, ParallaxY       float64
	ClearTopRGBA, ClearBotRGBA uint32
	Depth                      uint8
	RepeatX, RepeatY           bool
	ImageID                    uint32
	AnimTilesetID              uint32
}

// PackBackgroundRecord encodes a background record: one trailing u32
// reserved field (always 0) followed by two trailing f32 fields
// (always 0.0, 1.0), matching the source compiler's fixed tail.
func PackBackgroundRecord(r BackgroundRecord) []byte {
	var buf bytes.Buffer
	writeF32(&buf, r.OffsetX)
	writeF32(&buf, r.OffsetY)
	writeF32(&buf, r.AutoscrollX)
	writeF32(&buf, r.AutoscrollY)
	writeF32(&buf, r.ParallaxX)
	writeF32(&buf, r.ParallaxY)
	writeU32(&buf, r.ClearTopRGBA)
	writeU32(&buf, r.ClearBotRGBA)
	writeU8(&buf, r.Depth)
	writeBool(&buf, r.RepeatX)
	writeBool(&buf, r.RepeatY)
	buf.WriteByte(0) // pad
	writeU32(&buf, r.ImageID)
	writeU32(&buf, r.AnimTilesetID)
	writeU32(&buf, 0)
	writeF32(&buf, 0.0)
	writeF32(&buf, 1.0)
	return buf.Bytes()
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

// ChunkHeader is the fixed-size part of one chunk record, written
// before the pooled offset to its prop array and the flattened tile
// grids.
type ChunkHeader struct {
	CX, CY    int16
	PX, PY    int32
	NumLayers int8
	FgSplit   int8
	NumProps  uint16
}

// PackChunkHeader encodes the 16-byte fixed chunk header.
func PackChunkHeader(h ChunkHeader) []byte {
	var buf bytes.Buffer
	writeI16(&buf, h.CX)
	writeI16(&buf, h.CY)
	writeI32(&buf, h.PX)
	writeI32(&buf, h.PY)
	writeI8(&buf, h.NumLayers)
	writeI8(&buf, h.FgSplit)
	writeU16(&buf, h.NumProps)
	return buf.Bytes()
}

// PackTileGrid byteswaps (if needed — Go's binary.BigEndian always
// writes big-endian regardless of host order) and flattens a 16x16 TID
// grid into its 512-byte wire form.
func PackTileGrid(grid [256]uint16) []byte {
	var buf bytes.Buffer
	for _, tid := range grid {
		writeU16(&buf, tid)
	}
	return buf.Bytes()
}

// PropRecord is one tile-prop decoration placed within a chunk.
type PropRecord struct {
	Layer         uint32
	X, Y          int32
	Width, Height uint32
	ImageID       uint32
	AnimTilesetID uint32
}

// PackPropRecord encodes a prop record; the trailing five reserved u32
// fields plus (0.0, 1.0) f32 and a closing u32 0 pad out the record to
// match the source compiler's fixed tail.
func PackPropRecord(r PropRecord) []byte {
	var buf bytes.Buffer
	writeU32(&buf, r.Layer)
	writeI32(&buf, r.X)
	writeI32(&buf, r.Y)
	writeU32(&buf, r.Width)
	writeU32(&buf, r.Height)
	writeU32(&buf, r.ImageID)
	writeU32(&buf, r.AnimTilesetID)
	writeU32(&buf, 0)
	writeU32(&buf, 0)
	writeU32(&buf, 0)
	writeU32(&buf, 0)
	writeU32(&buf, 0)
	writeF32(&buf, 0.0)
	writeF32(&buf, 1.0)
	writeU32(&buf, 0)
	return buf.Bytes()
}

// ActorHeader is the fixed-size part of one actor/trigger spawn
// record, written before its per-type argument blob.
type ActorHeader struct {
	TypeID   uint32
	X, Y     int32
	Flags    uint32
	ObjectID uint16
	Angle16  uint16
}

// PackActorHeader encodes the 20-byte fixed actor header.
func PackActorHeader(h ActorHeader) []byte {
	var buf bytes.Buffer
	writeU32(&buf, h.TypeID)
	writeI32(&buf, h.X)
	writeI32(&buf, h.Y)
	writeU32(&buf, h.Flags)
	writeU16(&buf, h.ObjectID)
	writeU16(&buf, h.Angle16)
	return buf.Bytes()
}

// NoWaypoint is the sentinel "no next waypoint" value.
const NoWaypoint = 0xFFFFFFFF

// PackWaypointRecord encodes a waypoint's 12-byte record: i32 x, y,
// u32 next (NoWaypoint if this waypoint is the end of its chain).
func PackWaypointRecord(x, y int32, next uint32) []byte {
	var buf bytes.Buffer
	writeI32(&buf, x)
	writeI32(&buf, y)
	writeU32(&buf, next)
	return buf.Bytes()
}

// NoWaypointArg is the sentinel "no waypoint" value in a platform
// actor's 4-byte argument blob, distinct from NoWaypoint's width.
const NoWaypointArg = 0xFFFF

// PackActorArg encodes a cliff/underwater platform actor's argument
// blob: u16 speed (fixed-point, *16), u16 waypoint table index
// (NoWaypointArg if it has none).
func PackActorArg(speed, waypoint uint16) []byte {
	var buf bytes.Buffer
	writeU16(&buf, speed)
	writeU16(&buf, waypoint)
	return buf.Bytes()
}

// PackActorArg32 encodes a trigger's single u32 argument: the table
// index of the script it fires.
func PackActorArg32(v uint32) []byte {
	var buf bytes.Buffer
	writeU32(&buf, v)
	return buf.Bytes()
}
