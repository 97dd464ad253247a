package mapfile_test

import (
	"encoding/binary"
	"testing"

	"github.com/aliensun/mapcompile/internal/mapfile"
)

func TestPackHeaderCountsLayout(t *testing.T) {
	b := mapfile.PackHeaderCounts(mapfile.HeaderCounts{
		NumTilesets: 2, NumBgs: 1, NumWaypoints: 3, NumScripts: 4,
		LowerXChunks: -1, LowerYChunks: -2, MapWChunks: 5, MapHChunks: 6,
		NumChunks: 7, NumStrings: 8, ActorCount: 9, TotalActorCount: 10,
	})
	if len(b) != 24 {
		t.Fatalf("len = %d, want 24", len(b))
	}
	if got := binary.BigEndian.Uint16(b[0:2]); got != 2 {
		t.Errorf("NumTilesets = %d, want 2", got)
	}
	if got := int16(binary.BigEndian.Uint16(b[8:10])); got != -1 {
		t.Errorf("LowerXChunks = %d, want -1", got)
	}
	if got := binary.BigEndian.Uint16(b[22:24]); got != 10 {
		t.Errorf("TotalActorCount = %d, want 10", got)
	}
}

func TestPackHeaderTailStartupSentinel(t *testing.T) {
	b := mapfile.PackHeaderTail(mapfile.HeaderTail{StartupScriptIndex: mapfile.NoStartupScript})
	if len(b) != 40 {
		t.Fatalf("len = %d, want 40", len(b))
	}
	if got := binary.BigEndian.Uint32(b[4:8]); got != 0xFFFFFFFF {
		t.Errorf("StartupScriptIndex = %#x, want 0xFFFFFFFF", got)
	}
}

func TestPackTilesetRecordPadsToTwelveBytes(t *testing.T) {
	b := mapfile.PackTilesetRecord(mapfile.TilesetRecord{FirstTID: 1, EndTID: 32, XMask: 7, YShift: 3, ImageID: 42})
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	if b[4] != 7 || b[5] != 3 {
		t.Errorf("xmask/yshift = (%d,%d), want (7,3)", b[4], b[5])
	}
	if b[6] != 0 || b[7] != 0 {
		t.Error("expected 2 zero pad bytes before image_id")
	}
	if got := binary.BigEndian.Uint32(b[8:12]); got != 42 {
		t.Errorf("ImageID = %d, want 42", got)
	}
}

func TestPackBackgroundRecordFixedTail(t *testing.T) {
	b := mapfile.PackBackgroundRecord(mapfile.BackgroundRecord{Depth: 1, RepeatX: true})
	if len(b) != 24+4+1+1+1+1+4+4+4+4+4+4 {
		t.Fatalf("len = %d, want %d", len(b), 24+4+1+1+1+1+4+4+4+4+4+4)
	}
}

func TestPackChunkHeaderEncodesPixelCoords(t *testing.T) {
	b := mapfile.PackChunkHeader(mapfile.ChunkHeader{CX: 3, CY: -1, PX: 48, PY: -16, NumLayers: 2, FgSplit: 1, NumProps: 0})
	if len(b) != 16 {
		t.Fatalf("len = %d, want 16", len(b))
	}
	if got := int32(binary.BigEndian.Uint32(b[4:8])); got != 48 {
		t.Errorf("PX = %d, want 48", got)
	}
}

func TestPackTileGridIsBigEndian512Bytes(t *testing.T) {
	var grid [256]uint16
	grid[0] = 0x0102
	b := mapfile.PackTileGrid(grid)
	if len(b) != 512 {
		t.Fatalf("len = %d, want 512", len(b))
	}
	if b[0] != 0x01 || b[1] != 0x02 {
		t.Errorf("first TID bytes = %x %x, want 01 02", b[0], b[1])
	}
}

func TestPackActorHeaderLayout(t *testing.T) {
	b := mapfile.PackActorHeader(mapfile.ActorHeader{TypeID: 7, X: -5, Y: 10, Flags: 0x3, ObjectID: 2, Angle16: 0x4000})
	if len(b) != 20 {
		t.Fatalf("len = %d, want 20", len(b))
	}
	if got := int32(binary.BigEndian.Uint32(b[4:8])); got != -5 {
		t.Errorf("X = %d, want -5", got)
	}
	if got := binary.BigEndian.Uint16(b[18:20]); got != 0x4000 {
		t.Errorf("Angle16 = %#x, want 0x4000", got)
	}
}

func TestPackWaypointRecordNoNextSentinel(t *testing.T) {
	b := mapfile.PackWaypointRecord(1, 2, mapfile.NoWaypoint)
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	if got := binary.BigEndian.Uint32(b[8:12]); got != 0xFFFFFFFF {
		t.Errorf("next = %#x, want 0xFFFFFFFF", got)
	}
}
