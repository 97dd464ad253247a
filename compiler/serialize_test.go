package compiler

import (
	"testing"

	"github.com/aliensun/mapcompile/internal/collision"
	"github.com/aliensun/mapcompile/internal/mapfile"
	"github.com/aliensun/mapcompile/internal/poolwriter"
	"github.com/aliensun/mapcompile/internal/symtab"
	"github.com/aliensun/mapcompile/internal/tileset"
)

type fakeAssetsForTest struct{}

func (fakeAssetsForTest) AssetIndex(category, path string) (uint32, error) { return 7, nil }

func minimalScan() *ScanResult {
	return &ScanResult{Chunks: map[chunkKey]*chunkScan{}}
}

func minimalInput() SerializeInput {
	return SerializeInput{
		Map:         &TiledMap{},
		Assign:      mustAssign(),
		Scan:        minimalScan(),
		Builder:     nil,
		Scripts:     &CompiledScripts{StartupIndex: mapfile.NoStartupScript, TriggerScript: map[uint32]int{}},
		Symbols:     symtab.NewSymbolPool(),
		Strings:     symtab.NewStringPool(),
		Assets:      fakeAssetsForTest{},
		Enums:       fakeEnumsForTest{},
	}
}

func TestSerializeDefaultsToNoWaterSentinelWhenAbsent(t *testing.T) {
	in := minimalInput()
	in.Builder = emptyBuilder()
	out, err := Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	// The tail's water_line field sits right after the five pooled
	// offset slots and six leading 4-byte fields (music, startup,
	// parallax origin x/y, camera start x/y).
	tailStart := 4 + 24 + 4*5
	waterLineOff := tailStart + 4 + 4 + 4 + 4 + 4 + 4
	got := int32(be32(out[waterLineOff : waterLineOff+4]))
	if got != noWaterLine {
		t.Errorf("water_line = %d, want %d (no-water sentinel)", got, noWaterLine)
	}
}

func TestSerializeResolvesDanglingWaypointNextToSentinel(t *testing.T) {
	in := minimalInput()
	in.Builder = emptyBuilder()
	in.Scan.Waypoints = []waypointScan{
		{ObjectID: 1, X: 10, Y: 20, HaveNext: true, NextObjID: 404},
	}
	out, err := Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	offsetsStart := 4 + 24
	waypointOff := be32(out[offsetsStart+4 : offsetsStart+8])
	next := be32(out[waypointOff+8 : waypointOff+12])
	if next != mapfile.NoWaypoint {
		t.Errorf("next = %#x, want the no-waypoint sentinel %#x for an unresolvable `next`", next, uint32(mapfile.NoWaypoint))
	}
}

func TestSerializeUsesScanWaterLineWhenPresent(t *testing.T) {
	in := minimalInput()
	in.Builder = emptyBuilder()
	in.Scan.HaveWater = true
	in.Scan.WaterLine = 250
	out, err := Serialize(in)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	tailStart := 4 + 24 + 4*5
	waterLineOff := tailStart + 4 + 4 + 4 + 4 + 4 + 4
	got := int32(be32(out[waterLineOff : waterLineOff+4]))
	if got != 250 {
		t.Errorf("water_line = %d, want 250", got)
	}
}

func TestGravityYFallsBackToGravityAlias(t *testing.T) {
	got := gravityY(map[string]any{"gravity": 500})
	if got != 500 {
		t.Errorf("gravityY = %v, want 500 via the `gravity` alias", got)
	}
}

func TestGravityYDefaultsWhenEverythingIsZeroOrAbsent(t *testing.T) {
	got := gravityY(map[string]any{"gravity_y": 0})
	if got != defaultGravityY {
		t.Errorf("gravityY = %v, want default %v (authored zero treated as absent)", got, defaultGravityY)
	}
}

func TestResolveCameraStartPrefersExplicitPoint(t *testing.T) {
	scan := minimalScan()
	scan.HaveCameraStart = true
	scan.CameraStartX, scan.CameraStartY = 10, 20
	scan.Actors = []actorScan{{Player: true, X: 1, Y: 2}}
	x, y := resolveCameraStart(scan)
	if x != 10 || y != 20 {
		t.Errorf("camera start = (%d, %d), want (10, 20)", x, y)
	}
}

func TestResolveCameraStartFallsBackToPlayerActor(t *testing.T) {
	scan := minimalScan()
	scan.Actors = []actorScan{{Player: true, X: 5, Y: 6}}
	x, y := resolveCameraStart(scan)
	if x != 5 || y != 6 {
		t.Errorf("camera start = (%d, %d), want the player actor's own position (5, 6)", x, y)
	}
}

func TestResolveCameraStartFallsBackToHardcodedDefault(t *testing.T) {
	x, y := resolveCameraStart(minimalScan())
	if x != defaultCameraStartX || y != defaultCameraStartY {
		t.Errorf("camera start = (%d, %d), want the hardcoded default", x, y)
	}
}

func TestWriteActorArgNonPlatformWritesZero(t *testing.T) {
	root := poolwriter.New(nil)
	if err := writeActorArg(root, actorScan{TypeName: "AT_GUARD"}, minimalScan()); err != nil {
		t.Fatalf("writeActorArg: %v", err)
	}
	out := root.Finish()
	if be32(out[:4]) != 0 {
		t.Errorf("arg = %#x, want 0 for a non-platform actor", be32(out[:4]))
	}
}

func TestWriteActorArgPlatformEncodesSpeedAndWaypoint(t *testing.T) {
	scan := minimalScan()
	scan.Waypoints = []waypointScan{{ObjectID: 9}}
	root := poolwriter.New(nil)
	a := actorScan{TypeName: "AT_CLIFF_PLATFORM", Speed: 2, HaveWaypoint: true, WaypointObjID: 9}
	if err := writeActorArg(root, a, scan); err != nil {
		t.Fatalf("writeActorArg: %v", err)
	}
	out := root.Finish()
	speed := be16(out[0:2])
	waypoint := be16(out[2:4])
	if speed != 32 {
		t.Errorf("speed = %d, want 32 (2 * 16)", speed)
	}
	if waypoint != 0 {
		t.Errorf("waypoint = %d, want 0 (its table index)", waypoint)
	}
}

func TestWriteActorArgUnknownWaypointErrors(t *testing.T) {
	root := poolwriter.New(nil)
	a := actorScan{TypeName: "AT_UNDERWATER_PLATFORM", HaveWaypoint: true, WaypointObjID: 404}
	if err := writeActorArg(root, a, minimalScan()); err != ErrUnknownWaypoint {
		t.Fatalf("err = %v, want ErrUnknownWaypoint", err)
	}
}

func TestTriggerFlagsPacksAuthoredBooleans(t *testing.T) {
	props := map[string]any{"player": true, "repeatable": true, "enemy": false}
	got := triggerFlags(props)
	want := uint32(mapfile.TriggerFlagPlayer | mapfile.TriggerFlagRepeatable)
	if got != want {
		t.Errorf("triggerFlags = %#x, want %#x", got, want)
	}
}

func TestActorSubFlagsOnlyAppliesToPlatformTypes(t *testing.T) {
	if f := actorSubFlags(actorScan{TypeName: "AT_GUARD", PlatformType: "circle"}); f != 0 {
		t.Errorf("actorSubFlags = %d, want 0 for a non-platform type", f)
	}
	if f := actorSubFlags(actorScan{TypeName: "AT_CLIFF_PLATFORM_A", PlatformType: "circle"}); f != 3 {
		t.Errorf("actorSubFlags = %d, want 3 for circle", f)
	}
}

func mustAssign() *tileset.Assignment {
	a, err := tileset.Assign(nil)
	if err != nil {
		panic(err)
	}
	return a
}

func emptyBuilder() *collision.Builder {
	return collision.NewBuilder(nil)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
